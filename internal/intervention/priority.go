package intervention

import (
	"time"

	"github.com/mbellotti/handoff/internal/trigger"
)

const (
	MinPriority = 1
	MaxPriority = 5

	// Conversations running longer than this get a priority bump.
	longConversation = 15 * time.Minute
)

// PriorityFor computes a request's queue priority. The order of adjustments
// matters and must stay stable: severity weight, then +1 for a long-running
// conversation, then +2 for a VIP user, clamped to [1,5].
func PriorityFor(primary trigger.Trigger, sessionAge time.Duration, vip bool) int {
	p := primary.Severity.Weight()
	if sessionAge > longConversation {
		p++
	}
	if vip {
		p += 2
	}
	if p > MaxPriority {
		p = MaxPriority
	}
	if p < MinPriority {
		p = MinPriority
	}
	return p
}

// RequiredSkills maps a primary trigger type to the operator skills that
// make an operator a preferred match for it.
func RequiredSkills(t trigger.Type) []string {
	switch t {
	case trigger.TypeUserFrustration:
		return []string{"general", "de-escalation"}
	case trigger.TypeComplexTopic:
		return []string{"technical", "specialized"}
	case trigger.TypeRepeatedQuestions:
		return []string{"general", "clarification"}
	case trigger.TypeLowConfidence, trigger.TypeExplicitRequest:
		return []string{"general"}
	default:
		return []string{"general"}
	}
}

var handoffMessages = map[trigger.Type]string{
	trigger.TypeLowConfidence:     "I'm connecting you with a specialist who can better assist with your question.",
	trigger.TypeUserFrustration:   "I understand this has been frustrating. Let me connect you with a team member who can help.",
	trigger.TypeComplexTopic:      "This question needs expert attention. I'm bringing in a specialist now.",
	trigger.TypeExplicitRequest:   "Of course! I'm connecting you with a team member right away.",
	trigger.TypeRepeatedQuestions: "Let me get you someone who can give you a clearer answer.",
}

const defaultHandoffMessage = "I'm connecting you with a human agent who will assist you shortly."

// ResumeMessage is appended to the transcript when control returns to the AI.
const ResumeMessage = "You're now back with our AI assistant. Feel free to continue the conversation."

// HandoffMessage returns the canned system message announcing a human
// takeover for the given primary trigger type.
func HandoffMessage(t trigger.Type) string {
	if msg, ok := handoffMessages[t]; ok {
		return msg
	}
	return defaultHandoffMessage
}
