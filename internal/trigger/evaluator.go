package trigger

import (
	"fmt"
	"strings"

	"github.com/mbellotti/handoff/internal/session"
)

const (
	// ConfidenceThreshold is the model confidence below which a reply is
	// considered unreliable enough to escalate.
	ConfidenceThreshold = 0.4

	// Repeated-question detection: among the last repeatWindow user
	// messages, at least repeatMinMatches must score above
	// repeatSimilarity against the current one.
	repeatWindow     = 6
	repeatMinMatches = 3
	repeatSimilarity = 0.6
)

// Phrase tables are plain data so each rule can be unit tested in isolation
// and the matching later swapped for a real classifier.
var (
	frustrationPhrases = []string{
		"frustrated",
		"frustrating",
		"confused",
		"doesn't work",
		"does not work",
		"not working",
		"not helping",
		"useless",
		"this is ridiculous",
	}

	topicKeywords = []string{
		"legal",
		"lawyer",
		"medical",
		"financial",
		"insurance claim",
		"permits",
		"permit",
		"zoning",
	}

	escalationPhrases = []string{
		"speak to human",
		"speak to a human",
		"talk to a human",
		"talk to human",
		"real person",
		"human agent",
		"live agent",
		"supervisor",
	}
)

// Evaluator is a pure function of (history, message): it owns no session
// state and is safe to call from any goroutine.
type Evaluator struct {
	scorer SimilarityScorer
}

func NewEvaluator(scorer SimilarityScorer) *Evaluator {
	if scorer == nil {
		scorer = WordOverlapScorer{}
	}
	return &Evaluator{scorer: scorer}
}

// Evaluate runs every rule against the incoming user message and returns the
// triggers that fired, in fixed rule order. history is the rolling window of
// prior messages and must not include msg itself.
func (e *Evaluator) Evaluate(history []session.Message, msg session.Message) []Trigger {
	var out []Trigger

	if conf, ok := msg.Confidence(); ok && conf < ConfidenceThreshold {
		out = append(out, Trigger{
			Type:     TypeLowConfidence,
			Severity: SeverityHigh,
			Reason:   fmt.Sprintf("model confidence %.2f below %.2f", conf, ConfidenceThreshold),
		})
	}

	text := strings.ToLower(msg.Content)

	if phrase, ok := containsAny(text, frustrationPhrases); ok {
		out = append(out, Trigger{
			Type:     TypeUserFrustration,
			Severity: SeverityHigh,
			Reason:   fmt.Sprintf("frustration phrase %q detected", phrase),
		})
	}

	if phrase, ok := containsAny(text, topicKeywords); ok {
		out = append(out, Trigger{
			Type:     TypeComplexTopic,
			Severity: SeverityMedium,
			Reason:   fmt.Sprintf("complex topic %q detected", phrase),
		})
	}

	if phrase, ok := containsAny(text, escalationPhrases); ok {
		out = append(out, Trigger{
			Type:     TypeExplicitRequest,
			Severity: SeverityCritical,
			Reason:   fmt.Sprintf("user asked for a human (%q)", phrase),
		})
	}

	if matches := e.countRepeats(history, msg); matches >= repeatMinMatches {
		out = append(out, Trigger{
			Type:     TypeRepeatedQuestions,
			Severity: SeverityMedium,
			Reason:   fmt.Sprintf("message resembles %d recent user messages", matches),
		})
	}

	return out
}

func (e *Evaluator) countRepeats(history []session.Message, msg session.Message) int {
	matches := 0
	seen := 0
	for i := len(history) - 1; i >= 0 && seen < repeatWindow; i-- {
		prior := history[i]
		if prior.Sender != session.SenderUser {
			continue
		}
		seen++
		if e.scorer.Score(msg.Content, prior.Content) > repeatSimilarity {
			matches++
		}
	}
	return matches
}

func containsAny(text string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}
