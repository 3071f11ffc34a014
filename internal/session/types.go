package session

import "time"

type Status string

const (
	StatusAIActive     Status = "ai_active"
	StatusHumanPending Status = "human_pending"
	StatusHumanActive  Status = "human_active"
	StatusAIResumed    Status = "ai_resumed"
)

// AIControlled reports whether the assistant currently owns the conversation.
// ai_resumed behaves exactly like ai_active for new trigger evaluation.
func (s Status) AIControlled() bool {
	return s == StatusAIActive || s == StatusAIResumed
}

type Sender string

const (
	SenderUser     Sender = "user"
	SenderAI       Sender = "ai"
	SenderOperator Sender = "human_operator"
	SenderSystem   Sender = "system"
)

// Message is an immutable transcript entry. Metadata is opaque JSON-shaped
// data from the caller; the only key the engine itself inspects is
// "confidence".
type Message struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Sender    Sender         `json:"sender"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Confidence extracts the optional model confidence score from metadata.
func (m Message) Confidence() (float64, bool) {
	if m.Metadata == nil {
		return 0, false
	}
	switch v := m.Metadata["confidence"].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

type TransferType string

const (
	TransferToHuman TransferType = "transfer_to_human"
	TransferToAI    TransferType = "transfer_to_ai"
)

// TransferRecord is one entry in a session's intervention history.
type TransferRecord struct {
	Timestamp        time.Time    `json:"timestamp"`
	Type             TransferType `json:"type"`
	OperatorID       string       `json:"operator_id,omitempty"`
	PreviousOperator string       `json:"previous_operator,omitempty"`
	Reason           string       `json:"reason,omitempty"`
}

// RecentLimit caps the rolling window of messages kept for pattern
// detection. The full transcript stays on the session until cleanup.
const RecentLimit = 50

type Session struct {
	ID                  string           `json:"session_id"`
	UserID              string           `json:"user_id"`
	Status              Status           `json:"status"`
	OperatorID          string           `json:"operator_id,omitempty"`
	Messages            []Message        `json:"messages"`
	Recent              []Message        `json:"-"`
	Context             map[string]any   `json:"context,omitempty"`
	InterventionHistory []TransferRecord `json:"intervention_history"`
	StartedAt           time.Time        `json:"started_at"`
	LastActivityAt      time.Time        `json:"last_activity_at"`
}

// Append records a message on both the full transcript and the rolling
// window, trimming the window to RecentLimit.
func (s *Session) Append(m Message) {
	s.Messages = append(s.Messages, m)
	s.Recent = append(s.Recent, m)
	if len(s.Recent) > RecentLimit {
		s.Recent = s.Recent[len(s.Recent)-RecentLimit:]
	}
	s.LastActivityAt = m.Timestamp
}

// VIP reports whether the registration context marks the user as VIP.
func (s *Session) VIP() bool {
	v, ok := s.Context["vipUser"].(bool)
	return ok && v
}

func (s *Session) Clone() *Session {
	c := *s
	if s.Messages != nil {
		c.Messages = make([]Message, len(s.Messages))
		copy(c.Messages, s.Messages)
	}
	if s.Recent != nil {
		c.Recent = make([]Message, len(s.Recent))
		copy(c.Recent, s.Recent)
	}
	if s.InterventionHistory != nil {
		c.InterventionHistory = make([]TransferRecord, len(s.InterventionHistory))
		copy(c.InterventionHistory, s.InterventionHistory)
	}
	return &c
}

// StatusSnapshot is the dashboard view of a single session.
type StatusSnapshot struct {
	SessionID           string           `json:"session_id"`
	Status              Status           `json:"status"`
	OperatorID          string           `json:"operator_id,omitempty"`
	MessageCount        int              `json:"message_count"`
	LastActivityAt      time.Time        `json:"last_activity_at"`
	InterventionHistory []TransferRecord `json:"intervention_history"`
}
