package archive

import (
	"context"
	"time"
)

// Record is the durable trace of one resolved escalation. Archiving is
// best effort bookkeeping; engine correctness never depends on it.
type Record struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	RequestID      string     `json:"request_id"`
	TriggerType    string     `json:"trigger_type"`
	Severity       string     `json:"severity"`
	Priority       int        `json:"priority"`
	OperatorID     string     `json:"operator_id,omitempty"`
	QueuedAt       time.Time  `json:"queued_at"`
	TransferredAt  *time.Time `json:"transferred_at,omitempty"`
	ResolvedAt     time.Time  `json:"resolved_at"`
	Resolution     string     `json:"resolution"`
}

type Store interface {
	SaveRecord(ctx context.Context, record Record) error
	RecentRecords(ctx context.Context, conversationID string, limit int) ([]Record, error)
	Close() error
}
