package intervention

import (
	"time"

	"github.com/mbellotti/handoff/internal/trigger"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusAssigned  Status = "assigned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Request tracks one escalation attempt for a conversation, from detection
// through operator handoff to resolution. A conversation has at most one
// request that is not completed.
type Request struct {
	ID               string            `json:"id"`
	ConversationID   string            `json:"conversation_id"`
	Timestamp        time.Time         `json:"timestamp"`
	Triggers         []trigger.Trigger `json:"triggers"`
	PrimaryTrigger   trigger.Trigger   `json:"primary_trigger"`
	Status           Status            `json:"status"`
	AssignedOperator string            `json:"assigned_operator,omitempty"`
	Priority         int               `json:"priority"`
	TransferTime     *time.Time        `json:"transfer_time,omitempty"`
}

// Outstanding reports whether the request still occupies its conversation's
// single escalation slot.
func (r *Request) Outstanding() bool {
	return r.Status != StatusCompleted
}

// Assignable reports whether a sweep may try to hand the request to an
// operator.
func (r *Request) Assignable() bool {
	return r.Status == StatusPending || r.Status == StatusQueued
}

func (r *Request) Clone() *Request {
	c := *r
	if r.Triggers != nil {
		c.Triggers = make([]trigger.Trigger, len(r.Triggers))
		copy(c.Triggers, r.Triggers)
	}
	if r.TransferTime != nil {
		t := *r.TransferTime
		c.TransferTime = &t
	}
	return &c
}
