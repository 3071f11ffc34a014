package engine

import (
	"sort"

	"github.com/google/uuid"

	"github.com/mbellotti/handoff/internal/intervention"
	"github.com/mbellotti/handoff/internal/notify"
	"github.com/mbellotti/handoff/internal/session"
	"github.com/mbellotti/handoff/internal/trigger"
)

// escalateLocked turns a trigger burst into at most one intervention
// request. A conversation that already has an outstanding request keeps it;
// the new burst is coalesced into nothing.
func (e *Engine) escalateLocked(s *session.Session, fired []trigger.Trigger) {
	if e.metrics != nil {
		for _, t := range fired {
			e.metrics.TriggersFired.WithLabelValues(string(t.Type)).Inc()
		}
	}

	if e.outstandingLocked(s.ID) != nil {
		return
	}

	primary, ok := trigger.Primary(fired)
	if !ok {
		return
	}

	if e.queueLimit > 0 && e.assignableCountLocked() >= e.queueLimit {
		if e.metrics != nil {
			e.metrics.QueueRejections.Inc()
		}
		e.hub.Publish(notify.Event{
			Type:           notify.EventQueueRejected,
			ConversationID: s.ID,
			TriggerType:    string(primary.Type),
			Reason:         "intervention queue full",
		})
		return
	}

	now := e.now()
	req := &intervention.Request{
		ID:             uuid.NewString(),
		ConversationID: s.ID,
		Timestamp:      now,
		Triggers:       fired,
		PrimaryTrigger: primary,
		Status:         intervention.StatusPending,
		Priority:       intervention.PriorityFor(primary, now.Sub(s.StartedAt), s.VIP()),
	}
	e.requests[req.ID] = req
	e.byConversation[s.ID] = req.ID
	s.Status = session.StatusHumanPending

	e.hub.Publish(notify.Event{
		Type:           notify.EventInterventionQueued,
		ConversationID: s.ID,
		RequestID:      req.ID,
		TriggerType:    string(primary.Type),
		Priority:       req.Priority,
		Reason:         primary.Reason,
	})

	// Immediate attempt; the sweep rescues it later if nobody is free.
	if !e.tryAssignLocked(req) {
		req.Status = intervention.StatusQueued
	}
	e.updateGaugesLocked()
}

// tryAssignLocked asks the registry for a skill-matched operator and, on
// success, completes the handoff to human.
func (e *Engine) tryAssignLocked(req *intervention.Request) bool {
	s, ok := e.sessions[req.ConversationID]
	if !ok {
		// Session vanished under the request; retire it.
		req.Status = intervention.StatusCompleted
		delete(e.byConversation, req.ConversationID)
		return false
	}

	op, ok := e.operators.Acquire(intervention.RequiredSkills(req.PrimaryTrigger.Type))
	if !ok {
		return false
	}

	req.AssignedOperator = op.ID
	req.Status = intervention.StatusAssigned
	e.hub.Publish(notify.Event{
		Type:           notify.EventOperatorAssigned,
		ConversationID: req.ConversationID,
		RequestID:      req.ID,
		OperatorID:     op.ID,
		TriggerType:    string(req.PrimaryTrigger.Type),
		Priority:       req.Priority,
	})

	e.completeHandoffLocked(s, req)
	return true
}

// Sweep retries assignment for every pending or queued request, highest
// priority first, earlier requests first on ties. Returns the number of
// handoffs completed.
func (e *Engine) Sweep() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	var waiting []*intervention.Request
	for _, req := range e.requests {
		if req.Assignable() {
			waiting = append(waiting, req)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].Priority != waiting[j].Priority {
			return waiting[i].Priority > waiting[j].Priority
		}
		return waiting[i].Timestamp.Before(waiting[j].Timestamp)
	})

	assigned := 0
	for _, req := range waiting {
		if e.tryAssignLocked(req) {
			assigned++
		} else if req.Status == intervention.StatusPending {
			req.Status = intervention.StatusQueued
		}
	}
	e.updateGaugesLocked()
	return assigned
}

func (e *Engine) assignableCountLocked() int {
	n := 0
	for _, req := range e.requests {
		if req.Assignable() {
			n++
		}
	}
	return n
}
