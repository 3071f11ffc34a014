package engine

import (
	"github.com/google/uuid"

	"github.com/mbellotti/handoff/internal/intervention"
	"github.com/mbellotti/handoff/internal/notify"
	"github.com/mbellotti/handoff/internal/session"
)

// TransferToHuman hands a conversation with an outstanding intervention
// request to the given operator. The scheduler path arrives here with the
// operator already assigned; an operator console may also call it directly,
// claiming the operator on the way in. The call mutates state at most once:
// a second call for an already-active handoff returns false.
func (e *Engine) TransferToHuman(conversationID, operatorID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[conversationID]
	if !ok || s.Status == session.StatusHumanActive {
		return false
	}
	req := e.outstandingLocked(conversationID)
	if req == nil || req.Status == intervention.StatusActive {
		return false
	}

	switch {
	case req.Status == intervention.StatusAssigned && req.AssignedOperator == operatorID:
		// Operator was acquired at assignment time.
	case e.operators.Claim(operatorID):
		req.AssignedOperator = operatorID
		req.Status = intervention.StatusAssigned
	default:
		return false
	}

	e.completeHandoffLocked(s, req)
	e.updateGaugesLocked()
	return true
}

// TransferToAI returns a human-handled conversation to the assistant. Fails
// without mutating anything unless the session is human_active.
func (e *Engine) TransferToAI(conversationID, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[conversationID]
	if !ok || s.Status != session.StatusHumanActive {
		return false
	}

	prev := s.OperatorID
	e.operators.Release(prev)
	now := e.now()
	s.Status = session.StatusAIResumed
	s.OperatorID = ""
	s.InterventionHistory = append(s.InterventionHistory, session.TransferRecord{
		Timestamp:        now,
		Type:             session.TransferToAI,
		PreviousOperator: prev,
		Reason:           reason,
	})
	s.Append(session.Message{
		ID:        uuid.NewString(),
		Timestamp: now,
		Sender:    session.SenderSystem,
		Content:   intervention.ResumeMessage,
	})

	if req := e.outstandingLocked(conversationID); req != nil {
		req.Status = intervention.StatusCompleted
		delete(e.byConversation, conversationID)
		e.archiveAsync(req.Clone(), string(session.TransferToAI))
	}

	if e.metrics != nil {
		e.metrics.Transfers.WithLabelValues("to_ai").Inc()
	}
	e.hub.Publish(notify.Event{
		Type:           notify.EventTransferToAI,
		ConversationID: conversationID,
		OperatorID:     prev,
		Reason:         reason,
	})
	e.updateGaugesLocked()
	return true
}

// completeHandoffLocked applies the transfer-to-human side effects: session
// state, intervention history, the canned system message, and notifications.
func (e *Engine) completeHandoffLocked(s *session.Session, req *intervention.Request) {
	now := e.now()
	req.Status = intervention.StatusActive
	req.TransferTime = &now

	s.Status = session.StatusHumanActive
	s.OperatorID = req.AssignedOperator
	s.InterventionHistory = append(s.InterventionHistory, session.TransferRecord{
		Timestamp:  now,
		Type:       session.TransferToHuman,
		OperatorID: req.AssignedOperator,
		Reason:     req.PrimaryTrigger.Reason,
	})
	s.Append(session.Message{
		ID:        uuid.NewString(),
		Timestamp: now,
		Sender:    session.SenderSystem,
		Content:   intervention.HandoffMessage(req.PrimaryTrigger.Type),
	})

	if e.metrics != nil {
		e.metrics.Transfers.WithLabelValues("to_human").Inc()
		e.metrics.ObserveAssignmentWait(now.Sub(req.Timestamp))
	}
	e.hub.Publish(notify.Event{
		Type:           notify.EventTransferToHuman,
		ConversationID: s.ID,
		RequestID:      req.ID,
		OperatorID:     req.AssignedOperator,
		TriggerType:    string(req.PrimaryTrigger.Type),
		Priority:       req.Priority,
	})
}
