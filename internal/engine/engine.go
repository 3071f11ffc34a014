// Package engine is the coordinating actor of the escalation system. It is
// the single owner of session and intervention-request state; the operator
// registry guards its own records, and everything else (trigger rules,
// priority math, notifications, archiving) is stateless or fire-and-forget.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbellotti/handoff/internal/archive"
	"github.com/mbellotti/handoff/internal/intervention"
	"github.com/mbellotti/handoff/internal/notify"
	"github.com/mbellotti/handoff/internal/observability"
	"github.com/mbellotti/handoff/internal/operator"
	"github.com/mbellotti/handoff/internal/session"
	"github.com/mbellotti/handoff/internal/trigger"
)

var ErrSessionExists = errors.New("session already registered")

// DefaultQueueLimit bounds outstanding unassigned requests. 0 disables the
// bound and restores unbounded queue growth under operator shortage.
const DefaultQueueLimit = 256

const archiveTimeout = 5 * time.Second

type Options struct {
	// QueueLimit caps requests in pending/queued state. Negative means
	// DefaultQueueLimit; zero means unbounded.
	QueueLimit int
	Metrics    *observability.Metrics
	Hub        *notify.Hub
	Archive    archive.Store
	Scorer     trigger.SimilarityScorer
}

type Engine struct {
	mu             sync.Mutex
	sessions       map[string]*session.Session
	requests       map[string]*intervention.Request
	byConversation map[string]string

	operators  *operator.Registry
	eval       *trigger.Evaluator
	queueLimit int
	metrics    *observability.Metrics
	hub        *notify.Hub
	store      archive.Store

	now func() time.Time
}

func New(operators *operator.Registry, opts Options) *Engine {
	if operators == nil {
		operators = operator.NewRegistry()
	}
	if opts.QueueLimit < 0 {
		opts.QueueLimit = DefaultQueueLimit
	}
	if opts.Hub == nil {
		opts.Hub = notify.NewHub()
	}
	if opts.Archive == nil {
		opts.Archive = archive.NewInMemoryStore()
	}
	return &Engine{
		sessions:       make(map[string]*session.Session),
		requests:       make(map[string]*intervention.Request),
		byConversation: make(map[string]string),
		operators:      operators,
		eval:           trigger.NewEvaluator(opts.Scorer),
		queueLimit:     opts.QueueLimit,
		metrics:        opts.Metrics,
		hub:            opts.Hub,
		store:          opts.Archive,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Operators exposes the registry for console and dashboard endpoints.
func (e *Engine) Operators() *operator.Registry { return e.operators }

// Hub exposes the notification hub for websocket consumers.
func (e *Engine) Hub() *notify.Hub { return e.hub }

// Archive exposes the resolved-escalation store.
func (e *Engine) Archive() archive.Store { return e.store }

// RegisterSession creates the tracking state for a new conversation.
// Registering a known conversation id is a conflict, not an upsert:
// callers that want idempotency should check SessionStatus first.
func (e *Engine) RegisterSession(conversationID, userID string, ctxData map[string]any) (*session.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[conversationID]; ok {
		return nil, ErrSessionExists
	}
	now := e.now()
	s := &session.Session{
		ID:             conversationID,
		UserID:         userID,
		Status:         session.StatusAIActive,
		Context:        ctxData,
		StartedAt:      now,
		LastActivityAt: now,
	}
	e.sessions[conversationID] = s
	e.updateGaugesLocked()
	return s.Clone(), nil
}

// RecordMessage appends a message to the conversation transcript. User
// messages arriving while the AI owns the conversation are run through the
// trigger rules and may enqueue an intervention request. Returns false for
// unknown conversations.
func (e *Engine) RecordMessage(conversationID, content string, sender session.Sender, metadata map[string]any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[conversationID]
	if !ok {
		return false
	}

	msg := session.Message{
		ID:        uuid.NewString(),
		Timestamp: e.now(),
		Sender:    sender,
		Content:   content,
		Metadata:  metadata,
	}
	history := s.Recent
	evaluate := sender == session.SenderUser && s.Status.AIControlled()

	var fired []trigger.Trigger
	if evaluate {
		fired = e.eval.Evaluate(history, msg)
	}
	s.Append(msg)

	if len(fired) > 0 {
		e.escalateLocked(s, fired)
	}
	return true
}

// SessionStatus returns the dashboard view of one conversation.
func (e *Engine) SessionStatus(conversationID string) (session.StatusSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[conversationID]
	if !ok {
		return session.StatusSnapshot{}, false
	}
	history := make([]session.TransferRecord, len(s.InterventionHistory))
	copy(history, s.InterventionHistory)
	return session.StatusSnapshot{
		SessionID:           s.ID,
		Status:              s.Status,
		OperatorID:          s.OperatorID,
		MessageCount:        len(s.Messages),
		LastActivityAt:      s.LastActivityAt,
		InterventionHistory: history,
	}, true
}

// Request returns the conversation's current intervention request, if any.
func (e *Engine) Request(conversationID string) (*intervention.Request, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	req := e.outstandingLocked(conversationID)
	if req == nil {
		return nil, false
	}
	return req.Clone(), true
}

// CleanupOldSessions evicts conversations idle longer than maxAge, together
// with their intervention requests, releasing any operator still attached.
// Returns the number of sessions removed.
func (e *Engine) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := e.now().Add(-maxAge)

	e.mu.Lock()
	var evicted []*session.Session
	for id, s := range e.sessions {
		if !s.LastActivityAt.Before(cutoff) {
			continue
		}
		if s.OperatorID != "" {
			e.operators.Release(s.OperatorID)
		}
		if req := e.outstandingLocked(id); req != nil {
			req.Status = intervention.StatusCompleted
			e.archiveAsync(req.Clone(), "session_cleanup")
		}
		for reqID, req := range e.requests {
			if req.ConversationID == id {
				delete(e.requests, reqID)
			}
		}
		delete(e.byConversation, id)
		delete(e.sessions, id)
		evicted = append(evicted, s)
	}
	e.updateGaugesLocked()
	e.mu.Unlock()

	for _, s := range evicted {
		e.hub.Publish(notify.Event{
			Type:           notify.EventSessionCleaned,
			ConversationID: s.ID,
		})
	}
	return len(evicted)
}

// StartScheduler runs the recurring sweep that rescues queued requests and
// the coarser session cleanup pass. Both stop when ctx is cancelled.
func (e *Engine) StartScheduler(ctx context.Context, sweepInterval, cleanupInterval, sessionMaxAge time.Duration) {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Second
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	if sessionMaxAge <= 0 {
		sessionMaxAge = 24 * time.Hour
	}

	sweep := time.NewTicker(sweepInterval)
	cleanup := time.NewTicker(cleanupInterval)
	go func() {
		defer sweep.Stop()
		defer cleanup.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sweep.C:
				if n := e.Sweep(); n > 0 {
					log.Printf("scheduler: sweep assigned %d request(s)", n)
				}
			case <-cleanup.C:
				if n := e.CleanupOldSessions(sessionMaxAge); n > 0 {
					log.Printf("scheduler: cleaned up %d stale session(s)", n)
				}
			}
		}
	}()
}

// outstandingLocked returns the conversation's non-completed request, if any.
func (e *Engine) outstandingLocked(conversationID string) *intervention.Request {
	reqID, ok := e.byConversation[conversationID]
	if !ok {
		return nil
	}
	req := e.requests[reqID]
	if req == nil || !req.Outstanding() {
		return nil
	}
	return req
}

func (e *Engine) archiveAsync(req *intervention.Request, resolution string) {
	record := archive.Record{
		ConversationID: req.ConversationID,
		RequestID:      req.ID,
		TriggerType:    string(req.PrimaryTrigger.Type),
		Severity:       string(req.PrimaryTrigger.Severity),
		Priority:       req.Priority,
		OperatorID:     req.AssignedOperator,
		QueuedAt:       req.Timestamp,
		TransferredAt:  req.TransferTime,
		ResolvedAt:     e.now(),
		Resolution:     resolution,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := e.store.SaveRecord(ctx, record); err != nil {
			log.Printf("archive: save record for %s failed: %v", record.ConversationID, err)
		}
	}()
}

func (e *Engine) updateGaugesLocked() {
	if e.metrics == nil {
		return
	}
	humanActive := 0
	for _, s := range e.sessions {
		if s.Status == session.StatusHumanActive {
			humanActive++
		}
	}
	pending := 0
	for _, req := range e.requests {
		if req.Assignable() {
			pending++
		}
	}
	available, _ := e.operators.Counts()
	e.metrics.ActiveSessions.Set(float64(len(e.sessions)))
	e.metrics.HumanActiveSessions.Set(float64(humanActive))
	e.metrics.PendingRequests.Set(float64(pending))
	e.metrics.AvailableOperators.Set(float64(available))
}
