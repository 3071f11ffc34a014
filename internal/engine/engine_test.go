package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbellotti/handoff/internal/intervention"
	"github.com/mbellotti/handoff/internal/operator"
	"github.com/mbellotti/handoff/internal/session"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(opts Options) (*Engine, *fakeClock) {
	e := New(operator.NewRegistry(), opts)
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	e.now = clk.Now
	return e, clk
}

func mustRegister(t *testing.T, e *Engine, id string) {
	t.Helper()
	if _, err := e.RegisterSession(id, "user-"+id, nil); err != nil {
		t.Fatalf("RegisterSession(%q) error = %v", id, err)
	}
}

func TestRegisterSessionConflict(t *testing.T) {
	e, _ := newTestEngine(Options{})
	mustRegister(t, e, "c1")
	if _, err := e.RegisterSession("c1", "u2", nil); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("duplicate register error = %v, want ErrSessionExists", err)
	}
}

func TestRecordMessageUnknownSession(t *testing.T) {
	e, _ := newTestEngine(Options{})
	if e.RecordMessage("nope", "hello", session.SenderUser, nil) {
		t.Fatalf("RecordMessage on unknown session should return false")
	}
}

func TestMessageCountTracksCalls(t *testing.T) {
	e, _ := newTestEngine(Options{})
	mustRegister(t, e, "c1")

	e.RecordMessage("c1", "hello there", session.SenderUser, nil)
	e.RecordMessage("c1", "Hi! How can I help?", session.SenderAI, nil)
	e.RecordMessage("c1", "what are your opening hours", session.SenderUser, nil)

	snap, ok := e.SessionStatus("c1")
	if !ok {
		t.Fatalf("SessionStatus() not found")
	}
	if snap.MessageCount != 3 {
		t.Fatalf("MessageCount = %d, want 3", snap.MessageCount)
	}
	if snap.Status != session.StatusAIActive {
		t.Fatalf("Status = %q, want ai_active", snap.Status)
	}
}

func TestLowConfidenceEnqueuesExactlyOnce(t *testing.T) {
	e, _ := newTestEngine(Options{})
	mustRegister(t, e, "c1")

	meta := map[string]any{"confidence": 0.3}
	e.RecordMessage("c1", "what is the meaning of clause 7", session.SenderUser, meta)

	req, ok := e.Request("c1")
	if !ok {
		t.Fatalf("expected an intervention request")
	}
	if req.PrimaryTrigger.Type != "low_confidence" {
		t.Fatalf("primary trigger = %q, want low_confidence", req.PrimaryTrigger.Type)
	}
	if req.Status != intervention.StatusQueued {
		t.Fatalf("request status = %q, want queued (no operators)", req.Status)
	}

	// A second low-confidence message must not create a second request.
	e.RecordMessage("c1", "what is the meaning of clause 8", session.SenderUser, meta)
	again, ok := e.Request("c1")
	if !ok || again.ID != req.ID {
		t.Fatalf("second message created a new request: %+v", again)
	}
}

func TestFrustrationEndToEnd(t *testing.T) {
	e, _ := newTestEngine(Options{})
	op := e.Operators().Add("dana", []string{"general", "de-escalation"})
	mustRegister(t, e, "s1")

	if !e.RecordMessage("s1", "I'm really frustrated with this service", session.SenderUser, nil) {
		t.Fatalf("RecordMessage failed")
	}

	snap, _ := e.SessionStatus("s1")
	if snap.Status != session.StatusHumanActive {
		t.Fatalf("Status = %q, want human_active", snap.Status)
	}
	if snap.OperatorID != op.ID {
		t.Fatalf("OperatorID = %q, want %q", snap.OperatorID, op.ID)
	}
	if len(snap.InterventionHistory) != 1 || snap.InterventionHistory[0].Type != session.TransferToHuman {
		t.Fatalf("intervention history = %+v, want one transfer_to_human", snap.InterventionHistory)
	}
	// User message plus the canned system handoff message.
	if snap.MessageCount != 2 {
		t.Fatalf("MessageCount = %d, want 2", snap.MessageCount)
	}

	req, ok := e.Request("s1")
	if !ok || req.Status != intervention.StatusActive || req.TransferTime == nil {
		t.Fatalf("request = %+v, want active with transfer time", req)
	}
	if req.AssignedOperator != op.ID {
		t.Fatalf("AssignedOperator = %q, want %q", req.AssignedOperator, op.ID)
	}
}

func TestTransferToHumanMutatesOnce(t *testing.T) {
	e, _ := newTestEngine(Options{})
	op := e.Operators().Add("dana", []string{"general"})
	mustRegister(t, e, "s1")
	e.RecordMessage("s1", "I want to speak to a real person", session.SenderUser, nil)

	snap, _ := e.SessionStatus("s1")
	if snap.Status != session.StatusHumanActive {
		t.Fatalf("Status = %q, want human_active", snap.Status)
	}
	if e.TransferToHuman("s1", op.ID) {
		t.Fatalf("second TransferToHuman should be rejected")
	}
	again, _ := e.SessionStatus("s1")
	if len(again.InterventionHistory) != 1 {
		t.Fatalf("second call mutated history: %+v", again.InterventionHistory)
	}
}

func TestTransferToAIReleasesOperator(t *testing.T) {
	e, _ := newTestEngine(Options{})
	op := e.Operators().Add("dana", []string{"general"})
	mustRegister(t, e, "s1")
	e.RecordMessage("s1", "real person please", session.SenderUser, nil)

	if !e.TransferToAI("s1", "issue resolved") {
		t.Fatalf("TransferToAI failed")
	}
	snap, _ := e.SessionStatus("s1")
	if snap.Status != session.StatusAIResumed || snap.OperatorID != "" {
		t.Fatalf("after resume: status=%q operator=%q", snap.Status, snap.OperatorID)
	}
	last := snap.InterventionHistory[len(snap.InterventionHistory)-1]
	if last.Type != session.TransferToAI || last.PreviousOperator != op.ID {
		t.Fatalf("last history record = %+v", last)
	}

	got, _ := e.Operators().Get(op.ID)
	if got.Status != operator.StatusAvailable {
		t.Fatalf("operator status = %q, want available", got.Status)
	}

	if e.TransferToAI("s1", "again") {
		t.Fatalf("TransferToAI on a non-human_active session should fail")
	}
}

func TestQueuedRequestRescuedBySweep(t *testing.T) {
	e, _ := newTestEngine(Options{})
	mustRegister(t, e, "s1")
	e.RecordMessage("s1", "I need a supervisor", session.SenderUser, nil)

	snap, _ := e.SessionStatus("s1")
	if snap.Status != session.StatusHumanPending {
		t.Fatalf("Status = %q, want human_pending while nobody is free", snap.Status)
	}

	e.Operators().Add("dana", []string{"general"})
	if n := e.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	snap, _ = e.SessionStatus("s1")
	if snap.Status != session.StatusHumanActive {
		t.Fatalf("Status after sweep = %q, want human_active", snap.Status)
	}
}

func TestSweepAssignsByPriority(t *testing.T) {
	e, _ := newTestEngine(Options{})
	mustRegister(t, e, "medium")
	mustRegister(t, e, "critical")

	e.RecordMessage("medium", "question about zoning rules", session.SenderUser, nil)
	e.RecordMessage("critical", "let me talk to a human agent now", session.SenderUser, nil)

	e.Operators().Add("dana", []string{"general"})
	if n := e.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}

	crit, _ := e.SessionStatus("critical")
	med, _ := e.SessionStatus("medium")
	if crit.Status != session.StatusHumanActive {
		t.Fatalf("critical session status = %q, want human_active", crit.Status)
	}
	if med.Status != session.StatusHumanPending {
		t.Fatalf("medium session status = %q, want still human_pending", med.Status)
	}
}

func TestReleasedOperatorPicksUpNextRequest(t *testing.T) {
	e, _ := newTestEngine(Options{})
	op := e.Operators().Add("dana", []string{"general", "de-escalation"})

	mustRegister(t, e, "a")
	mustRegister(t, e, "b")
	e.RecordMessage("a", "this is so frustrating", session.SenderUser, nil)
	e.RecordMessage("b", "this doesn't work", session.SenderUser, nil)

	a, _ := e.SessionStatus("a")
	b, _ := e.SessionStatus("b")
	if a.Status != session.StatusHumanActive || b.Status != session.StatusHumanPending {
		t.Fatalf("initial states: a=%q b=%q", a.Status, b.Status)
	}

	e.TransferToAI("a", "done")
	if n := e.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	b, _ = e.SessionStatus("b")
	if b.Status != session.StatusHumanActive || b.OperatorID != op.ID {
		t.Fatalf("b after sweep: status=%q operator=%q", b.Status, b.OperatorID)
	}
}

func TestResumedSessionCanEscalateAgain(t *testing.T) {
	e, _ := newTestEngine(Options{})
	e.Operators().Add("dana", []string{"general", "de-escalation"})
	mustRegister(t, e, "s1")

	e.RecordMessage("s1", "I'm frustrated", session.SenderUser, nil)
	e.TransferToAI("s1", "resolved")
	first, _ := e.Request("s1")
	if first != nil {
		t.Fatalf("completed request should not be outstanding: %+v", first)
	}

	e.RecordMessage("s1", "still not helping at all", session.SenderUser, nil)
	snap, _ := e.SessionStatus("s1")
	if snap.Status != session.StatusHumanActive {
		t.Fatalf("resumed session status = %q, want human_active after new trigger", snap.Status)
	}
}

func TestQueueLimitRejectsNewEscalations(t *testing.T) {
	e, _ := newTestEngine(Options{QueueLimit: 1})
	mustRegister(t, e, "a")
	mustRegister(t, e, "b")

	e.RecordMessage("a", "supervisor please", session.SenderUser, nil)
	e.RecordMessage("b", "supervisor please", session.SenderUser, nil)

	if _, ok := e.Request("a"); !ok {
		t.Fatalf("first escalation should hold the queue slot")
	}
	if req, ok := e.Request("b"); ok {
		t.Fatalf("second escalation should be refused at the limit, got %+v", req)
	}
	snap, _ := e.SessionStatus("b")
	if snap.Status != session.StatusAIActive {
		t.Fatalf("rejected session status = %q, want unchanged ai_active", snap.Status)
	}
}

func TestCleanupOldSessions(t *testing.T) {
	e, clk := newTestEngine(Options{})
	op := e.Operators().Add("dana", []string{"general"})

	mustRegister(t, e, "stale")
	e.RecordMessage("stale", "real person please", session.SenderUser, nil)

	clk.Advance(2 * time.Hour)
	mustRegister(t, e, "fresh")
	e.RecordMessage("fresh", "hello", session.SenderUser, nil)

	clk.Advance(23 * time.Hour)
	// stale is now 25h idle, fresh 23h idle.
	if n := e.CleanupOldSessions(24 * time.Hour); n != 1 {
		t.Fatalf("CleanupOldSessions() = %d, want 1", n)
	}
	if _, ok := e.SessionStatus("stale"); ok {
		t.Fatalf("stale session should be gone")
	}
	if _, ok := e.SessionStatus("fresh"); !ok {
		t.Fatalf("fresh session should be retained")
	}

	got, _ := e.Operators().Get(op.ID)
	if got.Status != operator.StatusAvailable {
		t.Fatalf("operator attached to evicted session should be released, got %q", got.Status)
	}
}

func TestStatsAggregation(t *testing.T) {
	e, clk := newTestEngine(Options{})
	mustRegister(t, e, "s1")
	e.RecordMessage("s1", "I'm frustrated", session.SenderUser, nil)

	st := e.Stats()
	if st.TotalSessions != 1 || st.PendingRequests != 1 || st.AvgInterventionSeconds != 0 {
		t.Fatalf("stats before handoff = %+v", st)
	}

	clk.Advance(30 * time.Second)
	e.Operators().Add("dana", []string{"de-escalation"})
	if n := e.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}

	st = e.Stats()
	if st.HumanActiveSessions != 1 {
		t.Fatalf("HumanActiveSessions = %d, want 1", st.HumanActiveSessions)
	}
	if st.PendingRequests != 0 {
		t.Fatalf("PendingRequests = %d, want 0", st.PendingRequests)
	}
	if st.AvailableOperators != 0 || st.TotalOperators != 1 {
		t.Fatalf("operators = %d/%d, want 0/1", st.AvailableOperators, st.TotalOperators)
	}
	if st.AvgInterventionSeconds != 30 {
		t.Fatalf("AvgInterventionSeconds = %d, want 30", st.AvgInterventionSeconds)
	}
}

func TestSchedulerLoopAssignsQueuedRequests(t *testing.T) {
	e, _ := newTestEngine(Options{})
	mustRegister(t, e, "s1")
	e.RecordMessage("s1", "supervisor please", session.SenderUser, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.StartScheduler(ctx, 10*time.Millisecond, time.Hour, 24*time.Hour)

	e.Operators().Add("dana", []string{"general"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap, _ := e.SessionStatus("s1")
		if snap.Status == session.StatusHumanActive {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("scheduler never assigned the queued request")
}
