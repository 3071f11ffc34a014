package engine

import (
	"math"
	"time"

	"github.com/mbellotti/handoff/internal/session"
)

// Stats is the dashboard aggregate over current in-memory state.
type Stats struct {
	TotalSessions          int `json:"total_sessions"`
	HumanActiveSessions    int `json:"human_active_sessions"`
	PendingRequests        int `json:"pending_requests"`
	AvailableOperators     int `json:"available_operators"`
	TotalOperators         int `json:"total_operators"`
	AvgInterventionSeconds int `json:"avg_intervention_seconds"`
}

// Stats aggregates session, queue, and operator counts plus the rounded
// mean seconds from escalation detection to operator handoff. The mean is
// zero when no request has completed a handoff yet.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Stats{TotalSessions: len(e.sessions)}
	for _, s := range e.sessions {
		if s.Status == session.StatusHumanActive {
			st.HumanActiveSessions++
		}
	}

	var total time.Duration
	transferred := 0
	for _, req := range e.requests {
		if req.Assignable() {
			st.PendingRequests++
		}
		if req.TransferTime != nil {
			total += req.TransferTime.Sub(req.Timestamp)
			transferred++
		}
	}
	if transferred > 0 {
		mean := total.Seconds() / float64(transferred)
		st.AvgInterventionSeconds = int(math.Round(mean))
	}

	st.AvailableOperators, st.TotalOperators = e.operators.Counts()
	return st
}
