package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the escalation engine.
type Metrics struct {
	ActiveSessions      prometheus.Gauge
	HumanActiveSessions prometheus.Gauge
	PendingRequests     prometheus.Gauge
	AvailableOperators  prometheus.Gauge
	TriggersFired       *prometheus.CounterVec
	Transfers           *prometheus.CounterVec
	QueueRejections     prometheus.Counter
	AssignmentWait      prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of tracked conversations.",
		}),
		HumanActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "human_active_sessions",
			Help:      "Conversations currently handled by a human operator.",
		}),
		PendingRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_intervention_requests",
			Help:      "Intervention requests waiting for an operator.",
		}),
		AvailableOperators: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "available_operators",
			Help:      "Operators currently free to take a conversation.",
		}),
		TriggersFired: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_fired_total",
			Help:      "Escalation triggers by type.",
		}, []string{"type"}),
		Transfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Conversation transfers by direction.",
		}, []string{"direction"}),
		QueueRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_rejections_total",
			Help:      "Escalations refused because the intervention queue was full.",
		}),
		AssignmentWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assignment_wait_seconds",
			Help:      "Time from escalation detection to operator handoff in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

func (m *Metrics) ObserveAssignmentWait(d time.Duration) {
	m.AssignmentWait.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
