package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics exposes counters/histograms for the scam triage engine.
type EngineMetrics struct {
	evaluations  *prometheus.CounterVec
	latency      prometheus.Histogram
	escalations  *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec
	droppedWrite prometheus.Counter
	learned      *prometheus.CounterVec
	alerts       *prometheus.CounterVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scamguard",
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Messages evaluated, by resulting risk level",
		}, []string{"level"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scamguard",
			Subsystem: "engine",
			Name:      "evaluation_seconds",
			Help:      "Time spent evaluating one message",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scamguard",
			Subsystem: "engine",
			Name:      "escalations_total",
			Help:      "Critical signals that escalated a message to DANGER",
		}, []string{"signal"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scamguard",
			Subsystem: "state",
			Name:      "store_errors_total",
			Help:      "Failed state store operations",
		}, []string{"op"}),
		droppedWrite: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scamguard",
			Subsystem: "state",
			Name:      "dropped_writes_total",
			Help:      "State writes dropped because the write queue was full",
		}),
		learned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scamguard",
			Subsystem: "learning",
			Name:      "items_total",
			Help:      "New learned keywords and phrases",
		}, []string{"kind"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scamguard",
			Subsystem: "guardian",
			Name:      "alerts_total",
			Help:      "Guardian alerts, by kind and delivery status",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.evaluations, m.latency, m.escalations, m.storeErrors, m.droppedWrite, m.learned, m.alerts)
	return m
}

func (m *EngineMetrics) ObserveEvaluation(level string, d time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(level).Inc()
	m.latency.Observe(d.Seconds())
}

func (m *EngineMetrics) ObserveEscalation(signal string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(signal).Inc()
}

func (m *EngineMetrics) ObserveStoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *EngineMetrics) ObserveDroppedWrite() {
	if m == nil {
		return
	}
	m.droppedWrite.Inc()
}

func (m *EngineMetrics) ObserveLearned(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.learned.WithLabelValues(kind).Add(float64(n))
}

func (m *EngineMetrics) ObserveAlert(kind, status string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(kind, status).Inc()
}
