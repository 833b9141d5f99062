// Package metrics exposes Prometheus counters and histograms for
// reconciliation runs and SLA sweeps, registered against a private
// registry so tests can construct isolated instances.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the engine and scheduler report against.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	TradesMatched    *prometheus.CounterVec
	BreaksIdentified *prometheus.CounterVec
	SweepEscalations prometheus.Counter
}

// New builds a Metrics instance and registers every collector against a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trade_recon",
			Name:      "runs_total",
			Help:      "Reconciliation runs processed, labeled by outcome status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trade_recon",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a reconciliation run.",
			Buckets:   prometheus.DefBuckets,
		}),
		TradesMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trade_recon",
			Name:      "trades_matched_total",
			Help:      "Trades matched, labeled by confidence level.",
		}, []string{"confidence"}),
		BreaksIdentified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trade_recon",
			Name:      "breaks_identified_total",
			Help:      "Breaks identified, labeled by severity.",
		}, []string{"severity"}),
		SweepEscalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trade_recon",
			Name:      "sweep_escalations_total",
			Help:      "Breaks escalated by SLA sweeps.",
		}),
	}

	reg.MustRegister(m.RunsTotal, m.RunDuration, m.TradesMatched, m.BreaksIdentified, m.SweepEscalations)
	return m
}

// ObserveRun records one completed or failed reconciliation run.
func (m *Metrics) ObserveRun(status string, duration time.Duration, autoMatched, manualReview int, breaksBySeverity map[string]int) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration.Seconds())
	if autoMatched > 0 {
		m.TradesMatched.WithLabelValues("auto").Add(float64(autoMatched))
	}
	if manualReview > 0 {
		m.TradesMatched.WithLabelValues("review").Add(float64(manualReview))
	}
	for severity, count := range breaksBySeverity {
		m.BreaksIdentified.WithLabelValues(severity).Add(float64(count))
	}
}

// ObserveSweepEscalations increments the sweep escalation counter by n.
func (m *Metrics) ObserveSweepEscalations(n int) {
	if n <= 0 {
		return
	}
	m.SweepEscalations.Add(float64(n))
}
