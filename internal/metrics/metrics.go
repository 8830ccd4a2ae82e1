package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EmailsSent       prometheus.Counter
	EmailsFailed     prometheus.Counter
	ClaimsLost       prometheus.Counter
	DispatchRuns     prometheus.Counter
	DispatchDuration prometheus.Histogram
	SendLatency      prometheus.Histogram
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_emails_sent_total",
			Help: "Total number of successfully delivered notification emails.",
		}),
		EmailsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_emails_failed_total",
			Help: "Total number of send attempts that were rescheduled or errored.",
		}),
		ClaimsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_claims_lost_total",
			Help: "Rows skipped because a concurrent invocation claimed them first.",
		}),
		DispatchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Total number of dispatch invocations, including gate-closed no-ops.",
		}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_run_seconds",
			Help:    "Wall-clock duration of one full dispatch invocation.",
			Buckets: prometheus.DefBuckets,
		}),
		SendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "email_send_seconds",
			Help:    "Per-item latency from claim to provider ack.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.EmailsSent,
		m.EmailsFailed,
		m.ClaimsLost,
		m.DispatchRuns,
		m.DispatchDuration,
		m.SendLatency,
	)

	return m
}

// DispatcherHooks returns the metric callback functions expected by
// dispatcher.MetricHooks. Centralises the prometheus observation calls so
// the dispatcher stays import-free.
func (m *Metrics) DispatcherHooks() (
	onSent func(latency time.Duration),
	onFailed func(),
	onClaimLost func(),
) {
	onSent = func(latency time.Duration) {
		m.EmailsSent.Inc()
		m.SendLatency.Observe(latency.Seconds())
	}
	onFailed = func() {
		m.EmailsFailed.Inc()
	}
	onClaimLost = func() {
		m.ClaimsLost.Inc()
	}
	return
}

// ObserveRun records one completed dispatch invocation.
func (m *Metrics) ObserveRun(elapsed time.Duration) {
	m.DispatchRuns.Inc()
	m.DispatchDuration.Observe(elapsed.Seconds())
}
