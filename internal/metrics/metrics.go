package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	PrnsFetched      prometheus.Counter
	PrnsSaved        prometheus.Counter
	PrnsDeadLettered prometheus.Counter
	PrnsRequeued     prometheus.Counter
	PushCycles       *prometheus.CounterVec
	ProducersPushed  prometheus.Counter
	QueueDepthWork   prometheus.Gauge
	QueueDepthRetry  prometheus.Gauge
	QueueDepthError  prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PrnsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prns_fetched_total",
			Help: "Total number of issued PRNs fetched from NPWD.",
		}),
		PrnsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prns_saved_total",
			Help: "Total number of PRNs saved to the backend.",
		}),
		PrnsDeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prns_dead_lettered_total",
			Help: "Total number of PRN messages moved to the error lane.",
		}),
		PrnsRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prns_requeued_total",
			Help: "Total number of PRN messages requeued after a transient failure.",
		}),
		PushCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "producer_push_cycles_total",
			Help: "Producer push cycles by outcome.",
		}, []string{"outcome"}),
		ProducersPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "producers_pushed_total",
			Help: "Total number of producer records pushed to NPWD.",
		}),
		QueueDepthWork: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_work",
			Help: "Current number of visible messages in the work lane.",
		}),
		QueueDepthRetry: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_retry",
			Help: "Current number of visible messages in the retry lane.",
		}),
		QueueDepthError: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_error",
			Help: "Current number of messages in the error lane.",
		}),
	}

	reg.MustRegister(
		m.PrnsFetched,
		m.PrnsSaved,
		m.PrnsDeadLettered,
		m.PrnsRequeued,
		m.PushCycles,
		m.ProducersPushed,
		m.QueueDepthWork,
		m.QueueDepthRetry,
		m.QueueDepthError,
	)

	return m
}

// DrainHooks returns the metric callback functions expected by
// worker.DrainHooks. Centralises the prometheus observation calls so the
// drain worker stays metrics-agnostic.
func (m *Metrics) DrainHooks() (onSaved, onDeadLettered, onRequeued func()) {
	return m.PrnsSaved.Inc, m.PrnsDeadLettered.Inc, m.PrnsRequeued.Inc
}
