// Package fetchmetrics provides Prometheus instrumentation for the
// pipelined peer-fetch engine.
package fetchmetrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the Prometheus namespace for every metric in this package.
const Namespace = "peerfetch"

// Metrics holds every Prometheus collector the engine reports through.
// Every method is nil-receiver-safe: constructing an Engine with a nil
// *Metrics must never panic, it simply disables instrumentation.
type Metrics struct {
	queueDepth  *prometheus.GaugeVec
	inFlight    prometheus.Gauge
	dispatched  prometheus.Counter
	timeouts    prometheus.Counter
	peerBans    prometheus.Counter
	reorgs      prometheus.Counter
	reenqueues  *prometheus.CounterVec
	storeErrors prometheus.Counter
	storeLat    prometheus.Histogram
	finished    prometheus.Counter
}

// New creates and registers every metric with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "queue_depth",
			Help:      "Number of jobs currently waiting in a queue, by queue name",
		}, []string{"queue"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "jobs_in_flight",
			Help:      "Number of jobs currently dispatched to a peer and awaiting reply",
		}),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "jobs_dispatched_total",
			Help:      "Total number of request dispatches to peers",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "job_timeouts_total",
			Help:      "Total number of jobs that expired before a reply arrived",
		}),
		peerBans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "peer_bans_total",
			Help:      "Total number of peers banned by the failure controller",
		}),
		reorgs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reorgs_total",
			Help:      "Total number of reorg hints observed from the storage sink",
		}),
		reenqueues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "job_reenqueues_total",
			Help:      "Total number of job re-enqueues by reason",
		}, []string{"reason"}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "store_errors_total",
			Help:      "Total number of irrecoverable storage errors",
		}),
		storeLat: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "store_duration_seconds",
			Help:      "Time taken by the Store hook per call",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		finished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of jobs whose Store call returned successfully",
		}),
	}

	err := errors.Join(
		reg.Register(m.queueDepth),
		reg.Register(m.inFlight),
		reg.Register(m.dispatched),
		reg.Register(m.timeouts),
		reg.Register(m.peerBans),
		reg.Register(m.reorgs),
		reg.Register(m.reenqueues),
		reg.Register(m.storeErrors),
		reg.Register(m.storeLat),
		reg.Register(m.finished),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) SetQueueDepth(queue string, n int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(n))
}

func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.inFlight.Set(float64(n))
}

func (m *Metrics) IncDispatched() {
	if m == nil {
		return
	}
	m.dispatched.Inc()
}

func (m *Metrics) IncTimeout() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

func (m *Metrics) IncPeerBan() {
	if m == nil {
		return
	}
	m.peerBans.Inc()
}

func (m *Metrics) IncReorg() {
	if m == nil {
		return
	}
	m.reorgs.Inc()
}

func (m *Metrics) IncReenqueue(reason string) {
	if m == nil {
		return
	}
	m.reenqueues.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncStoreError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}

func (m *Metrics) ObserveStoreDuration(seconds float64) {
	if m == nil {
		return
	}
	m.storeLat.Observe(seconds)
}

func (m *Metrics) IncFinished(n int) {
	if m == nil {
		return
	}
	m.finished.Add(float64(n))
}
