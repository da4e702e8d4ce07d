package container

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records bean creation in Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	created    *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	singletons prometheus.Gauge
}

// NewMetrics creates the container collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beans",
			Subsystem: "container",
			Name:      "created_total",
			Help:      "Beans created, by scope.",
		}, []string{"scope"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beans",
			Subsystem: "container",
			Name:      "creation_failures_total",
			Help:      "Failed bean creations, by lifecycle phase.",
		}, []string{"phase"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "beans",
			Subsystem: "container",
			Name:      "creation_seconds",
			Help:      "Time spent creating a bean including its dependencies.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"scope"}),
		singletons: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beans",
			Subsystem: "container",
			Name:      "singletons",
			Help:      "Published singletons currently cached.",
		}),
	}

	for _, c := range []prometheus.Collector{m.created, m.failures, m.duration, m.singletons} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register container metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeCreated(scope Scope, took time.Duration) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(string(scope)).Inc()
	m.duration.WithLabelValues(string(scope)).Observe(took.Seconds())
}

func (m *Metrics) observeFailure(err error) {
	if m == nil {
		return
	}
	phase := "unknown"
	if root := rootBeanError(err); root != nil {
		if root.counted {
			return
		}
		root.counted = true
		phase = root.Op
	}
	m.failures.WithLabelValues(phase).Inc()
}

func (m *Metrics) singletonPublished() {
	if m != nil {
		m.singletons.Inc()
	}
}

func (m *Metrics) singletonDestroyed() {
	if m != nil {
		m.singletons.Dec()
	}
}
