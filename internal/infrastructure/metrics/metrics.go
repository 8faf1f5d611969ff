package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jelly"

// Metrics exposes Prometheus collectors that report check activity.
type Metrics struct {
	checks        *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	checkErrors   *prometheus.CounterVec
	anchors       *prometheus.CounterVec
	compileCache  *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNewMetrics creates the collectors and registers them with reg. A
// collector that is already registered under the same name is reused; any
// other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		checks: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "runs_total",
			Help:      "Checks run, by operation and result.",
		}, []string{"operation", "result"})),
		checkDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "duration_seconds",
			Help:      "Time spent in a check, by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"})),
		checkErrors: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "errors_total",
			Help:      "Rejected graphs, by error kind.",
		}, []string{"kind"})),
		anchors: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "anchors_total",
			Help:      "Payloads moved out of checked graphs, by anchor kind.",
		}, []string{"kind"})),
		compileCache: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "cache_requests_total",
			Help:      "Compile cache lookups, by result.",
		}, []string{"result"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveCheck records one finished check. result is "ok" or "rejected" for
// checks that ran, "error" for failures outside the graph.
func (m *Metrics) ObserveCheck(operation, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(operation, result).Inc()
	m.checkDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncCheckError(kind string) {
	if m == nil {
		return
	}
	m.checkErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddAnchors(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.anchors.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.compileCache.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncCacheMiss() {
	if m == nil {
		return
	}
	m.compileCache.WithLabelValues("miss").Inc()
}
