package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docconv"

// Conversion outcomes recorded by ObserveConversion
const (
	OutcomeSuccess       = "success"
	OutcomeFailed        = "failed"
	OutcomeTimeout       = "timeout"
	OutcomeOutputMissing = "output_missing"
	OutcomeRejected      = "rejected"
)

// Metrics holds the Prometheus collectors for the conversion service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	conversions     *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	activeDirs      *prometheus.GaugeVec
	cleanupFailures *prometheus.CounterVec
	sweptDirs       *prometheus.CounterVec
	admissionWaits  prometheus.Counter
}

// New registers all collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversion requests by engine and outcome.",
		}, []string{"engine", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Wall-clock time spent in the external engine.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 240, 300},
		}, []string{"engine"}),
		activeDirs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scoped_dirs_active",
			Help:      "Scoped directories (workspaces, engine profiles) currently on disk.",
		}, []string{"kind"}),
		cleanupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Scoped directories that could not be removed.",
		}, []string{"kind"}),
		sweptDirs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_dirs_total",
			Help:      "Stale scoped directories removed by the sweeper.",
		}, []string{"kind"}),
		admissionWaits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_rejections_total",
			Help:      "Requests abandoned while waiting for a conversion slot.",
		}),
	}
}

// ObserveConversion records one finished conversion attempt
func (m *Metrics) ObserveConversion(engine, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(engine, outcome).Inc()
	if outcome != OutcomeRejected {
		m.duration.WithLabelValues(engine).Observe(elapsed.Seconds())
	}
}

// DirCreated increments the active gauge for kind
func (m *Metrics) DirCreated(kind string) {
	if m == nil {
		return
	}
	m.activeDirs.WithLabelValues(kind).Inc()
}

// DirRemoved decrements the active gauge for kind
func (m *Metrics) DirRemoved(kind string) {
	if m == nil {
		return
	}
	m.activeDirs.WithLabelValues(kind).Dec()
}

// CleanupFailed counts a directory that survived removal
func (m *Metrics) CleanupFailed(kind string) {
	if m == nil {
		return
	}
	m.cleanupFailures.WithLabelValues(kind).Inc()
}

// Swept counts stale directories removed by a sweep
func (m *Metrics) Swept(kind string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.sweptDirs.WithLabelValues(kind).Add(float64(n))
}

// AdmissionRejected counts a request that gave up waiting for a slot
func (m *Metrics) AdmissionRejected() {
	if m == nil {
		return
	}
	m.admissionWaits.Inc()
}
