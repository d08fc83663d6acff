package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qrhub"

// Metrics records mapping lifecycle and sweep outcomes.
type Metrics struct {
	creates       *prometheus.CounterVec
	resolves      *prometheus.CounterVec
	expired       prometheus.Gauge
	expiringSoon  prometheus.Gauge
	sweepFailures prometheus.Counter
	lastSweep     prometheus.Gauge
	now           func() time.Time
}

// NewMetrics registers the mapping collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		creates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mapping_creates_total",
			Help:      "Mapping create attempts by outcome.",
		}, []string{"outcome"}),
		resolves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mapping_resolves_total",
			Help:      "Mapping resolutions by outcome.",
		}, []string{"outcome"}),
		expired: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_expired_mappings",
			Help:      "Expired mappings found by the last sweep.",
		}),
		expiringSoon: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_expiring_soon_mappings",
			Help:      "Mappings expiring within the window at the last sweep.",
		}),
		sweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Sweeps aborted by a storage error.",
		}),
		lastSweep: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_last_success_timestamp_seconds",
			Help:      "Unix time of the last completed sweep.",
		}),
		now: time.Now,
	}
}

func (m *Metrics) CreateOutcome(outcome string) {
	m.creates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ResolveOutcome(outcome string) {
	m.resolves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SweepCompleted(expired, expiringSoon int) {
	m.expired.Set(float64(expired))
	m.expiringSoon.Set(float64(expiringSoon))
	m.lastSweep.Set(float64(m.now().Unix()))
}

func (m *Metrics) SweepFailed() {
	m.sweepFailures.Inc()
}
