package querycache

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts engine decisions. A nil *Metrics records nothing.
type Metrics struct {
	hits         *prometheus.CounterVec
	misses       *prometheus.CounterVec
	executions   *prometheus.CounterVec
	shared       *prometheus.CounterVec
	invalidated  *prometheus.CounterVec
	cleanupFails prometheus.Counter
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "querycache",
			Name:      "hits_total",
			Help:      "Calls served from the cache store.",
		}, []string{"entity"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "querycache",
			Name:      "misses_total",
			Help:      "Cache reads that found no entry.",
		}, []string{"entity"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "querycache",
			Name:      "executions_total",
			Help:      "Underlying operations executed by the engine.",
		}, []string{"entity", "operation"}),
		shared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "querycache",
			Name:      "deduplicated_total",
			Help:      "Calls whose result was shared with concurrent identical calls.",
		}, []string{"entity"}),
		invalidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "querycache",
			Name:      "invalidated_keys_total",
			Help:      "Keys deleted by uncache directives or automatic invalidation.",
		}, []string{"reason"}),
		cleanupFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "querycache",
			Name:      "cleanup_errors_total",
			Help:      "Store errors swallowed during invalidation.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.hits, m.misses, m.executions, m.shared, m.invalidated, m.cleanupFails} {
			if err := reg.Register(c); err != nil {
				return nil, errors.Wrap(err, "register querycache metrics")
			}
		}
	}
	return m, nil
}

func (m *Metrics) hit(entity string) {
	if m != nil {
		m.hits.WithLabelValues(entity).Inc()
	}
}

func (m *Metrics) miss(entity string) {
	if m != nil {
		m.misses.WithLabelValues(entity).Inc()
	}
}

func (m *Metrics) executed(entity, operation string) {
	if m != nil {
		m.executions.WithLabelValues(entity, operation).Inc()
	}
}

func (m *Metrics) deduplicated(entity string) {
	if m != nil {
		m.shared.WithLabelValues(entity).Inc()
	}
}

func (m *Metrics) deleted(reason string, n int) {
	if m != nil && n > 0 {
		m.invalidated.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) cleanupFailed() {
	if m != nil {
		m.cleanupFails.Inc()
	}
}
