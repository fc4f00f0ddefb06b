package identity

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes operation counters. A nil *Metrics is valid and records
// nothing, so instrumentation stays optional.
type Metrics struct {
	operations *prometheus.CounterVec
	rateHits   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "operations_total",
			Help:      "Authentication operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		rateHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "rate_limited_total",
			Help:      "Requests denied by the rate limiter.",
		}),
	}

	if reg != nil {
		if err := reg.Register(m.operations); err != nil {
			return nil, err
		}
		if err := reg.Register(m.rateHits); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) rateLimited() {
	if m == nil {
		return
	}
	m.rateHits.Inc()
}
