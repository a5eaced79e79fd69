package delivery

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the delivery engine's prometheus collectors.
type Metrics struct {
	outcomes     *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	sendAttempts prometheus.Counter
}

// NewMetrics creates the delivery collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dailypages_delivery_outcomes_total",
				Help: "Subscriptions processed by delivery passes, by outcome.",
			},
			[]string{"outcome"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dailypages_delivery_pass_duration_seconds",
				Help:    "Wall time of delivery passes.",
				Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900, 1800},
			},
			[]string{"trigger"},
		),
		sendAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailypages_delivery_send_attempts_total",
			Help: "Calls made to the mail sender, retries included.",
		}),
	}

	for _, c := range []prometheus.Collector{m.outcomes, m.passDuration, m.sendAttempts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	for _, o := range Outcomes {
		m.outcomes.WithLabelValues(string(o))
	}
	return m, nil
}
