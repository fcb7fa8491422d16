package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OrderMetrics counts order lifecycle outcomes. A nil *OrderMetrics is a
// valid no-op receiver so tests and DB-less wiring can skip registration.
type OrderMetrics struct {
	Created             prometheus.Counter
	Cancelled           prometheus.Counter
	Completed           prometheus.Counter
	ReservationFailures prometheus.Counter
}

func NewOrderMetrics() *OrderMetrics {
	m := &OrderMetrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created successfully.",
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "orders",
			Name:      "cancelled_total",
			Help:      "Orders cancelled with stock restored.",
		}),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "orders",
			Name:      "completed_total",
			Help:      "Orders confirmed as received.",
		}),
		ReservationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "orders",
			Name:      "stock_reservation_failures_total",
			Help:      "Checkouts rejected because stock could not be reserved.",
		}),
	}

	prometheus.MustRegister(m.Created, m.Cancelled, m.Completed, m.ReservationFailures)
	return m
}

func (m *OrderMetrics) IncCreated() {
	if m != nil {
		m.Created.Inc()
	}
}

func (m *OrderMetrics) IncCancelled() {
	if m != nil {
		m.Cancelled.Inc()
	}
}

func (m *OrderMetrics) IncCompleted() {
	if m != nil {
		m.Completed.Inc()
	}
}

func (m *OrderMetrics) IncReservationFailure() {
	if m != nil {
		m.ReservationFailures.Inc()
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
