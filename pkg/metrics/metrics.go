package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scheduling metrics
	BookingsTotal      prometheus.Counter
	SlotConflictsTotal prometheus.Counter
	TransitionsTotal   *prometheus.CounterVec

	// Notification worker metrics
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
}

// New creates and registers all application metrics against reg. Tests
// pass a fresh registry to avoid duplicate registration.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Total number of appointments booked",
		}),
		SlotConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Total number of bookings rejected because the slot was taken",
		}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of appointment lifecycle transitions",
		}, []string{"action", "to_status"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of notification emails sent",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of notification emails that failed to send",
		}),
	}

	reg.MustRegister(
		m.BookingsTotal,
		m.SlotConflictsTotal,
		m.TransitionsTotal,
		m.NotificationsSent,
		m.NotificationsFailed,
	)
	return m
}
