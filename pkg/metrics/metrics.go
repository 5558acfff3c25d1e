package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transit"

var (
	BookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "booking",
		Name:      "created_total",
		Help:      "Bookings created in pending state, by trip kind.",
	}, []string{"trip_kind"})

	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "booking",
		Name:      "transitions_total",
		Help:      "Booking state transitions, by target status.",
	}, []string{"status"})

	ReservationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "reservations_rejected_total",
		Help:      "Seat reservations rejected, by reason.",
	}, []string{"reason"})

	ReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "reserve_duration_seconds",
		Help:      "Latency of the serialized reserve-and-hold section.",
		Buckets:   prometheus.DefBuckets,
	})

	CardOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "card",
		Name:      "operations_total",
		Help:      "Stored-value card ledger operations, by type and result.",
	}, []string{"type", "result"})

	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redemption",
		Name:      "scans_total",
		Help:      "Ticket scans, by scan type and outcome.",
	}, []string{"scan_type", "outcome"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notification",
		Name:      "failures_total",
		Help:      "Notifications that could not be handed to the broker.",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
