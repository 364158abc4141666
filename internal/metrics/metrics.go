package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evreserve",
			Name:      "reservations_total",
			Help:      "Count of slot reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	sessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "evreserve",
			Name:      "sessions_started_total",
			Help:      "Count of charging sessions started.",
		},
	)

	sessionsStopped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "evreserve",
			Name:      "sessions_stopped_total",
			Help:      "Count of charging sessions stopped or completed.",
		},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "evreserve",
			Name:      "sessions_active",
			Help:      "Charging sessions currently in progress.",
		},
	)

	invoicesPaid = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "evreserve",
			Name:      "invoices_paid_total",
			Help:      "Count of invoices confirmed as paid.",
		},
	)

	violations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "evreserve",
			Name:      "violations_recorded_total",
			Help:      "Count of driver violations recorded.",
		},
	)

	driverBans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "evreserve",
			Name:      "driver_bans_total",
			Help:      "Count of automatic driver bans from triplet closure.",
		},
	)

	noShows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "evreserve",
			Name:      "no_shows_total",
			Help:      "Count of bookings auto-cancelled by the no-show sweep.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservations,
			sessionsStarted,
			sessionsStopped,
			activeSessions,
			invoicesPaid,
			violations,
			driverBans,
			noShows,
		)
	})
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncReservation(outcome string) {
	reservations.WithLabelValues(outcome).Inc()
}

func IncSessionStarted() {
	sessionsStarted.Inc()
	activeSessions.Inc()
}

func IncSessionStopped() {
	sessionsStopped.Inc()
	activeSessions.Dec()
}

func IncInvoicePaid() {
	invoicesPaid.Inc()
}

func IncViolation() {
	violations.Inc()
}

func IncDriverBan() {
	driverBans.Inc()
}

func IncNoShow() {
	noShows.Inc()
}
