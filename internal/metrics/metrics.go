// Package metrics exposes Prometheus counters for the reservation engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ReservationsCreated counts successfully created holds.
	ReservationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total number of reservations created",
	})

	// ReservationsConfirmed counts active -> confirmed transitions.
	ReservationsConfirmed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_confirmed_total",
		Help: "Total number of reservations confirmed",
	})

	// ReservationsReleased counts explicit releases of active holds.
	ReservationsReleased = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_released_total",
		Help: "Total number of reservations released",
	})

	// ReservationsSwept counts expired records removed by the sweeper.
	ReservationsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_expired_swept_total",
		Help: "Total number of expired reservations removed by the sweeper",
	})

	// ReservationsRejected counts create attempts turned away, by reason.
	ReservationsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_rejected_total",
		Help: "Total number of reservation attempts rejected",
	}, []string{"reason"})
)

// Register installs all engine collectors on the default registry. Call once
// at startup.
func Register() {
	prometheus.MustRegister(
		ReservationsCreated,
		ReservationsConfirmed,
		ReservationsReleased,
		ReservationsSwept,
		ReservationsRejected,
	)
}
