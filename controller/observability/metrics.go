package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks inbound client requests by type.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frotad_requests_total",
		Help: "Total number of client requests received on the inbound pipe",
	}, []string{"type"})

	// ReplyFailures tracks replies that could not be delivered (client gone).
	ReplyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frotad_reply_failures_total",
		Help: "Replies dropped because the client reply pipe could not be written",
	})

	// TelemetryRecords tracks telemetry records applied, by record type.
	TelemetryRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frotad_telemetry_records_total",
		Help: "Telemetry records received from vehicle workers",
	}, []string{"type"})

	// TelemetryDropped tracks malformed telemetry lines discarded by the demux.
	TelemetryDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frotad_telemetry_dropped_total",
		Help: "Telemetry lines dropped due to framing or parse errors",
	})

	// LoggedClients tracks the number of currently logged-in clients.
	LoggedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frotad_logged_clients",
		Help: "Current number of logged-in clients",
	})

	// AvailableVehicles tracks vehicles free to take a service.
	AvailableVehicles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frotad_available_vehicles",
		Help: "Current number of available vehicles in the fleet",
	})

	// ScheduledServices tracks services waiting for their hour or a vehicle.
	ScheduledServices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frotad_scheduled_services",
		Help: "Current number of services in the SCHEDULED state",
	})

	// ActiveTrips tracks services currently in progress.
	ActiveTrips = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frotad_active_trips",
		Help: "Current number of services in the IN_PROGRESS state",
	})

	// SimulatedTime exposes the simulated clock in seconds.
	SimulatedTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frotad_simulated_time_seconds",
		Help: "Current simulated time in seconds",
	})

	// SweepDuration tracks the duration of a scheduler binding sweep.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "frotad_scheduler_sweep_duration_seconds",
		Help:    "Duration of the scheduler sweep over pending services",
		Buckets: prometheus.DefBuckets,
	})

	// WorkersLaunched tracks vehicle worker processes started.
	WorkersLaunched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frotad_workers_launched_total",
		Help: "Total number of vehicle worker processes launched",
	})

	// TripsFinished tracks terminal service transitions by outcome.
	TripsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frotad_trips_finished_total",
		Help: "Services that reached a terminal state",
	}, []string{"outcome"}) // completed, cancelled

	// EventsDropped tracks lifecycle events dropped by the async publisher.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frotad_events_dropped_total",
		Help: "Lifecycle events dropped because the publish buffer was full",
	})

	// SnapshotRateLimited tracks snapshot requests rejected by the rate limiter.
	SnapshotRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frotad_snapshot_rate_limited_total",
		Help: "Snapshot HTTP requests rejected by the per-remote rate limiter",
	})
)
