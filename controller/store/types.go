package store

import "fmt"

// Table limits, matching the controller's fixed-size tables.
const (
	MaxClients      = 10
	MaxServices     = 50
	DefaultVehicles = 10

	MaxNameLen   = 49
	MaxOriginLen = 99
)

// ClientStatus describes what a logged-in client is doing.
type ClientStatus int

const (
	ClientWaiting ClientStatus = iota
	ClientOnTrip
)

func (s ClientStatus) String() string {
	if s == ClientOnTrip {
		return "EM VIAGEM"
	}
	return "À ESPERA"
}

// ServiceStatus is the lifecycle state of a requested ride.
// COMPLETED and CANCELLED are terminal sinks.
type ServiceStatus int

const (
	StatusScheduled ServiceStatus = iota
	StatusInProgress
	StatusCompleted
	StatusCancelled
)

func (s ServiceStatus) String() string {
	switch s {
	case StatusScheduled:
		return "AGENDADO"
	case StatusInProgress:
		return "EM CURSO"
	case StatusCompleted:
		return "CONCLUÍDO"
	case StatusCancelled:
		return "CANCELADO"
	default:
		return "DESCONHECIDO"
	}
}

// Terminal reports whether the status is a sink state.
func (s ServiceStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Client is a logged-in user identified by process id and unique display name.
type Client struct {
	PID    int          `json:"pid"`
	Name   string       `json:"name"`
	Status ClientStatus `json:"status"`
}

// Vehicle is a member of the fixed fleet. A vehicle id of 0 in ServiceID
// means no service is bound. TotalKM accumulates for the current trip only
// and is reset when the vehicle is released.
type Vehicle struct {
	ID              int     `json:"id"`
	Active          bool    `json:"active"`
	Available       bool    `json:"available"`
	ProgressPercent int     `json:"progress_percent"`
	ServiceID       int     `json:"service_id"`
	WorkerPID       int     `json:"worker_pid"`
	TotalKM         float64 `json:"total_km"`
}

// Service is a ride request. Destination is carried for reporting but no
// command path ever fills it in.
type Service struct {
	ID            int           `json:"id"`
	ClientName    string        `json:"client_name"`
	ClientPID     int           `json:"client_pid"`
	ScheduledTime int           `json:"scheduled_time"`
	Origin        string        `json:"origin"`
	Destination   string        `json:"destination"`
	VehicleID     int           `json:"vehicle_id"`
	Status        ServiceStatus `json:"status"`
	DistanceKM    float64       `json:"distance_km"`
}

// Launch carries everything the vehicle supervisor needs to start a worker.
type Launch struct {
	VehicleID  int
	ServiceID  int
	ClientPID  int
	Origin     string
	DistanceKM float64
}

// Snapshot is a consistent copy of the world, safe to serialize.
type Snapshot struct {
	SimulatedTime int       `json:"simulated_time"`
	Clients       []Client  `json:"clients"`
	Vehicles      []Vehicle `json:"vehicles"`
	Services      []Service `json:"services"`
}

// Responder delivers one reply to a client. Implementations must tolerate a
// vanished client (log and swallow); the world never checks the outcome.
type Responder func(pid int, success bool, message string)

// EventFunc publishes a lifecycle event. Implementations must not block.
type EventFunc func(topic string, payload map[string]any)

// ArchiveFunc records a service that reached a terminal state.
// Implementations must not block.
type ArchiveFunc func(svc Service)

// FormatClock renders simulated seconds as HH:MM:SS.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
