package transport

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// Telemetry line types, as emitted by the vehicle worker.
const (
	TelTripStarted = "TRIP_STARTED"
	TelProgress    = "PROGRESS"
	TelDistance    = "DISTANCE"
	TelCompleted   = "COMPLETED"
	TelCancelled   = "CANCELLED"
)

// TelemetryRecord is one parsed line of the vehicle stream:
// TYPE|vehicle_id|service_id[|payload]
type TelemetryRecord struct {
	Type      string
	VehicleID int
	ServiceID int
	Payload   string
}

func (r TelemetryRecord) String() string {
	if r.Payload != "" {
		return fmt.Sprintf("%s|%d|%d|%s", r.Type, r.VehicleID, r.ServiceID, r.Payload)
	}
	return fmt.Sprintf("%s|%d|%d", r.Type, r.VehicleID, r.ServiceID)
}

// ParseTelemetry parses one newline-stripped telemetry line. Lines without
// the mandatory type, vehicle id and service id fields are rejected.
func ParseTelemetry(line string) (TelemetryRecord, error) {
	parts := strings.SplitN(line, "|", 4)
	if len(parts) < 3 {
		return TelemetryRecord{}, fmt.Errorf("malformed telemetry line %q", line)
	}
	switch parts[0] {
	case TelTripStarted, TelProgress, TelDistance, TelCompleted, TelCancelled:
	default:
		return TelemetryRecord{}, fmt.Errorf("unknown telemetry type %q", parts[0])
	}
	vid, err := strconv.Atoi(parts[1])
	if err != nil {
		return TelemetryRecord{}, fmt.Errorf("bad vehicle id in %q: %w", line, err)
	}
	sid, err := strconv.Atoi(parts[2])
	if err != nil {
		return TelemetryRecord{}, fmt.Errorf("bad service id in %q: %w", line, err)
	}
	rec := TelemetryRecord{Type: parts[0], VehicleID: vid, ServiceID: sid}
	if len(parts) == 4 {
		rec.Payload = parts[3]
	}
	return rec, nil
}

// TelemetrySet owns the read ends of every vehicle telemetry pipe. Reads are
// non-blocking so the demux can poll the whole fleet from one goroutine.
// Partial lines are carried between polls per vehicle.
type TelemetrySet struct {
	paths Paths

	mu    sync.Mutex
	fds   map[int]int
	carry map[int][]byte
}

// NewTelemetrySet prepares an empty set rooted at p.
func NewTelemetrySet(p Paths) *TelemetrySet {
	return &TelemetrySet{
		paths: p,
		fds:   make(map[int]int),
		carry: make(map[int][]byte),
	}
}

// Create makes the vehicle's FIFO and opens its read end non-blocking. Must
// happen before the worker is launched so the worker's blocking open
// succeeds immediately. Re-creating an open vehicle resets its carry buffer.
func (ts *TelemetrySet) Create(vehicleID int) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	path := ts.paths.Vehicle(vehicleID)
	if err := Mkfifo(path); err != nil {
		return err
	}
	if _, ok := ts.fds[vehicleID]; !ok {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		ts.fds[vehicleID] = fd
	}
	delete(ts.carry, vehicleID)
	return nil
}

// Poll drains every open pipe once and returns the complete lines read.
// EAGAIN (nothing buffered) and EOF-style zero reads are both quiet.
func (ts *TelemetrySet) Poll() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var lines []string
	buf := make([]byte, 4096)
	for vid, fd := range ts.fds {
		for {
			n, err := unix.Read(fd, buf)
			if n > 0 {
				ts.carry[vid] = append(ts.carry[vid], buf[:n]...)
			}
			if err != nil || n <= 0 {
				break
			}
		}
		data := ts.carry[vid]
		for {
			idx := -1
			for i, b := range data {
				if b == '\n' {
					idx = i
					break
				}
			}
			if idx < 0 {
				break
			}
			if idx > 0 {
				lines = append(lines, string(data[:idx]))
			}
			data = data[idx+1:]
		}
		if len(data) == 0 {
			delete(ts.carry, vid)
		} else {
			ts.carry[vid] = append([]byte(nil), data...)
		}
	}
	return lines
}

// Release closes and unlinks one vehicle's pipe after its trip ends.
func (ts *TelemetrySet) Release(vehicleID int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if fd, ok := ts.fds[vehicleID]; ok {
		unix.Close(fd)
		delete(ts.fds, vehicleID)
	}
	delete(ts.carry, vehicleID)
	os.Remove(ts.paths.Vehicle(vehicleID))
}

// CloseAll tears down every remaining pipe. Used at shutdown.
func (ts *TelemetrySet) CloseAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for vid, fd := range ts.fds {
		unix.Close(fd)
		os.Remove(ts.paths.Vehicle(vid))
	}
	ts.fds = make(map[int]int)
	ts.carry = make(map[int][]byte)
}
