package main

import (
	"fmt"
	"log"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/nunomdc/frotad/controller/store"
	"github.com/nunomdc/frotad/controller/transport"
)

// Supervisor launches and signals vehicle worker processes.
type Supervisor struct {
	bin       string
	telemetry *transport.TelemetrySet
}

func NewSupervisor(bin string, telemetry *transport.TelemetrySet) *Supervisor {
	return &Supervisor{bin: bin, telemetry: telemetry}
}

// Launch creates the vehicle's telemetry pipe, opens its read end, and
// starts the worker process. Returns the worker pid. The scheduler calls
// this while holding the world lock; it must never block on the worker.
func (s *Supervisor) Launch(l store.Launch) (int, error) {
	if err := s.telemetry.Create(l.VehicleID); err != nil {
		return 0, fmt.Errorf("telemetry pipe for vehicle %d: %w", l.VehicleID, err)
	}

	cmd := exec.Command(s.bin,
		strconv.Itoa(l.VehicleID),
		strconv.Itoa(l.ServiceID),
		strconv.Itoa(l.ClientPID),
		l.Origin,
		fmt.Sprintf("%.1f", l.DistanceKM),
	)
	if err := cmd.Start(); err != nil {
		s.telemetry.Release(l.VehicleID)
		return 0, fmt.Errorf("start %s: %w", s.bin, err)
	}

	// Reap in the background so finished workers never linger as zombies.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("[CONTROLADOR] Veículo %d (pid %d) terminou: %v", l.VehicleID, cmd.Process.Pid, err)
		}
	}()

	return cmd.Process.Pid, nil
}

// Signal delivers the cancellation signal to a worker. A vanished worker is
// not an error.
func (s *Supervisor) Signal(workerPID int) {
	if workerPID <= 0 {
		return
	}
	if err := unix.Kill(workerPID, unix.SIGUSR1); err != nil && err != unix.ESRCH {
		log.Printf("[CONTROLADOR] SIGUSR1 para pid %d falhou: %v", workerPID, err)
	}
}
