package scheduler

import (
	"context"
	"time"

	"github.com/nunomdc/frotad/controller/observability"
	"github.com/nunomdc/frotad/controller/store"
)

// Launcher starts a vehicle worker for one binding and returns its pid.
type Launcher interface {
	Launch(l store.Launch) (int, error)
}

// Sweeper binds due services to vehicles. Implemented by store.World.
type Sweeper interface {
	Sweep(launch func(store.Launch) (int, error)) int
}

// Scheduler runs the FCFS binding sweep on a fixed cadence.
type Scheduler struct {
	world    Sweeper
	launcher Launcher
	interval time.Duration
}

// New builds a scheduler sweeping every interval (one second in production).
func New(world Sweeper, launcher Launcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{world: world, launcher: launcher, interval: interval}
}

// Run sweeps until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Scheduler) sweepOnce() {
	start := time.Now()
	launched := s.world.Sweep(s.launcher.Launch)
	observability.SweepDuration.Observe(time.Since(start).Seconds())
	if launched > 0 {
		observability.WorkersLaunched.Add(float64(launched))
	}
}
