package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nunomdc/frotad/controller/store"
)

type fakeLauncher struct {
	mu       sync.Mutex
	launches []store.Launch
	err      error
}

func (f *fakeLauncher) Launch(l store.Launch) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.launches = append(f.launches, l)
	return 999, nil
}

func (f *fakeLauncher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launches)
}

type fakeSweeper struct {
	mu      sync.Mutex
	pending []store.Launch
	sweeps  int
}

func (f *fakeSweeper) Sweep(launch func(store.Launch) (int, error)) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	n := 0
	remaining := f.pending[:0]
	for _, l := range f.pending {
		if _, err := launch(l); err != nil {
			remaining = append(remaining, l)
			continue
		}
		n++
	}
	f.pending = remaining
	return n
}

func TestSchedulerLaunchesPendingBindings(t *testing.T) {
	world := &fakeSweeper{pending: []store.Launch{
		{VehicleID: 1, ServiceID: 1, ClientPID: 101, Origin: "baixa", DistanceKM: 5},
		{VehicleID: 2, ServiceID: 2, ClientPID: 102, Origin: "porto", DistanceKM: 3},
	}}
	launcher := &fakeLauncher{}

	s := New(world, launcher, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for launcher.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("launched %d of 2 before deadline", launcher.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if launcher.launches[0].ServiceID != 1 {
		t.Fatalf("first launch was service %d", launcher.launches[0].ServiceID)
	}
}

type tickCounter struct {
	mu    sync.Mutex
	ticks int
}

func (c *tickCounter) AdvanceClock() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.ticks
}

func (c *tickCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

func TestClockTicks(t *testing.T) {
	sink := &tickCounter{}
	c := NewClock(sink, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sink.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d ticks before deadline", sink.count())
		case <-time.After(2 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
