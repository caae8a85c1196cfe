package scheduler

import (
	"context"
	"log"
	"time"
)

// ClockSink receives simulated-time ticks.
type ClockSink interface {
	AdvanceClock() int
}

// Clock advances the simulated time of its sink once per real second.
type Clock struct {
	sink     ClockSink
	interval time.Duration
}

// NewClock builds a clock ticking at interval. The controller runs it at one
// second; tests run it faster.
func NewClock(sink ClockSink, interval time.Duration) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{sink: sink, interval: interval}
}

// Run ticks until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Printf("[CONTROLADOR] Relógio simulado iniciado (tick %s)", c.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sink.AdvanceClock()
		}
	}
}
