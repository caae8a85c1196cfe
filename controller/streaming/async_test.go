package streaming

import (
	"context"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (p *capturePublisher) Publish(ctx context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestAsyncPublisherDelivers(t *testing.T) {
	inner := &capturePublisher{}
	p := NewAsyncPublisher(inner)

	p.Enqueue("ride.scheduled", map[string]any{"service_id": 1})
	p.Enqueue("ride.completed", map[string]any{"service_id": 1})

	deadline := time.After(2 * time.Second)
	for {
		inner.mu.Lock()
		n := len(inner.events)
		inner.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("delivered %d of 2 before deadline", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	inner.mu.Lock()
	defer inner.mu.Unlock()
	if !inner.closed {
		t.Fatal("inner publisher not closed")
	}
	if inner.events[0].Topic != "ride.scheduled" {
		t.Fatalf("first topic %q", inner.events[0].Topic)
	}
}
