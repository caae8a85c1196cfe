package streaming

import (
	"context"
	"log"
	"time"

	"github.com/nunomdc/frotad/controller/observability"
)

// AsyncPublisher decouples event producers from the wire. Enqueue never
// blocks; when the buffer is full the event is counted and dropped. The
// world calls Enqueue while holding its lock, so this must stay cheap.
type AsyncPublisher struct {
	inner Publisher
	ch    chan Event
	done  chan struct{}
}

// NewAsyncPublisher wraps inner with a buffered delivery goroutine.
func NewAsyncPublisher(inner Publisher) *AsyncPublisher {
	p := &AsyncPublisher{
		inner: inner,
		ch:    make(chan Event, 256),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for ev := range p.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := p.inner.Publish(ctx, ev); err != nil {
			log.Printf("[STREAMING] publish %s failed: %v", ev.Topic, err)
		}
		cancel()
	}
}

// Enqueue queues one event for delivery, dropping it if the buffer is full.
func (p *AsyncPublisher) Enqueue(topic string, payload map[string]any) {
	ev := Event{Topic: topic, Timestamp: time.Now(), Payload: payload}
	select {
	case p.ch <- ev:
	default:
		observability.EventsDropped.Inc()
	}
}

// Close drains pending events, then closes the wrapped publisher.
func (p *AsyncPublisher) Close() error {
	close(p.ch)
	select {
	case <-p.done:
	case <-time.After(3 * time.Second):
	}
	return p.inner.Close()
}
