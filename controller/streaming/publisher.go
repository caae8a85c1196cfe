package streaming

import (
	"context"
	"time"
)

// Event is one ride lifecycle event on the stream.
type Event struct {
	Topic     string         `json:"topic"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Publisher delivers lifecycle events to an external consumer.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}
