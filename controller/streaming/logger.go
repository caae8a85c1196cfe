package streaming

import (
	"context"
	"encoding/json"
	"log"
)

// LogPublisher writes events to the process log. It is the fallback when no
// Redis address is configured.
type LogPublisher struct {
	logger *log.Logger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: log.Default()}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	p.logger.Printf("[STREAMING] PUBLISH %s: %s", ev.Topic, string(data))
	return nil
}

func (p *LogPublisher) Close() error {
	p.logger.Println("[STREAMING] Closed LogPublisher")
	return nil
}
