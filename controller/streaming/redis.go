package streaming

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events to one Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to addr and verifies the connection before
// returning.
func NewRedisPublisher(addr, channel string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	if channel == "" {
		channel = "frotad:events"
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
