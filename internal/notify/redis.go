package notify

import (
	"context"
	"fmt"

	"wallet-ledger/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on a Redis channel for the push
// notification collaborator.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher creates a publisher on channel.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e models.OutboxEvent) error {
	msg, err := Encode(e)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", p.channel, err)
	}
	return nil
}
