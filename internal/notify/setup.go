package notify

import (
	"wallet-ledger/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewPublisher builds the publisher chain described by cfg. Without a Redis
// address or webhook URL events are only logged. The returned function
// releases the connections it opened.
func NewPublisher(cfg config.NotifyConfig, logger *zap.Logger) (Publisher, func() error) {
	var publishers Multi
	closers := []func() error{}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		publishers = append(publishers, NewRedisPublisher(client, cfg.RedisChannel))
		closers = append(closers, client.Close)
		logger.Info("redis publisher enabled", zap.String("addr", cfg.RedisAddr), zap.String("channel", cfg.RedisChannel))
	}
	if cfg.WebhookURL != "" {
		publishers = append(publishers, NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookTimeout, logger))
		logger.Info("webhook publisher enabled", zap.String("url", cfg.WebhookURL))
	}

	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	switch len(publishers) {
	case 0:
		return LogPublisher{Logger: logger}, closeAll
	case 1:
		return publishers[0], closeAll
	default:
		return publishers, closeAll
	}
}
