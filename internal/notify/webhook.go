package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"wallet-ledger/internal/models"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// WebhookPublisher POSTs events to the store collaborator. Calls go through
// a circuit breaker so a dead endpoint is not hammered on every pass.
type WebhookPublisher struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewWebhookPublisher creates a publisher posting to url with the given
// per-request timeout.
func NewWebhookPublisher(url string, timeout time.Duration, logger *zap.Logger) *WebhookPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &WebhookPublisher{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// State reports the breaker state.
func (p *WebhookPublisher) State() gobreaker.State {
	return p.breaker.State()
}

func (p *WebhookPublisher) Publish(ctx context.Context, e models.OutboxEvent) error {
	body, err := Encode(e)
	if err != nil {
		return err
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-ID", e.ID)
		req.Header.Set("X-Event-Type", e.EventType)

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook responded %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("webhook %s: %w", e.EventType, err)
	}
	return nil
}
