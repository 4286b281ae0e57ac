// Package notify delivers outbox events to the push and store collaborators
// once the ledger transaction that queued them has committed.
package notify

import (
	"context"
	"sync"
	"time"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"go.uber.org/zap"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
)

// Publisher sends one event to a collaborator.
type Publisher interface {
	Publish(ctx context.Context, e models.OutboxEvent) error
}

// Dispatcher drains the outbox through a Publisher. Failed events stay
// queued and are retried on later passes until maxAttempts is reached.
type Dispatcher struct {
	db          *storage.DB
	publisher   Publisher
	logger      *zap.Logger
	batchSize   int
	maxAttempts int
	now         func() time.Time
	wake        chan struct{}

	mu sync.Mutex
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithBatchSize caps the events handled per pass.
func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithMaxAttempts sets how often an event is tried before it is parked.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// NewDispatcher creates a Dispatcher over db.
func NewDispatcher(db *storage.DB, publisher Publisher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		db:          db,
		publisher:   publisher,
		logger:      zap.NewNop(),
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchOnce publishes one batch of pending events and returns how many
// were delivered. Concurrent calls are serialized so an event is never
// handed out twice by the same process.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.db.Queries()
	events, err := q.PendingEvents(ctx, d.batchSize, d.maxAttempts)
	if err != nil {
		d.logger.Error("failed to list pending events", zap.Error(err))
		return 0
	}

	published := 0
	for _, e := range events {
		if ctx.Err() != nil {
			break
		}

		if err := d.publisher.Publish(ctx, e); err != nil {
			d.logger.Warn("event delivery failed",
				zap.String("event_id", e.ID),
				zap.String("event_type", e.EventType),
				zap.Int("attempt", e.Attempts+1),
				zap.Error(err),
			)
			if err := q.MarkEventFailed(ctx, e.ID, err.Error()); err != nil {
				d.logger.Error("failed to record delivery failure", zap.String("event_id", e.ID), zap.Error(err))
			}
			continue
		}

		if err := q.MarkEventPublished(ctx, e.ID, d.now()); err != nil {
			d.logger.Error("failed to mark event published", zap.String("event_id", e.ID), zap.Error(err))
			continue
		}
		published++
	}

	if published > 0 {
		d.logger.Debug("outbox drained", zap.Int("published", published), zap.Int("pending", len(events)))
	}
	return published
}

// Notify asks Run for an immediate pass. It never blocks; wake-ups that
// arrive while one is already pending are merged.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run drains the outbox when notified and every interval until ctx is
// done. The interval pass picks up events whose earlier delivery failed.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("outbox dispatcher started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		case <-d.wake:
			d.DispatchOnce(ctx)
		}
	}
}
