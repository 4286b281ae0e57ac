package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"wallet-ledger/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, "ledger.events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	p := NewRedisPublisher(client, "ledger.events")
	err = p.Publish(ctx, models.OutboxEvent{
		ID:        "evt-1",
		EventType: models.EventPaymentReceived,
		AccountID: 3,
		Payload:   []byte(`{"amount":"25"}`),
	})
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		var got Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "evt-1", got.ID)
		assert.Equal(t, models.EventPaymentReceived, got.Type)
		assert.Equal(t, int64(3), got.AccountID)
		assert.JSONEq(t, `{"amount":"25"}`, string(got.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestRedisPublisherUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	err = NewRedisPublisher(client, "ledger.events").Publish(context.Background(), models.OutboxEvent{ID: "evt"})
	assert.Error(t, err)
}
