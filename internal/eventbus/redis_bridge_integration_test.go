//go:build integration

package eventbus

// Run with: go test -tags integration ./internal/eventbus/... -v

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisBridge_CrossProcessDelivery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	// Two buses stand in for two dashboards in different processes.
	emitterRDB := redis.NewClient(opts)
	listenerRDB := redis.NewClient(opts)
	t.Cleanup(func() { _ = emitterRDB.Close(); _ = listenerRDB.Close() })

	emitter := New()
	emitter.SetForwarder(NewRedisBridge(emitterRDB, ""))

	listener := New()
	received := make(chan MutationOccurred, 1)
	listener.Subscribe("dashboard", func(_ context.Context, evt MutationOccurred) { received <- evt })
	require.NoError(t, NewRedisBridge(listenerRDB, "").Listen(ctx, listener))

	emitter.PublishMutation(ctx, "transacciones")

	select {
	case evt := <-received:
		assert.Equal(t, "transacciones", evt.Source)
		assert.Equal(t, emitter.Origin(), evt.Origin)
	case <-time.After(10 * time.Second):
		t.Fatal("event not delivered through redis")
	}
}
