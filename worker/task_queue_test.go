package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTaskQueueIsFIFO(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewMemoryTaskQueue(4)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, id))
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

// Runs against a real server when REDIS_ADDRESS is set.
func TestRedisTaskQueue(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	key := "recruitreach:test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })
	q := NewRedisTaskQueue(client, key)

	require.NoError(t, q.Push(ctx, "first"))
	require.NoError(t, q.Push(ctx, "second"))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", got)
	got, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	got, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Empty(t, got)
}
