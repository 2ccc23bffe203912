package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultIngestQueueKey = "recruitreach:ingest"

// TaskSource hands out queued file ids. Pop returns "" when nothing arrived
// within the timeout.
type TaskSource interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}

// RedisTaskQueue is a FIFO of file ids stored in a Redis list.
type RedisTaskQueue struct {
	client *redis.Client
	key    string
}

func NewRedisTaskQueue(client *redis.Client, key string) *RedisTaskQueue {
	if key == "" {
		key = DefaultIngestQueueKey
	}
	return &RedisTaskQueue{client: client, key: key}
}

func (q *RedisTaskQueue) Push(ctx context.Context, fileID string) error {
	if err := q.client.LPush(ctx, q.key, fileID).Err(); err != nil {
		return fmt.Errorf("push ingest task: %w", err)
	}
	return nil
}

func (q *RedisTaskQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("pop ingest task: %w", err)
	}
	// BRPOP replies with [key, value]
	if len(res) != 2 {
		return "", fmt.Errorf("unexpected BRPOP reply %v", res)
	}
	return res[1], nil
}

// Len reports the number of waiting tasks.
func (q *RedisTaskQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// MemoryTaskQueue is an in-process queue used when Redis is disabled.
type MemoryTaskQueue struct {
	ch chan string
}

func NewMemoryTaskQueue(size int) *MemoryTaskQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryTaskQueue{ch: make(chan string, size)}
}

func (q *MemoryTaskQueue) Push(ctx context.Context, fileID string) error {
	select {
	case q.ch <- fileID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryTaskQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case id := <-q.ch:
		return id, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
