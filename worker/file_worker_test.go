package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitreach/testutil"
)

type recordingProcessor struct {
	mu   sync.Mutex
	seen []string
	fail map[string]bool
}

func (p *recordingProcessor) Process(ctx context.Context, fileID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, fileID)
	if p.fail[fileID] {
		return errors.New("extraction failed")
	}
	return nil
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func TestFileWorkerDrainsQueue(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	queue := NewMemoryTaskQueue(10)
	processor := &recordingProcessor{fail: map[string]bool{"bad": true}}
	w := NewFileWorker(queue, processor, 2, testutil.Logger())

	for _, id := range []string{"a", "bad", "c"} {
		require.NoError(t, queue.Push(ctx, id))
	}

	w.Start(ctx)
	require.Eventually(t, func() bool { return processor.count() == 3 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("file worker did not stop")
	}
	assert.ElementsMatch(t, []string{"a", "bad", "c"}, processor.seen)
}

func TestMemoryTaskQueuePopTimeout(t *testing.T) {
	t.Parallel()

	q := NewMemoryTaskQueue(1)
	id, err := q.Pop(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Pop(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
