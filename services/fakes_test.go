package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"recruitreach/models"
	"recruitreach/repository"
)

type fakeNotifier struct {
	mu        sync.Mutex
	connected bool
	tests     int
}

func newFakeNotifier(connected bool) *fakeNotifier {
	return &fakeNotifier{connected: connected}
}

func (n *fakeNotifier) TestConnection(ctx context.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tests++
	return n.connected
}

func (n *fakeNotifier) Send(ctx context.Context, to, subject, body string, vars map[string]string) bool {
	return n.connected
}

// gatedNotifier blocks every connection test until the gate is closed.
type gatedNotifier struct {
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func newGatedNotifier() *gatedNotifier {
	return &gatedNotifier{entered: make(chan struct{}), gate: make(chan struct{})}
}

func (n *gatedNotifier) TestConnection(ctx context.Context) bool {
	n.once.Do(func() { close(n.entered) })
	<-n.gate
	return true
}

func (n *gatedNotifier) Send(ctx context.Context, to, subject, body string, vars map[string]string) bool {
	return true
}

type failingRoster struct {
	err error
}

func (r failingRoster) Recipients(ctx context.Context) ([]models.Recipient, error) {
	return nil, r.err
}

// memQueue is an in-memory EmailQueueRepository.
type memQueue struct {
	mu      sync.Mutex
	nextID  uint
	entries []models.EmailQueueEntry
}

var _ repository.EmailQueueRepository = (*memQueue)(nil)

func (q *memQueue) Enqueue(ctx context.Context, entry *models.EmailQueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	entry.ID = q.nextID
	if entry.Status == "" {
		entry.Status = models.EmailStatusPending
	}
	q.entries = append(q.entries, *entry)
	return nil
}

func (q *memQueue) EnqueueBatch(tx *gorm.DB, entries []models.EmailQueueEntry) error {
	for i := range entries {
		if err := q.Enqueue(context.Background(), &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (q *memQueue) Due(ctx context.Context, now time.Time) ([]models.EmailQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []models.EmailQueueEntry
	for _, e := range q.entries {
		if e.Status == models.EmailStatusPending && !e.ScheduledTime.After(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledTime.Before(due[j].ScheduledTime) })
	return due, nil
}

func (q *memQueue) MarkSent(ctx context.Context, id uint, sentAt time.Time) error {
	return q.mark(id, models.EmailStatusSent, "")
}

func (q *memQueue) MarkFailed(ctx context.Context, id uint, reason string) error {
	return q.mark(id, models.EmailStatusFailed, reason)
}

func (q *memQueue) mark(id uint, status models.EmailStatus, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID != id {
			continue
		}
		if q.entries[i].Status != models.EmailStatusPending {
			return repository.ErrNotPending
		}
		q.entries[i].Status = status
		q.entries[i].LastError = reason
		return nil
	}
	return repository.ErrNotFound
}

func (q *memQueue) ListBySequence(ctx context.Context, sequenceID string) ([]models.EmailQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []models.EmailQueueEntry
	for _, e := range q.entries {
		if e.SequenceID == sequenceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (q *memQueue) CountByStatus(ctx context.Context, sequenceID string) (map[models.EmailStatus]int64, error) {
	entries, _ := q.ListBySequence(ctx, sequenceID)
	counts := map[models.EmailStatus]int64{}
	for _, e := range entries {
		counts[e.Status]++
	}
	return counts, nil
}
