package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitreach/models"
	"recruitreach/testutil"
)

func queueEntry(seqID, to string, at time.Time) models.EmailQueueEntry {
	return models.EmailQueueEntry{
		SequenceID:    seqID,
		StepNumber:    1,
		ToEmail:       to,
		Subject:       "Hello",
		Content:       "Hi there",
		ScheduledTime: at,
		TemplateVars:  map[string]string{"first_name": "Ada"},
	}
}

func TestEmailQueueDueReturnsOnlyPendingAndDue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewEmailQueueRepository(testutil.NewDB(t))
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	past := queueEntry("seq-1", "a@example.com", now.Add(-time.Hour))
	exact := queueEntry("seq-1", "b@example.com", now)
	future := queueEntry("seq-1", "c@example.com", now.Add(72*time.Hour))
	sent := queueEntry("seq-1", "d@example.com", now.Add(-2*time.Hour))

	for _, e := range []*models.EmailQueueEntry{&past, &exact, &future, &sent} {
		require.NoError(t, repo.Enqueue(ctx, e))
	}
	require.NoError(t, repo.MarkSent(ctx, sent.ID, now))

	due, err := repo.Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a@example.com", due[0].ToEmail)
	assert.Equal(t, "b@example.com", due[1].ToEmail)
	assert.Equal(t, map[string]string{"first_name": "Ada"}, due[0].TemplateVars)
}

func TestEmailQueueTransitionsOnlyFromPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewEmailQueueRepository(testutil.NewDB(t))
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	entry := queueEntry("seq-1", "a@example.com", now)
	require.NoError(t, repo.Enqueue(ctx, &entry))
	assert.Equal(t, models.EmailStatusPending, entry.Status)

	require.NoError(t, repo.MarkFailed(ctx, entry.ID, "smtp: connection refused"))
	assert.ErrorIs(t, repo.MarkSent(ctx, entry.ID, now), ErrNotPending)
	assert.ErrorIs(t, repo.MarkFailed(ctx, entry.ID, "again"), ErrNotPending)
	assert.ErrorIs(t, repo.MarkSent(ctx, 9999, now), ErrNotFound)

	entries, err := repo.ListBySequence(ctx, "seq-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EmailStatusFailed, entries[0].Status)
	assert.Equal(t, "smtp: connection refused", entries[0].LastError)
	assert.Nil(t, entries[0].SentAt)
}

func TestEmailQueueBatchAndCounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := NewEmailQueueRepository(db)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	batch := []models.EmailQueueEntry{
		queueEntry("seq-1", "a@example.com", now),
		queueEntry("seq-1", "b@example.com", now),
		queueEntry("seq-1", "c@example.com", now),
		queueEntry("seq-2", "a@example.com", now),
	}
	require.NoError(t, repo.EnqueueBatch(db, batch))
	require.NoError(t, repo.EnqueueBatch(db, nil))

	require.NoError(t, repo.MarkSent(ctx, batch[0].ID, now))
	require.NoError(t, repo.MarkFailed(ctx, batch[1].ID, "bounced"))

	counts, err := repo.CountByStatus(ctx, "seq-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.EmailStatusPending])
	assert.Equal(t, int64(1), counts[models.EmailStatusSent])
	assert.Equal(t, int64(1), counts[models.EmailStatusFailed])

	counts, err = repo.CountByStatus(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[models.EmailStatusPending])
}
