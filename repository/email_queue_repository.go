package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"recruitreach/models"
)

const enqueueBatchSize = 200

type EmailQueueRepository interface {
	Enqueue(ctx context.Context, entry *models.EmailQueueEntry) error
	// EnqueueBatch inserts entries on the given handle, which may be a transaction.
	EnqueueBatch(tx *gorm.DB, entries []models.EmailQueueEntry) error
	// Due returns PENDING entries scheduled at or before now, oldest first.
	Due(ctx context.Context, now time.Time) ([]models.EmailQueueEntry, error)
	MarkSent(ctx context.Context, id uint, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uint, reason string) error
	ListBySequence(ctx context.Context, sequenceID string) ([]models.EmailQueueEntry, error)
	CountByStatus(ctx context.Context, sequenceID string) (map[models.EmailStatus]int64, error)
}

type emailQueueRepository struct {
	db *gorm.DB
}

func NewEmailQueueRepository(db *gorm.DB) EmailQueueRepository {
	return &emailQueueRepository{db: db}
}

func (r *emailQueueRepository) Enqueue(ctx context.Context, entry *models.EmailQueueEntry) error {
	if entry.Status == "" {
		entry.Status = models.EmailStatusPending
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *emailQueueRepository) EnqueueBatch(tx *gorm.DB, entries []models.EmailQueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].Status == "" {
			entries[i].Status = models.EmailStatusPending
		}
	}
	return tx.CreateInBatches(entries, enqueueBatchSize).Error
}

func (r *emailQueueRepository) Due(ctx context.Context, now time.Time) ([]models.EmailQueueEntry, error) {
	entries := make([]models.EmailQueueEntry, 0)
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_time <= ?", models.EmailStatusPending, now.UTC()).
		Order("scheduled_time ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *emailQueueRepository) MarkSent(ctx context.Context, id uint, sentAt time.Time) error {
	sentAt = sentAt.UTC()
	return r.transition(ctx, id, map[string]interface{}{
		"status":  models.EmailStatusSent,
		"sent_at": &sentAt,
	})
}

func (r *emailQueueRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":     models.EmailStatusFailed,
		"last_error": reason,
	})
}

// transition applies updates only while the entry is still PENDING.
func (r *emailQueueRepository) transition(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.EmailQueueEntry{}).
		Where("id = ? AND status = ?", id, models.EmailStatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.EmailQueueEntry{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrNotPending
	}
	return nil
}

func (r *emailQueueRepository) ListBySequence(ctx context.Context, sequenceID string) ([]models.EmailQueueEntry, error) {
	entries := make([]models.EmailQueueEntry, 0)
	err := r.db.WithContext(ctx).
		Where("sequence_id = ?", sequenceID).
		Order("scheduled_time ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *emailQueueRepository) CountByStatus(ctx context.Context, sequenceID string) (map[models.EmailStatus]int64, error) {
	var rows []struct {
		Status models.EmailStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.EmailQueueEntry{}).
		Select("status, COUNT(*) AS count").
		Where("sequence_id = ?", sequenceID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[models.EmailStatus]int64{
		models.EmailStatusPending: 0,
		models.EmailStatusSent:    0,
		models.EmailStatusFailed:  0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
