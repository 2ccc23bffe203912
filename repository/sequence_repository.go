package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"recruitreach/models"
)

// SequenceFilter narrows List results.
type SequenceFilter struct {
	Limit      int
	Offset     int
	ActiveOnly bool
	Status     models.SequenceStatus
}

type SequenceRepository interface {
	Create(ctx context.Context, seq *models.Sequence) error
	Get(ctx context.Context, id string) (*models.Sequence, error)
	// Save writes every column of seq, including zero values.
	Save(ctx context.Context, seq *models.Sequence) error
	// SaveTx is Save on an explicit handle such as a transaction.
	SaveTx(tx *gorm.DB, seq *models.Sequence) error
	// ClaimActivation saves seq only if the stored row is still inactive.
	// It reports false when another writer activated the sequence first.
	ClaimActivation(ctx context.Context, seq *models.Sequence) (bool, error)
	// ClaimActivationTx is ClaimActivation on an explicit handle.
	ClaimActivationTx(tx *gorm.DB, seq *models.Sequence) (bool, error)
	// List returns sequences newest-created first.
	List(ctx context.Context, filter SequenceFilter) ([]models.Sequence, error)
	// Delete removes the sequence and all of its queued emails.
	Delete(ctx context.Context, id string) error
	// WithTx runs fn inside a database transaction.
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Create(ctx context.Context, seq *models.Sequence) error {
	return r.db.WithContext(ctx).Create(seq).Error
}

func (r *sequenceRepository) Get(ctx context.Context, id string) (*models.Sequence, error) {
	var seq models.Sequence
	err := r.db.WithContext(ctx).First(&seq, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

func (r *sequenceRepository) Save(ctx context.Context, seq *models.Sequence) error {
	return r.SaveTx(r.db.WithContext(ctx), seq)
}

func (r *sequenceRepository) SaveTx(tx *gorm.DB, seq *models.Sequence) error {
	result := tx.Model(seq).
		Select("*").Omit("id", "created_at").
		Updates(seq)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sequenceRepository) ClaimActivation(ctx context.Context, seq *models.Sequence) (bool, error) {
	return r.ClaimActivationTx(r.db.WithContext(ctx), seq)
}

func (r *sequenceRepository) ClaimActivationTx(tx *gorm.DB, seq *models.Sequence) (bool, error) {
	result := tx.Model(seq).
		Where("is_active = ?", false).
		Select("*").Omit("id", "created_at").
		Updates(seq)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	if err := tx.Model(&models.Sequence{}).Where("id = ?", seq.ID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *sequenceRepository) List(ctx context.Context, filter SequenceFilter) ([]models.Sequence, error) {
	query := r.db.WithContext(ctx).Model(&models.Sequence{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	sequences := make([]models.Sequence, 0)
	if err := query.Order("created_at DESC").Find(&sequences).Error; err != nil {
		return nil, err
	}
	return sequences, nil
}

func (r *sequenceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sequence_id = ?", id).Delete(&models.EmailQueueEntry{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Sequence{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *sequenceRepository) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
