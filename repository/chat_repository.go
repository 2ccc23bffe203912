package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"recruitreach/models"
)

type ChatRepository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// UpdateContext replaces the stored context and optionally the current sequence.
	UpdateContext(ctx context.Context, id string, values datatypes.JSONMap, currentSequenceID *string) error
	AppendMessage(ctx context.Context, msg *models.Message) error
	// ListMessages returns messages newest first.
	ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error)
	// RecentMessages returns up to limit messages in chronological order.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateSession(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *chatRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *chatRepository) UpdateContext(ctx context.Context, id string, values datatypes.JSONMap, currentSequenceID *string) error {
	updates := map[string]interface{}{
		"context":    values,
		"updated_at": time.Now().UTC(),
	}
	if currentSequenceID != nil {
		updates["current_sequence_id"] = *currentSequenceID
	}

	result := r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Session{}).
			Where("id = ?", msg.SessionID).
			Update("updated_at", msg.CreatedAt).Error
	})
}

func (r *chatRepository) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error) {
	query := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	messages := make([]models.Message, 0)
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatRepository) RecentMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	messages, err := r.ListMessages(ctx, sessionID, limit, 0)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
