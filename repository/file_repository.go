package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"recruitreach/models"
)

type FileRepository interface {
	CreateFolder(ctx context.Context, folder *models.Folder) error
	ListFolders(ctx context.Context) ([]models.Folder, error)
	GetFolder(ctx context.Context, id string) (*models.Folder, error)
	// DeleteFolder removes the folder together with its files and embeddings.
	DeleteFolder(ctx context.Context, id string) error

	CreateFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, id string) (*models.File, error)
	ListFiles(ctx context.Context, folderID string) ([]models.File, error)
	// DeleteFile removes the file row and its embeddings.
	DeleteFile(ctx context.Context, id string) error
	MarkVectorized(ctx context.Context, id string, at time.Time) error
	MarkError(ctx context.Context, id string, message string) error

	SaveEmbedding(ctx context.Context, embedding *models.Embedding) error
	ListEmbeddings(ctx context.Context, fileID string) ([]models.Embedding, error)
	DeleteEmbeddings(ctx context.Context, fileID string) (int64, error)
}

type fileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) CreateFolder(ctx context.Context, folder *models.Folder) error {
	return r.db.WithContext(ctx).Create(folder).Error
}

func (r *fileRepository) ListFolders(ctx context.Context) ([]models.Folder, error) {
	folders := make([]models.Folder, 0)
	err := r.db.WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Order("created_at DESC").
		Find(&folders).Error
	if err != nil {
		return nil, err
	}
	return folders, nil
}

func (r *fileRepository) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	var folder models.Folder
	err := r.db.WithContext(ctx).First(&folder, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func (r *fileRepository) DeleteFolder(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("folder_id = ?", id).Delete(&models.Embedding{}).Error; err != nil {
			return err
		}
		if err := tx.Where("folder_id = ?", id).Delete(&models.File{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Folder{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *fileRepository) CreateFile(ctx context.Context, file *models.File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *fileRepository) GetFile(ctx context.Context, id string) (*models.File, error) {
	var file models.File
	err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) ListFiles(ctx context.Context, folderID string) ([]models.File, error) {
	files := make([]models.File, 0)
	err := r.db.WithContext(ctx).
		Where("folder_id = ?", folderID).
		Order("created_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileRepository) DeleteFile(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", id).Delete(&models.Embedding{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.File{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *fileRepository) MarkVectorized(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	return r.updateFile(ctx, id, map[string]interface{}{
		"status":        models.FileStatusVectorized,
		"vectorized_at": &at,
		"error_message": "",
	})
}

func (r *fileRepository) MarkError(ctx context.Context, id string, message string) error {
	return r.updateFile(ctx, id, map[string]interface{}{
		"status":        models.FileStatusError,
		"error_message": message,
	})
}

func (r *fileRepository) updateFile(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepository) SaveEmbedding(ctx context.Context, embedding *models.Embedding) error {
	return r.db.WithContext(ctx).Create(embedding).Error
}

func (r *fileRepository) ListEmbeddings(ctx context.Context, fileID string) ([]models.Embedding, error) {
	embeddings := make([]models.Embedding, 0)
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).Order("created_at ASC").Find(&embeddings).Error
	if err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (r *fileRepository) DeleteEmbeddings(ctx context.Context, fileID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("file_id = ?", fileID).Delete(&models.Embedding{})
	return result.RowsAffected, result.Error
}
