package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recruitreach/models"
	"recruitreach/repository"
	"recruitreach/utils"
)

const (
	maxUploadBytes = 10 << 20
	maxEmbedChars  = 24000
)

// IngestService manages résumé folders and turns uploaded files into embeddings.
type IngestService struct {
	files    repository.FileRepository
	store    ObjectStore
	tasks    TaskQueue
	embedder Embedder
	log      *logrus.Entry
	now      func() time.Time
}

func NewIngestService(files repository.FileRepository, store ObjectStore, tasks TaskQueue, embedder Embedder, log *logrus.Entry) *IngestService {
	return &IngestService{
		files:    files,
		store:    store,
		tasks:    tasks,
		embedder: embedder,
		log:      log.WithField("component", "ingest_service"),
		now:      time.Now,
	}
}

func (s *IngestService) CreateFolder(ctx context.Context, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("folder name is required")
	}
	folder := &models.Folder{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.files.CreateFolder(ctx, folder); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return folder, nil
}

func (s *IngestService) ListFolders(ctx context.Context) ([]models.Folder, error) {
	return s.files.ListFolders(ctx)
}

// DeleteFolder removes the folder, its files and their stored objects.
func (s *IngestService) DeleteFolder(ctx context.Context, id string) error {
	files, err := s.files.ListFiles(ctx, id)
	if err != nil {
		return err
	}
	if err := s.files.DeleteFolder(ctx, id); err != nil {
		return storeError(err, "folder "+id)
	}
	for _, f := range files {
		if err := s.store.Delete(f.StoragePath); err != nil {
			s.log.WithError(err).WithField("file_id", f.ID).Warn("Failed to delete stored object")
		}
	}
	return nil
}

func (s *IngestService) ListFiles(ctx context.Context, folderID string) ([]models.File, error) {
	if _, err := s.files.GetFolder(ctx, folderID); err != nil {
		return nil, storeError(err, "folder "+folderID)
	}
	return s.files.ListFiles(ctx, folderID)
}

func (s *IngestService) GetFile(ctx context.Context, id string) (*models.File, error) {
	file, err := s.files.GetFile(ctx, id)
	if err != nil {
		return nil, storeError(err, "file "+id)
	}
	return file, nil
}

// Upload stores the file, records it as processing and queues it for ingestion.
func (s *IngestService) Upload(ctx context.Context, folderID, filename string, r io.Reader) (*models.File, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, validationError("filename is required")
	}
	if _, err := s.files.GetFolder(ctx, folderID); err != nil {
		return nil, storeError(err, "folder "+folderID)
	}

	id := uuid.NewString()
	key := utils.ObjectKey(folderID, id, filename)
	size, err := s.store.Put(key, io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if size > maxUploadBytes {
		_ = s.store.Delete(key)
		return nil, validationError("file exceeds %d bytes", maxUploadBytes)
	}

	file := &models.File{
		ID:          id,
		FolderID:    folderID,
		Filename:    filename,
		StoragePath: key,
		Size:        size,
		Status:      models.FileStatusProcessing,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.files.CreateFile(ctx, file); err != nil {
		_ = s.store.Delete(key)
		return nil, fmt.Errorf("record upload: %w", err)
	}

	if err := s.tasks.Push(ctx, file.ID); err != nil {
		utils.LogError("ingest_enqueue", err, map[string]interface{}{"file_id": file.ID})
		if markErr := s.files.MarkError(ctx, file.ID, "could not queue for processing"); markErr != nil {
			s.log.WithError(markErr).Warn("Failed to mark file as errored")
		}
		file.Status = models.FileStatusError
		file.ErrorMessage = "could not queue for processing"
	}
	return file, nil
}

func (s *IngestService) DeleteFile(ctx context.Context, id string) error {
	file, err := s.files.GetFile(ctx, id)
	if err != nil {
		return storeError(err, "file "+id)
	}
	if err := s.store.Delete(file.StoragePath); err != nil {
		return fmt.Errorf("delete stored object: %w", err)
	}
	if err := s.files.DeleteFile(ctx, id); err != nil {
		return storeError(err, "file "+id)
	}
	return nil
}

func (s *IngestService) Embeddings(ctx context.Context, fileID string) ([]models.Embedding, error) {
	if _, err := s.files.GetFile(ctx, fileID); err != nil {
		return nil, storeError(err, "file "+fileID)
	}
	return s.files.ListEmbeddings(ctx, fileID)
}

func (s *IngestService) DeleteEmbeddings(ctx context.Context, fileID string) (int64, error) {
	if _, err := s.files.GetFile(ctx, fileID); err != nil {
		return 0, storeError(err, "file "+fileID)
	}
	return s.files.DeleteEmbeddings(ctx, fileID)
}

// Process extracts text from a stored file, embeds it and records the result.
// Any failure leaves the file in the error state with a message.
func (s *IngestService) Process(ctx context.Context, fileID string) error {
	file, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return storeError(err, "file "+fileID)
	}
	if file.Done() {
		return nil
	}

	if err := s.process(ctx, file); err != nil {
		if markErr := s.files.MarkError(context.WithoutCancel(ctx), file.ID, err.Error()); markErr != nil {
			s.log.WithError(markErr).WithField("file_id", file.ID).Warn("Failed to mark file as errored")
		}
		utils.LogError("file_ingest", err, map[string]interface{}{
			"file_id":   file.ID,
			"folder_id": file.FolderID,
		})
		return err
	}

	utils.LogEvent("file_vectorized", map[string]interface{}{
		"file_id":   file.ID,
		"folder_id": file.FolderID,
	})
	return nil
}

func (s *IngestService) process(ctx context.Context, file *models.File) error {
	r, err := s.store.Open(file.StoragePath)
	if err != nil {
		return fmt.Errorf("open stored file: %w", err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return fmt.Errorf("read stored file: %w", err)
	}

	text, err := utils.ExtractText(file.Filename, data)
	if err != nil {
		return err
	}
	text = truncateUTF8(text, maxEmbedChars)

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed text: %w", err)
	}

	if err := s.files.SaveEmbedding(ctx, &models.Embedding{
		ID:        uuid.NewString(),
		FileID:    file.ID,
		FolderID:  file.FolderID,
		Vector:    vector,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return s.files.MarkVectorized(ctx, file.ID, s.now())
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
