package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitreach/models"
	"recruitreach/repository"
	"recruitreach/testutil"
	"recruitreach/utils"
)

type fakeTasks struct {
	mu     sync.Mutex
	pushed []string
	err    error
}

func (q *fakeTasks) Push(ctx context.Context, fileID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.pushed = append(q.pushed, fileID)
	return nil
}

type fakeEmbedder struct {
	err   error
	texts []string
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type ingestFixture struct {
	svc      *IngestService
	tasks    *fakeTasks
	embedder *fakeEmbedder
	store    *utils.LocalStorage
}

func newIngestFixture(t *testing.T) ingestFixture {
	t.Helper()

	store, err := utils.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	tasks := &fakeTasks{}
	embedder := &fakeEmbedder{}
	svc := NewIngestService(repository.NewFileRepository(testutil.NewDB(t)), store, tasks, embedder, testutil.Logger())
	return ingestFixture{svc: svc, tasks: tasks, embedder: embedder, store: store}
}

func TestUploadAndProcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newIngestFixture(t)

	folder, err := f.svc.CreateFolder(ctx, " Backend ")
	require.NoError(t, err)
	assert.Equal(t, "Backend", folder.Name)

	file, err := f.svc.Upload(ctx, folder.ID, "ada.txt", strings.NewReader("Ada Lovelace\nAnalytical engines"))
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusProcessing, file.Status)
	assert.Equal(t, folder.ID+"/"+file.ID+"_ada.txt", file.StoragePath)
	assert.Equal(t, []string{file.ID}, f.tasks.pushed)

	require.NoError(t, f.svc.Process(ctx, file.ID))
	assert.Equal(t, []string{"Ada Lovelace Analytical engines"}, f.embedder.texts)

	got, err := f.svc.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusVectorized, got.Status)

	embeddings, err := f.svc.Embeddings(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	assert.Equal(t, folder.ID, embeddings[0].FolderID)

	// already vectorized files are not processed again
	require.NoError(t, f.svc.Process(ctx, file.ID))
	assert.Len(t, f.embedder.texts, 1)

	removed, err := f.svc.DeleteEmbeddings(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	require.NoError(t, f.svc.DeleteFile(ctx, file.ID))
	_, err = f.svc.GetFile(ctx, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.store.Open(file.StoragePath)
	assert.Error(t, err)
}

func TestProcessFailureMarksError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newIngestFixture(t)
	folder, err := f.svc.CreateFolder(ctx, "Resumes")
	require.NoError(t, err)

	empty, err := f.svc.Upload(ctx, folder.ID, "blank.txt", strings.NewReader("   "))
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Process(ctx, empty.ID), utils.ErrNoText)
	got, err := f.svc.GetFile(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusError, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)

	f.embedder.err = errors.New("embedding service down")
	text, err := f.svc.Upload(ctx, folder.ID, "cv.txt", strings.NewReader("Grace Hopper"))
	require.NoError(t, err)
	assert.Error(t, f.svc.Process(ctx, text.ID))
	got, err = f.svc.GetFile(ctx, text.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusError, got.Status)
	assert.Contains(t, got.ErrorMessage, "embedding service down")
}

func TestUploadValidationAndQueueFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newIngestFixture(t)

	_, err := f.svc.CreateFolder(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Upload(ctx, "missing", "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotFound)

	folder, err := f.svc.CreateFolder(ctx, "Resumes")
	require.NoError(t, err)
	_, err = f.svc.Upload(ctx, folder.ID, "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrValidation)

	f.tasks.err = errors.New("redis unavailable")
	file, err := f.svc.Upload(ctx, folder.ID, "a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusError, file.Status)

	files, err := f.svc.ListFiles(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, models.FileStatusError, files[0].Status)

	require.NoError(t, f.svc.DeleteFolder(ctx, folder.ID))
	_, err = f.svc.ListFiles(ctx, folder.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteFolder(ctx, folder.ID), ErrNotFound)
}

func TestTruncateUTF8(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", truncateUTF8("abc", 10))
	assert.Equal(t, "ab", truncateUTF8("abcdef", 2))
	assert.Equal(t, "a", truncateUTF8("aé", 2))
}
