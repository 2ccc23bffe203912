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

func TestFileRepositoryLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewFileRepository(testutil.NewDB(t))

	folder := &models.Folder{ID: "folder-1", Name: "Q1 candidates"}
	require.NoError(t, repo.CreateFolder(ctx, folder))

	file := &models.File{
		ID:          "file-1",
		FolderID:    folder.ID,
		Filename:    "resume.pdf",
		StoragePath: "folder-1/file-1_resume.pdf",
		Size:        1024,
		Status:      models.FileStatusProcessing,
	}
	require.NoError(t, repo.CreateFile(ctx, file))
	require.NoError(t, repo.SaveEmbedding(ctx, &models.Embedding{
		ID: "emb-1", FileID: file.ID, FolderID: folder.ID, Vector: []float32{0.1, 0.2},
	}))

	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkVectorized(ctx, file.ID, at))

	got, err := repo.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusVectorized, got.Status)
	require.NotNil(t, got.VectorizedAt)
	assert.True(t, got.Done())

	embeddings, err := repo.ListEmbeddings(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	assert.Equal(t, []float32{0.1, 0.2}, embeddings[0].Vector)

	folders, err := repo.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Len(t, folders[0].Files, 1)

	require.NoError(t, repo.DeleteFolder(ctx, folder.ID))
	_, err = repo.GetFile(ctx, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	embeddings, err = repo.ListEmbeddings(ctx, file.ID)
	require.NoError(t, err)
	assert.Empty(t, embeddings)
	assert.ErrorIs(t, repo.DeleteFolder(ctx, folder.ID), ErrNotFound)
}

func TestFileRepositoryMarkError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewFileRepository(testutil.NewDB(t))

	require.NoError(t, repo.CreateFile(ctx, &models.File{
		ID: "file-2", FolderID: "f", Filename: "cv.txt", StoragePath: "f/file-2_cv.txt", Status: models.FileStatusProcessing,
	}))
	require.NoError(t, repo.MarkError(ctx, "file-2", "no text extracted"))

	got, err := repo.GetFile(ctx, "file-2")
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusError, got.Status)
	assert.Equal(t, "no text extracted", got.ErrorMessage)
	assert.ErrorIs(t, repo.MarkError(ctx, "missing", "x"), ErrNotFound)

	removed, err := repo.DeleteEmbeddings(ctx, "file-2")
	require.NoError(t, err)
	assert.Zero(t, removed)
	require.NoError(t, repo.DeleteFile(ctx, "file-2"))
	assert.ErrorIs(t, repo.DeleteFile(ctx, "file-2"), ErrNotFound)
}
