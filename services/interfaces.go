package services

import (
	"context"
	"io"

	"recruitreach/llm"
	"recruitreach/models"
)

// Notifier delivers a single message to a recipient.
type Notifier interface {
	TestConnection(ctx context.Context) bool
	Send(ctx context.Context, to, subject, body string, vars map[string]string) bool
}

// RecipientSource provides the outreach roster.
type RecipientSource interface {
	Recipients(ctx context.Context) ([]models.Recipient, error)
}

// Completer produces chat completions with optional tool calls.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Completion, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ObjectStore keeps uploaded files.
type ObjectStore interface {
	Put(key string, r io.Reader) (int64, error)
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// TaskQueue hands file ingestion work to background workers.
type TaskQueue interface {
	Push(ctx context.Context, fileID string) error
}
