package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const popTimeout = 5 * time.Second

// FileProcessor ingests a single uploaded file.
type FileProcessor interface {
	Process(ctx context.Context, fileID string) error
}

// FileWorker drains the ingestion queue with a fixed number of goroutines.
type FileWorker struct {
	tasks       TaskSource
	processor   FileProcessor
	concurrency int
	log         *logrus.Entry
	wg          sync.WaitGroup
}

func NewFileWorker(tasks TaskSource, processor FileProcessor, concurrency int, log *logrus.Entry) *FileWorker {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &FileWorker{
		tasks:       tasks,
		processor:   processor,
		concurrency: concurrency,
		log:         log.WithField("component", "file_worker"),
	}
}

// Start runs the workers until ctx is cancelled.
func (w *FileWorker) Start(ctx context.Context) {
	w.log.WithField("concurrency", w.concurrency).Info("Starting file worker")
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(n int) {
			defer w.wg.Done()
			w.run(ctx, n)
		}(i)
	}
}

// Wait blocks until every worker goroutine has returned.
func (w *FileWorker) Wait() {
	w.wg.Wait()
	w.log.Info("File worker stopped")
}

func (w *FileWorker) run(ctx context.Context, n int) {
	log := w.log.WithField("worker", n)
	for {
		if ctx.Err() != nil {
			return
		}

		fileID, err := w.tasks.Pop(ctx, popTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("Failed to fetch ingest task")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		if fileID == "" {
			continue
		}

		start := time.Now()
		if err := w.processor.Process(ctx, fileID); err != nil {
			log.WithError(err).WithField("file_id", fileID).Warn("File ingestion failed")
			continue
		}
		log.WithFields(logrus.Fields{
			"file_id":  fileID,
			"duration": time.Since(start).String(),
		}).Info("File ingested")
	}
}
