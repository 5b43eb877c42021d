package usecases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// DocumentIDFunc maps a file path to the ID its chunks are stored under.
type DocumentIDFunc func(path string) string

// SyncUseCase keeps the vector store in step with a watched directory.
type SyncUseCase struct {
	watcher  ports.FileWatcher
	ingest   *IngestUseCase
	docID    DocumentIDFunc
	debounce time.Duration
	logger   *zap.Logger
}

// NewSyncUseCase creates a SyncUseCase. Writes to the same file within
// debounce are collapsed into one re-ingest.
func NewSyncUseCase(watcher ports.FileWatcher, ingest *IngestUseCase, docID DocumentIDFunc, debounce time.Duration, logger *zap.Logger) *SyncUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncUseCase{
		watcher:  watcher,
		ingest:   ingest,
		docID:    docID,
		debounce: debounce,
		logger:   logger,
	}
}

// Run ingests what is already in dir, then applies changes until ctx ends.
func (uc *SyncUseCase) Run(ctx context.Context, dir string) error {
	events, err := uc.watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	results, err := uc.ingest.IngestPaths(ctx, []string{dir})
	if err != nil {
		uc.logger.Warn("initial sync incomplete", zap.String("dir", dir), zap.Error(err))
	}
	uc.logger.Info("initial sync done", zap.String("dir", dir), zap.Int("documents", len(results)))

	pending := make(map[string]ports.FileOperation)
	var flush <-chan time.Time
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			// last operation per path wins; create and modify both re-ingest
			pending[ev.Path] = ev.Operation
			if uc.debounce <= 0 {
				uc.apply(ctx, pending)
				pending = make(map[string]ports.FileOperation)
				continue
			}
			if timer == nil {
				timer = time.NewTimer(uc.debounce)
				flush = timer.C
			}
		case <-flush:
			uc.apply(ctx, pending)
			pending = make(map[string]ports.FileOperation)
			timer, flush = nil, nil
		}
	}
}

func (uc *SyncUseCase) apply(ctx context.Context, pending map[string]ports.FileOperation) {
	for path, op := range pending {
		log := uc.logger.With(zap.String("path", path))
		switch op {
		case ports.FileDeleted:
			if err := uc.ingest.Delete(ctx, uc.docID(path)); err != nil {
				log.Error("removing document", zap.Error(err))
				continue
			}
			log.Info("document removed")
		default:
			if _, err := uc.ingest.IngestFile(ctx, path); err != nil {
				log.Error("re-ingesting document", zap.Error(err))
			}
		}
	}
}
