package usecases

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// chanWatcher replays events pushed by the test.
type chanWatcher struct {
	events chan ports.FileEvent
}

func (w *chanWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	return w.events, nil
}

func (w *chanWatcher) Stop() error { return nil }

func identity(path string) string { return path }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSyncUseCase_InitialAndIncremental(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.txt")
	os.WriteFile(existing, []byte("already here"), 0o644)

	store := &mockVectorStore{}
	ingest := NewIngestUseCase(&mockEmbedder{}, store, fileLoader{}, 100, 10)
	watcher := &chanWatcher{events: make(chan ports.FileEvent, 4)}
	syncer := NewSyncUseCase(watcher, ingest, identity, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx, dir) }()

	waitFor(t, func() bool {
		chunks, _ := store.snapshot()
		return len(chunks) == 1
	})

	added := filepath.Join(dir, "added.txt")
	os.WriteFile(added, []byte("new file"), 0o644)
	watcher.events <- ports.FileEvent{Path: added, Operation: ports.FileCreated}

	waitFor(t, func() bool {
		chunks, _ := store.snapshot()
		return len(chunks) == 2
	})

	watcher.events <- ports.FileEvent{Path: existing, Operation: ports.FileDeleted}
	waitFor(t, func() bool {
		chunks, _ := store.snapshot()
		return len(chunks) == 1 && chunks[0].DocumentID == added
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop on cancel")
	}
}

func TestSyncUseCase_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "busy.txt")
	os.WriteFile(path, []byte("v1"), 0o644)

	store := &mockVectorStore{}
	ingest := NewIngestUseCase(&mockEmbedder{}, store, fileLoader{}, 100, 10)
	watcher := &chanWatcher{events: make(chan ports.FileEvent, 8)}
	syncer := NewSyncUseCase(watcher, ingest, identity, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go syncer.Run(ctx, dir)

	// initial sync deletes once before storing
	waitFor(t, func() bool {
		_, deleted := store.snapshot()
		return len(deleted) == 1
	})

	for i := 0; i < 5; i++ {
		watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileModified}
	}

	waitFor(t, func() bool {
		_, deleted := store.snapshot()
		return len(deleted) == 2
	})
	time.Sleep(100 * time.Millisecond)
	if _, deleted := store.snapshot(); len(deleted) != 2 {
		t.Errorf("burst should re-ingest once, got %d ingests", len(deleted))
	}
}
