package vectordb

import (
	"context"
	"testing"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

type countingStore interface {
	ports.VectorStore
	ChunkCount(ctx context.Context) (int, error)
}

// stores runs each test against both implementations.
func stores(t *testing.T) map[string]countingStore {
	t.Helper()
	sqlite, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]countingStore{
		"memory": NewInMemoryStore(),
		"sqlite": sqlite,
	}
}

func sampleChunks() []entities.Chunk {
	return []entities.Chunk{
		{ID: "c1", DocumentID: "doc1", SourceDoc: "report.pdf", Content: "hello", Index: 0, Embedding: []float32{1, 0, 0}},
		{ID: "c2", DocumentID: "doc1", SourceDoc: "report.pdf", Content: "world", Index: 1, Embedding: []float32{0, 1, 0}},
		{ID: "c3", DocumentID: "doc2", Content: "other", Index: 0, Embedding: []float32{0.7, 0.7, 0}},
	}
}

func TestVectorStores_StoreAndSearch(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Store(ctx, sampleChunks()); err != nil {
				t.Fatalf("store failed: %v", err)
			}

			results, err := store.Search(ctx, []float32{1, 0, 0}, 2)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if len(results) != 2 {
				t.Fatalf("expected 2 results, got %d", len(results))
			}
			if results[0].Chunk.ID != "c1" || results[1].Chunk.ID != "c3" {
				t.Errorf("unexpected ranking: %s, %s", results[0].Chunk.ID, results[1].Chunk.ID)
			}
			if results[0].SourceDoc != "report.pdf" {
				t.Errorf("expected source name, got %q", results[0].SourceDoc)
			}
			if results[1].SourceDoc != "doc2" {
				t.Errorf("source should fall back to document id, got %q", results[1].SourceDoc)
			}
			if len(results[0].Chunk.Embedding) != 3 {
				t.Error("embedding should round trip")
			}
		})
	}
}

func TestVectorStores_StoreReplacesByID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Store(ctx, sampleChunks())
			store.Store(ctx, []entities.Chunk{{ID: "c1", DocumentID: "doc1", Content: "updated", Embedding: []float32{1, 0, 0}}})

			count, _ := store.ChunkCount(ctx)
			if count != 3 {
				t.Errorf("expected 3 chunks, got %d", count)
			}
			results, _ := store.Search(ctx, []float32{1, 0, 0}, 1)
			if results[0].Chunk.Content != "updated" {
				t.Errorf("expected replaced content, got %q", results[0].Chunk.Content)
			}
		})
	}
}

func TestVectorStores_Delete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Store(ctx, sampleChunks())

			if err := store.Delete(ctx, "doc1"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			results, _ := store.Search(ctx, []float32{1, 0, 0}, 10)
			if len(results) != 1 || results[0].Chunk.DocumentID != "doc2" {
				t.Errorf("only doc2 should remain, got %+v", results)
			}
			if err := store.Delete(ctx, "missing"); err != nil {
				t.Errorf("deleting unknown document should succeed: %v", err)
			}
		})
	}
}

func TestVectorStores_Clear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Store(ctx, sampleChunks())
			store.Clear(ctx)

			count, _ := store.ChunkCount(ctx)
			if count != 0 {
				t.Errorf("expected 0 chunks after clear, got %d", count)
			}
		})
	}
}

func TestVectorStores_EmptySearch(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			results, err := store.Search(context.Background(), []float32{1, 0, 0}, 4)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if len(results) != 0 {
				t.Errorf("expected no results, got %d", len(results))
			}
		})
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	first.Store(ctx, sampleChunks())
	first.Close()

	second, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	count, _ := second.ChunkCount(ctx)
	if count != 3 {
		t.Errorf("expected 3 persisted chunks, got %d", count)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := cosineSimilarity(a, []float32{1, 0, 0}); got != 1.0 {
		t.Errorf("same vectors should score 1.0, got %f", got)
	}
	if got := cosineSimilarity(a, []float32{0, 1, 0}); got != 0.0 {
		t.Errorf("orthogonal vectors should score 0.0, got %f", got)
	}
	if got := cosineSimilarity(a, []float32{1, 0}); got != 0.0 {
		t.Errorf("mismatched lengths should score 0.0, got %f", got)
	}
}

func TestVectorEncoding(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	out, ok := decodeVector(encodeVector(in))
	if !ok || len(out) != 3 || out[1] != -1.25 {
		t.Errorf("unexpected decode: %v %v", out, ok)
	}
	if _, ok := decodeVector([]byte{1, 2, 3}); ok {
		t.Error("truncated blob should fail")
	}
}
