// Package vectordb provides vector store adapters implementing ports.VectorStore.
// Both stores search by brute-force cosine similarity.
package vectordb

import (
	"context"
	"sync"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// InMemoryStore keeps chunks in process memory. Contents are lost on exit.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]entities.Chunk      // chunkID -> chunk
	docs   map[string]map[string]struct{} // docID -> chunkIDs
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chunks: make(map[string]entities.Chunk),
		docs:   make(map[string]map[string]struct{}),
	}
}

// Store saves chunks, replacing any chunk with the same ID.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if old, ok := s.chunks[chunk.ID]; ok && old.DocumentID != chunk.DocumentID {
			delete(s.docs[old.DocumentID], chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
		ids, ok := s.docs[chunk.DocumentID]
		if !ok {
			ids = make(map[string]struct{})
			s.docs[chunk.DocumentID] = ids
		}
		ids[chunk.ID] = struct{}{}
	}
	return nil
}

// Search returns the topK chunks most similar to embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	hits := make([]entities.QueryResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		hits = append(hits, entities.QueryResult{
			Chunk:     chunk,
			Score:     cosineSimilarity(embedding, chunk.Embedding),
			SourceDoc: sourceName(chunk),
		})
	}
	s.mu.RUnlock()

	return rank(hits, topK), nil
}

// Delete removes all chunks for a document. Unknown documents are ignored.
func (s *InMemoryStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.docs[documentID] {
		delete(s.chunks, id)
	}
	delete(s.docs, documentID)
	return nil
}

// Clear removes all chunks.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]entities.Chunk)
	s.docs = make(map[string]map[string]struct{})
	return nil
}

// ChunkCount returns the number of stored chunks.
func (s *InMemoryStore) ChunkCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.chunks), nil
}
