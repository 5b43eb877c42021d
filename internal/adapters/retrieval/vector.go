// Package retrieval adapts an embedder and a vector store to ports.Retriever.
package retrieval

import (
	"context"
	"strconv"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// Source metadata keys set on every excerpt.
const (
	SourceDocument = "source"
	SourceDocID    = "document_id"
	SourceChunk    = "chunk_id"
	SourceIndex    = "chunk_index"
	SourceScore    = "score"
)

// VectorRetriever embeds the question and returns the closest chunks.
type VectorRetriever struct {
	embedder ports.EmbeddingService
	store    ports.VectorStore
	minScore float64
}

// NewVectorRetriever creates a retriever. Hits scoring below minScore are dropped;
// zero keeps everything.
func NewVectorRetriever(embedder ports.EmbeddingService, store ports.VectorStore, minScore float64) *VectorRetriever {
	return &VectorRetriever{embedder: embedder, store: store, minScore: minScore}
}

// Retrieve returns up to k excerpts in relevance order. An empty result is not an error.
func (r *VectorRetriever) Retrieve(ctx context.Context, question string, k int) ([]entities.Excerpt, error) {
	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &entities.RetrievalError{Op: "embed", Err: err}
	}

	results, err := r.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, &entities.RetrievalError{Op: "search", Err: err}
	}

	excerpts := make([]entities.Excerpt, 0, len(results))
	for _, res := range results {
		if r.minScore > 0 && res.Score < r.minScore {
			continue
		}
		excerpts = append(excerpts, entities.Excerpt{
			Text: res.Chunk.Content,
			Source: map[string]string{
				SourceDocument: res.SourceDoc,
				SourceDocID:    res.Chunk.DocumentID,
				SourceChunk:    res.Chunk.ID,
				SourceIndex:    strconv.Itoa(res.Chunk.Index),
				SourceScore:    strconv.FormatFloat(res.Score, 'f', 4, 64),
			},
		})
	}
	return excerpts, nil
}
