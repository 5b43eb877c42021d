package vectordb

import (
	"math"
	"sort"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// cosineSimilarity returns 0 for mismatched or zero-length vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rank orders hits by score descending, then by document and chunk index so
// equal scores come back in a stable order, and keeps the best topK.
func rank(hits []entities.QueryResult, topK int) []entities.QueryResult {
	if topK <= 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.DocumentID != hits[j].Chunk.DocumentID {
			return hits[i].Chunk.DocumentID < hits[j].Chunk.DocumentID
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

func sourceName(c entities.Chunk) string {
	if c.SourceDoc != "" {
		return c.SourceDoc
	}
	return c.DocumentID
}
