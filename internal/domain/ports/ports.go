// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"
	"time"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, order preserved.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists and queries document embeddings.
type VectorStore interface {
	Store(ctx context.Context, chunks []entities.Chunk) error
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)
	Delete(ctx context.Context, documentID string) error
	Clear(ctx context.Context) error
}

// Retriever returns excerpts ranked by relevance, possibly none.
// Failures are reported as *entities.RetrievalError.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]entities.Excerpt, error)
}

// Generator answers a question from a prompt context. Blocking; no internal retry.
// Failures are reported as *entities.GenerationError.
type Generator interface {
	Generate(ctx context.Context, promptContext, question string) (string, error)
}

// AnswerCache memoizes answers by question. Safe for concurrent use.
type AnswerCache interface {
	// Get returns the cached answer and true, or "" and false when absent.
	Get(question string) (string, bool)
	Put(question, answer string)
}

// ConversationStore holds per-session conversation history.
type ConversationStore interface {
	// History returns the session's turns in insertion order.
	History(ctx context.Context, sessionID string) ([]entities.ConversationTurn, error)

	// Append adds turns to the end of the session's history as one unit.
	Append(ctx context.Context, sessionID string, turns ...entities.ConversationTurn) error

	// Clear drops the session's history.
	Clear(ctx context.Context, sessionID string) error
}

// TokenCounter measures text in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// DocumentLoader reads and parses documents from various formats.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*entities.Document, error)
	SupportedExtensions() []string
}

// Observer receives orchestration outcomes and stage timings.
type Observer interface {
	ObserveAnswer(outcome string, elapsed time.Duration)
	ObserveStage(stage string, elapsed time.Duration)
	ObserveCache(event string)
}

// Outcomes reported to Observer.ObserveAnswer.
const (
	OutcomeCached    = "cached"
	OutcomeAnswered  = "answered"
	OutcomeNoContext = "no_context"
	OutcomeFailed    = "failed"
)

// Stages reported to Observer.ObserveStage.
const (
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) ObserveAnswer(string, time.Duration) {}
func (NopObserver) ObserveStage(string, time.Duration)  {}
func (NopObserver) ObserveCache(string)                 {}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
