// Package conversation keeps per-session question/answer history and renders
// it for prompt construction.
package conversation

import (
	"strings"
	"sync"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// Memory is the ordered log of one session's turns.
// It is unbounded unless a turn or token limit is configured, in which case the
// oldest turns are dropped first. Safe for concurrent use.
type Memory struct {
	mu          sync.Mutex
	turns       []entities.ConversationTurn
	tokens      []int
	totalTokens int

	maxTurns  int
	maxTokens int
	counter   ports.TokenCounter
}

// Option configures a Memory.
type Option func(*Memory)

// WithMaxTurns keeps at most n turns. n <= 0 means unbounded.
func WithMaxTurns(n int) Option {
	return func(m *Memory) {
		m.maxTurns = n
	}
}

// WithTokenLimit keeps the rendered history within max tokens as measured by counter.
func WithTokenLimit(counter ports.TokenCounter, max int) Option {
	return func(m *Memory) {
		if counter == nil || max <= 0 {
			return
		}
		m.counter = counter
		m.maxTokens = max
	}
}

// NewMemory creates an empty Memory.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RecordTurn appends one turn. It never reorders or deduplicates.
func (m *Memory) RecordTurn(role entities.Role, content string) {
	m.Append(entities.ConversationTurn{Role: role, Content: content})
}

// Append adds turns atomically, so a question/answer pair recorded by one
// request is never interleaved with another request's pair.
func (m *Memory) Append(turns ...entities.ConversationTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range turns {
		m.turns = append(m.turns, t)
		n := 0
		if m.counter != nil {
			n = m.counter.Count(renderTurn(t))
		}
		m.tokens = append(m.tokens, n)
		m.totalTokens += n
	}
	m.truncate()
}

func (m *Memory) truncate() {
	for len(m.turns) > 1 && m.overLimit() {
		m.totalTokens -= m.tokens[0]
		m.turns = m.turns[1:]
		m.tokens = m.tokens[1:]
	}
}

func (m *Memory) overLimit() bool {
	if m.maxTurns > 0 && len(m.turns) > m.maxTurns {
		return true
	}
	return m.maxTokens > 0 && m.totalTokens > m.maxTokens
}

// RenderHistory renders every turn as "<Label>: <content>" on its own line,
// in insertion order.
func (m *Memory) RenderHistory() string {
	return RenderTurns(m.Turns())
}

// Turns returns a copy of the history.
func (m *Memory) Turns() []entities.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]entities.ConversationTurn(nil), m.turns...)
}

// Len returns the number of turns held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.turns)
}

// Reset drops all turns.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = nil
	m.tokens = nil
	m.totalTokens = 0
}

// RenderTurns is the deterministic text form of a history.
func RenderTurns(turns []entities.ConversationTurn) string {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(renderTurn(t))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func renderTurn(t entities.ConversationTurn) string {
	return t.Role.Label() + ": " + t.Content
}
