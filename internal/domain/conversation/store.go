package conversation

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// DefaultMaxSessions bounds the in-memory session registry.
const DefaultMaxSessions = 1024

// InMemoryStore implements ports.ConversationStore with one Memory per session.
// The least recently used session is dropped when the registry is full.
type InMemoryStore struct {
	mu       sync.Mutex // serializes get-or-create, append and clear
	sessions *lru.Cache[string, *Memory]
	opts     []Option
}

// NewInMemoryStore creates a store holding at most maxSessions sessions.
// Each new session's Memory is built with opts.
func NewInMemoryStore(maxSessions int, opts ...Option) (*InMemoryStore, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	sessions, err := lru.New[string, *Memory](maxSessions)
	if err != nil {
		return nil, err
	}
	return &InMemoryStore{sessions: sessions, opts: opts}, nil
}

// Session returns the Memory for id, creating it if needed.
func (s *InMemoryStore) Session(id string) *Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session(id)
}

func (s *InMemoryStore) session(id string) *Memory {
	if m, ok := s.sessions.Get(id); ok {
		return m
	}
	m := NewMemory(s.opts...)
	s.sessions.Add(id, m)
	return m
}

// History returns the session's turns; an unknown session has none.
func (s *InMemoryStore) History(ctx context.Context, sessionID string) ([]entities.ConversationTurn, error) {
	m, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil
	}
	return m.Turns(), nil
}

// Append records turns for the session as one unit.
func (s *InMemoryStore) Append(ctx context.Context, sessionID string, turns ...entities.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session(sessionID).Append(turns...)
	return nil
}

// Clear forgets the session.
func (s *InMemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Remove(sessionID)
	return nil
}

// Sessions returns the number of live sessions.
func (s *InMemoryStore) Sessions() int {
	return s.sessions.Len()
}
