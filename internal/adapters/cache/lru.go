// Package cache provides the bounded answer cache.
package cache

import (
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/atomic"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 100

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Len       int
	Capacity  int
}

// AnswerCache memoizes question -> answer with least-recently-used eviction.
// Keys are the question with surrounding whitespace trimmed; case is kept.
//
// A single mutex covers lookup with promotion and insert with eviction.
// simplelru is not safe for concurrent use on its own.
type AnswerCache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, string]
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewAnswerCache creates a cache holding at most capacity answers.
func NewAnswerCache(capacity int) (*AnswerCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &AnswerCache{capacity: capacity}
	l, err := simplelru.NewLRU[string, string](capacity, func(string, string) {
		c.evictions.Inc()
	})
	if err != nil {
		return nil, &entities.CacheError{Err: err}
	}
	c.lru = l
	return c, nil
}

// Key is the normalized cache key for a question.
func Key(question string) string {
	return strings.TrimSpace(question)
}

// Get returns the answer for question and marks it most recently used.
func (c *AnswerCache) Get(question string) (string, bool) {
	c.mu.Lock()
	answer, ok := c.lru.Get(Key(question))
	c.mu.Unlock()

	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return answer, ok
}

// Peek returns the answer without counting the lookup or changing recency.
func (c *AnswerCache) Peek(question string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Peek(Key(question))
}

// Put stores the answer, replacing any previous value for the same question.
// When full, exactly one least recently used entry is evicted.
func (c *AnswerCache) Put(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(Key(question), answer)
}

// Len returns the number of cached answers.
func (c *AnswerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

// Stats returns a snapshot of the counters and current occupancy.
func (c *AnswerCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Len:       c.Len(),
		Capacity:  c.capacity,
	}
}
