package conversation

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// wordCounter counts whitespace separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func TestMemory_RenderPreservesOrder(t *testing.T) {
	m := NewMemory()
	m.RecordTurn(entities.RoleHuman, "first question")
	m.RecordTurn(entities.RoleAssistant, "second answer")
	m.RecordTurn(entities.RoleHuman, "third question")

	out := m.RenderHistory()
	first := strings.Index(out, "first question")
	second := strings.Index(out, "second answer")
	third := strings.Index(out, "third question")

	require.True(t, first >= 0 && second >= 0 && third >= 0, "all turns rendered: %q", out)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestMemory_RenderFormat(t *testing.T) {
	m := NewMemory()
	m.RecordTurn(entities.RoleHuman, "What is X?")
	m.RecordTurn(entities.RoleAssistant, "X is Y")

	assert.Equal(t, "User: What is X?\nBot: X is Y\n", m.RenderHistory())
}

func TestMemory_EmptyRendersEmpty(t *testing.T) {
	assert.Equal(t, "", NewMemory().RenderHistory())
}

func TestMemory_NoDeduplication(t *testing.T) {
	m := NewMemory()
	m.RecordTurn(entities.RoleHuman, "same")
	m.RecordTurn(entities.RoleHuman, "same")

	assert.Equal(t, 2, m.Len())
}

func TestMemory_MaxTurnsDropsOldest(t *testing.T) {
	m := NewMemory(WithMaxTurns(2))
	m.RecordTurn(entities.RoleHuman, "q1")
	m.RecordTurn(entities.RoleAssistant, "a1")
	m.RecordTurn(entities.RoleHuman, "q2")

	turns := m.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "a1", turns[0].Content)
	assert.Equal(t, "q2", turns[1].Content)
}

func TestMemory_TokenLimitDropsOldest(t *testing.T) {
	// "User: one two three" is 4 words, "Bot: four five" is 3.
	m := NewMemory(WithTokenLimit(wordCounter{}, 5))
	m.RecordTurn(entities.RoleHuman, "one two three")
	m.RecordTurn(entities.RoleAssistant, "four five")

	turns := m.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "four five", turns[0].Content)
}

func TestMemory_TokenLimitKeepsLastTurn(t *testing.T) {
	m := NewMemory(WithTokenLimit(wordCounter{}, 1))
	m.RecordTurn(entities.RoleHuman, "far too many words for the limit")

	assert.Equal(t, 1, m.Len())
}

func TestMemory_ConcurrentPairsStayAdjacent(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := strings.Repeat("q", i+1)
			m.Append(entities.HumanTurn(q), entities.AssistantTurn(strings.ToUpper(q)))
		}(i)
	}
	wg.Wait()

	turns := m.Turns()
	require.Len(t, turns, 100)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, entities.RoleHuman, turns[i].Role)
		assert.Equal(t, entities.RoleAssistant, turns[i+1].Role)
		assert.Equal(t, strings.ToUpper(turns[i].Content), turns[i+1].Content)
	}
}

func TestMemory_Reset(t *testing.T) {
	m := NewMemory()
	m.RecordTurn(entities.RoleHuman, "hello")
	m.Reset()

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.RenderHistory())
}

func TestInMemoryStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store, err := NewInMemoryStore(10)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "alice", entities.HumanTurn("q-a"), entities.AssistantTurn("a-a")))
	require.NoError(t, store.Append(ctx, "bob", entities.HumanTurn("q-b")))

	alice, err := store.History(ctx, "alice")
	require.NoError(t, err)
	bob, err := store.History(ctx, "bob")
	require.NoError(t, err)

	assert.Len(t, alice, 2)
	assert.Len(t, bob, 1)
	assert.Equal(t, "q-b", bob[0].Content)
}

func TestInMemoryStore_UnknownSessionIsEmpty(t *testing.T) {
	store, err := NewInMemoryStore(10)
	require.NoError(t, err)

	turns, err := store.History(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Equal(t, 0, store.Sessions(), "reading must not create a session")
}

func TestInMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, err := NewInMemoryStore(10)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "s1", entities.HumanTurn("hi")))
	require.NoError(t, store.Clear(ctx, "s1"))

	turns, _ := store.History(ctx, "s1")
	assert.Empty(t, turns)
}

func TestInMemoryStore_EvictsLeastRecentSession(t *testing.T) {
	ctx := context.Background()
	store, err := NewInMemoryStore(2)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "s1", entities.HumanTurn("1")))
	require.NoError(t, store.Append(ctx, "s2", entities.HumanTurn("2")))
	_, _ = store.History(ctx, "s1") // touch s1
	require.NoError(t, store.Append(ctx, "s3", entities.HumanTurn("3")))

	s2, _ := store.History(ctx, "s2")
	s1, _ := store.History(ctx, "s1")
	assert.Empty(t, s2)
	assert.Len(t, s1, 1)
	assert.Equal(t, 2, store.Sessions())
}

func TestInMemoryStore_AppliesMemoryOptions(t *testing.T) {
	ctx := context.Background()
	store, err := NewInMemoryStore(10, WithMaxTurns(2))
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "s", entities.HumanTurn("q1"), entities.AssistantTurn("a1")))
	require.NoError(t, store.Append(ctx, "s", entities.HumanTurn("q2"), entities.AssistantTurn("a2")))

	turns, _ := store.History(ctx, "s")
	require.Len(t, turns, 2)
	assert.Equal(t, "q2", turns[0].Content)
}

func TestInMemoryStore_AppendAndClearInterleave(t *testing.T) {
	store, err := NewInMemoryStore(4)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Append(ctx, "s", entities.HumanTurn("q"), entities.AssistantTurn("a"))
		}()
		go func() {
			defer wg.Done()
			store.Clear(ctx, "s")
		}()
		wg.Wait()

		// Either the clear won or the whole round is present.
		turns, err := store.History(ctx, "s")
		require.NoError(t, err)
		require.Contains(t, []int{0, 2}, len(turns))
		store.Clear(ctx, "s")
	}

	require.NoError(t, store.Append(ctx, "s", entities.HumanTurn("q"), entities.AssistantTurn("a")))
	turns, _ := store.History(ctx, "s")
	assert.Len(t, turns, 2)
}
