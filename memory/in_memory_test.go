package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/internal/testutil"
)

func TestInMemoryStore_AppendAndHistory(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	turns := testutil.NewConversationBuilder().
		System("be brief").
		User("hi").
		Assistant("hello").
		Build()
	require.NoError(t, s.Append(ctx, "c1", turns...))

	got, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, core.RoleSystem, got[0].Role)
	assert.Equal(t, "hello", got[2].Content)

	// Unknown conversations are empty, not an error.
	got, err = s.History(ctx, "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInMemoryStore_WindowKeepsSystemTurns(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	b := testutil.NewConversationBuilder().System("rules")
	for i := 0; i < 20; i++ {
		b.User(fmt.Sprintf("msg %d", i))
	}
	require.NoError(t, s.Append(ctx, "c1", b.Build()...))

	got, err := s.History(ctx, "c1", 5)
	require.NoError(t, err)
	// 5 most recent plus the system turn from outside the window.
	require.Len(t, got, 6)
	assert.Equal(t, core.RoleSystem, got[0].Role)
	assert.Equal(t, "msg 19", got[5].Content)
}

func TestInMemoryStore_EvictionPreservesSystemTurns(t *testing.T) {
	s := NewInMemoryStore(func(o *InMemoryOptions) { o.MaxTurns = 5 })
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "c1", core.NewSystemTurn("rules")))
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append(ctx, "c1", core.NewUserTurn(fmt.Sprintf("msg %d", i))))
	}

	got, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, core.RoleSystem, got[0].Role)
	assert.Equal(t, "msg 9", got[4].Content)
}

func TestInMemoryStore_Evict(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "c1", core.NewUserTurn("hi")))
	require.NoError(t, s.Evict(ctx, "c1"))

	got, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInMemoryStore_HistoryReturnsCopy(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "c1", core.NewUserTurn("original")))

	got, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	got[0].Content = "mutated"

	again, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}

func TestInMemoryStore_ConcurrentConversations(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", n)
			for i := 0; i < 25; i++ {
				_ = s.Append(ctx, id, core.NewUserTurn(fmt.Sprintf("msg %d", i)))
			}
		}(c)
	}
	wg.Wait()

	for c := 0; c < 8; c++ {
		got, err := s.History(ctx, fmt.Sprintf("c%d", c), 0)
		require.NoError(t, err)
		assert.Len(t, got, 25)
	}
}

func TestWindow(t *testing.T) {
	turns := testutil.NewConversationBuilder().
		User("a").User("b").User("c").
		Build()

	assert.Len(t, window(turns, 0), 3)
	assert.Len(t, window(turns, 10), 3)

	tail := window(turns, 2)
	require.Len(t, tail, 2)
	assert.Equal(t, "b", tail[0].Content)
}
