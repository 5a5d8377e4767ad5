package memory

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/querymesh/core"
)

func newSQLiteStore(t *testing.T, optFns ...func(o *SQLOptions)) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	s, err := NewSQLStore(db, "sqlite3", optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStore_RoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	call := core.ToolCall{RequestID: "t1", Name: "lookup", Arguments: map[string]any{"q": "hotels"}}
	turns := []core.Turn{
		core.NewSystemTurn("be brief"),
		core.NewUserTurn("find hotels"),
		core.NewAssistantTurn("", call),
		core.NewToolTurn(call, `{"result":"found"}`),
		core.NewAssistantTurn("done"),
	}
	require.NoError(t, s.Append(ctx, "c1", turns...))

	got, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, core.RoleSystem, got[0].Role)
	assert.Equal(t, "find hotels", got[1].Content)
	require.Len(t, got[2].ToolCalls, 1)
	assert.Equal(t, "lookup", got[2].ToolCalls[0].Name)
	assert.Equal(t, "hotels", got[2].ToolCalls[0].Arguments["q"])
	assert.Equal(t, "done", got[4].Content)
}

func TestSQLStore_OrderingSurvivesSeparateAppends(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, "c1", core.NewUserTurn(fmt.Sprintf("msg %d", i))))
	}
	got, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, turn := range got {
		assert.Equal(t, fmt.Sprintf("msg %d", i), turn.Content)
	}
}

func TestSQLStore_EvictionPreservesSystemTurns(t *testing.T) {
	s := newSQLiteStore(t, func(o *SQLOptions) { o.MaxTurns = 4 })
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "c1", core.NewSystemTurn("rules")))
	for i := 0; i < 8; i++ {
		require.NoError(t, s.Append(ctx, "c1", core.NewUserTurn(fmt.Sprintf("msg %d", i))))
	}

	got, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, core.RoleSystem, got[0].Role)
	assert.Equal(t, "msg 7", got[3].Content)
}

func TestSQLStore_Window(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "c1", core.NewSystemTurn("rules")))
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append(ctx, "c1", core.NewUserTurn(fmt.Sprintf("msg %d", i))))
	}

	got, err := s.History(ctx, "c1", 3)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, core.RoleSystem, got[0].Role)
	assert.Equal(t, "msg 9", got[3].Content)
}

func TestSQLStore_Evict(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "c1", core.NewUserTurn("hi")))
	require.NoError(t, s.Evict(ctx, "c1"))

	got, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewSQLStore_RejectsUnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLStore(db, "oracle")
	assert.Error(t, err)
}
