// Package memory tracks per-conversation turn history consumed by the agent
// router. Stores are bounded: when a conversation exceeds its turn budget the
// oldest non-system turns are dropped first; system turns are never evicted.
//
// Concurrency contract: appends to the same conversation are serialized,
// appends to different conversations proceed independently.
package memory

import (
	"context"

	"github.com/hupe1980/querymesh/core"
)

// DefaultMaxTurns bounds a conversation's retained history.
const DefaultMaxTurns = 50

// DefaultContextWindow is the history window handed to the reasoning step
// when the caller does not ask for more.
const DefaultContextWindow = 10

// Store persists conversation state. Implementations own the turn sequence
// exclusively; callers receive copies and must treat turns as immutable.
type Store interface {
	// Append adds turns to the conversation in order, creating it on first
	// use, and applies the eviction bound afterwards.
	Append(ctx context.Context, conversationID string, turns ...core.Turn) error

	// History returns the conversation's ordered turns. A positive maxTurns
	// limits the result to the most recent turns, except that retained
	// system turns are always included.
	History(ctx context.Context, conversationID string, maxTurns int) ([]core.Turn, error)

	// Evict destroys the conversation's state.
	Evict(ctx context.Context, conversationID string) error

	// Close releases any backing resources.
	Close() error
}

// window applies the History limit: the most recent maxTurns turns plus any
// system turns that would otherwise fall outside the window.
func window(turns []core.Turn, maxTurns int) []core.Turn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		out := make([]core.Turn, len(turns))
		copy(out, turns)
		return out
	}
	cut := len(turns) - maxTurns
	out := make([]core.Turn, 0, maxTurns)
	for _, t := range turns[:cut] {
		if t.IsSystem() {
			out = append(out, t)
		}
	}
	return append(out, turns[cut:]...)
}

// evictOldest drops oldest non-system turns until the sequence fits the
// bound. System turns only are never dropped, even if they alone exceed it.
func evictOldest(turns []core.Turn, maxTurns int) []core.Turn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		return turns
	}
	excess := len(turns) - maxTurns
	out := turns[:0]
	for _, t := range turns {
		if excess > 0 && !t.IsSystem() {
			excess--
			continue
		}
		out = append(out, t)
	}
	return out
}
