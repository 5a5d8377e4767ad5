package memory

import (
	"context"
	"sync"

	"github.com/hupe1980/querymesh/core"
)

// InMemoryStore is a volatile Store keeping conversations in a process-local
// map. Each conversation carries its own lock, so contention is strictly
// per-key: concurrent appends to different conversations never block each
// other. Best suited for tests and single-process deployments.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	maxTurns      int
}

type conversation struct {
	mu    sync.Mutex
	turns []core.Turn
}

// InMemoryOptions configures an InMemoryStore.
type InMemoryOptions struct {
	// MaxTurns bounds retained history per conversation.
	MaxTurns int
}

// NewInMemoryStore constructs an empty store bounded by DefaultMaxTurns
// unless overridden.
func NewInMemoryStore(optFns ...func(o *InMemoryOptions)) *InMemoryStore {
	opts := InMemoryOptions{MaxTurns: DefaultMaxTurns}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{
		conversations: make(map[string]*conversation),
		maxTurns:      opts.MaxTurns,
	}
}

// Append implements Store.
func (s *InMemoryStore) Append(_ context.Context, conversationID string, turns ...core.Turn) error {
	conv := s.get(conversationID)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.turns = append(conv.turns, turns...)
	conv.turns = evictOldest(conv.turns, s.maxTurns)
	return nil
}

// History implements Store.
func (s *InMemoryStore) History(_ context.Context, conversationID string, maxTurns int) ([]core.Turn, error) {
	s.mu.RLock()
	conv, ok := s.conversations[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return window(conv.turns, maxTurns), nil
}

// Evict implements Store.
func (s *InMemoryStore) Evict(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	return nil
}

// Close implements Store. In-memory state needs no release.
func (s *InMemoryStore) Close() error { return nil }

// get returns the conversation, creating it under the write lock on first use.
func (s *InMemoryStore) get(conversationID string) *conversation {
	s.mu.RLock()
	conv, ok := s.conversations[conversationID]
	s.mu.RUnlock()
	if ok {
		return conv
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok = s.conversations[conversationID]; ok {
		return conv
	}
	conv = &conversation{}
	s.conversations[conversationID] = conv
	return conv
}
