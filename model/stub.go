package model

import (
	"context"
	"fmt"
	"sync"
)

// StubModel is a scripted in-memory Model for tests and examples. Each call
// to Complete consumes the next scripted step; when the script runs out the
// stub keeps replaying its last step, which makes "always requests another
// tool" loops trivial to express.
type StubModel struct {
	mu    sync.Mutex
	steps []stubStep
	calls int
}

type stubStep struct {
	completion *Completion
	err        error
}

// NewStubModel constructs an empty stub. A stub with no script fails every
// call.
func NewStubModel() *StubModel { return &StubModel{} }

// Respond scripts a completion step.
func (m *StubModel) Respond(c Completion) *StubModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, stubStep{completion: &c})
	return m
}

// Fail scripts an error step.
func (m *StubModel) Fail(err error) *StubModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, stubStep{err: err})
	return m
}

// Calls reports how many times Complete was invoked.
func (m *StubModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements Model by replaying the script.
func (m *StubModel) Complete(_ context.Context, _ Request) (*Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.steps) == 0 {
		return nil, fmt.Errorf("%w: stub has no scripted steps", ErrReasoningUnavailable)
	}
	idx := m.calls - 1
	if idx >= len(m.steps) {
		idx = len(m.steps) - 1
	}
	step := m.steps[idx]
	if step.err != nil {
		return nil, step.err
	}
	c := *step.completion
	return &c, nil
}

// Info implements Model.
func (m *StubModel) Info() Info { return Info{Provider: "stub", SupportsTools: true} }
