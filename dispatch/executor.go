// Package dispatch executes validated tool calls with isolation, time bounds
// and result normalization. A handler failure (error, panic or overrun) is
// converted into a typed error at this boundary and never propagates into
// the router or crashes the serving process.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/tool"
)

// Result is the normalized outcome of one tool invocation. Exactly one of
// Value or Err is meaningful.
type Result struct {
	RequestID string        `json:"request_id"`
	Tool      string        `json:"tool"`
	Value     any           `json:"value,omitempty"`
	Err       error         `json:"-"`
	Duration  time.Duration `json:"duration"`
}

// Options configures an Executor.
type Options struct {
	// Timeout bounds every handler invocation. On expiry the executor
	// returns immediately with a tool.TimeoutError; the handler's context is
	// cancelled but the executor does not wait for it to stop.
	Timeout time.Duration

	// MaxParallel caps concurrent handler invocations within one batch.
	MaxParallel int64

	// Logger receives per-invocation records.
	Logger logging.Logger
}

// Executor is the concurrency core of the framework. It is safe for
// concurrent use by any number of in-flight conversation turns.
type Executor struct {
	timeout     time.Duration
	maxParallel int64
	logger      logging.Logger

	inflight sync.WaitGroup
}

// NewExecutor builds an executor with a 15s timeout and a fan-out width of 4
// unless overridden.
func NewExecutor(optFns ...func(o *Options)) *Executor {
	opts := Options{
		Timeout:     15 * time.Second,
		MaxParallel: 4,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	return &Executor{timeout: opts.Timeout, maxParallel: opts.MaxParallel, logger: opts.Logger}
}

// Execute invokes one validated call under the configured timeout. Handler
// errors and panics come back as *tool.ExecutionError, overruns as
// *tool.TimeoutError. Caller cancellation stops the wait, not necessarily
// the handler.
func (e *Executor) Execute(ctx context.Context, call *tool.ValidatedCall) Result {
	name := call.Descriptor.Name
	start := time.Now()

	callCtx, cancel := context.WithCancel(ctx)

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("dispatch.tool.panic", "tool", name, "recover", r, "stack", string(debug.Stack()))
				done <- outcome{err: &tool.ExecutionError{Tool: name, Cause: fmt.Errorf("panic: %v", r)}}
			}
		}()
		value, err := call.Handler.Call(callCtx, call.Invocation.Arguments)
		done <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	var res Result
	select {
	case out := <-done:
		cancel()
		res = Result{RequestID: call.Invocation.RequestID, Tool: name, Value: out.value, Err: normalize(name, out.err)}
	case <-timer.C:
		cancel() // best-effort abandonment signal; do not wait for the handler
		res = Result{RequestID: call.Invocation.RequestID, Tool: name, Err: &tool.TimeoutError{Tool: name, Timeout: e.timeout}}
	case <-ctx.Done():
		cancel()
		res = Result{RequestID: call.Invocation.RequestID, Tool: name, Err: &tool.ExecutionError{Tool: name, Cause: ctx.Err()}}
	}
	res.Duration = time.Since(start)

	e.logger.Info("dispatch.tool.executed",
		"tool", name,
		"request_id", call.Invocation.RequestID,
		"duration_ms", res.Duration.Milliseconds(),
		"error", res.Err != nil,
	)
	return res
}

// ExecuteBatch fans the calls out in parallel, bounded by MaxParallel, and
// returns results re-ordered to match the request order regardless of
// completion order. The transcript depends on that ordering; individual
// results do not.
func (e *Executor) ExecuteBatch(ctx context.Context, calls []*tool.ValidatedCall) []Result {
	n := len(calls)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []Result{e.Execute(ctx, calls[0])}
	}

	results := make([]Result, n)
	sem := semaphore.NewWeighted(e.maxParallel)
	var wg sync.WaitGroup

	for i, call := range calls {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = Result{
				RequestID: call.Invocation.RequestID,
				Tool:      call.Descriptor.Name,
				Err:       &tool.ExecutionError{Tool: call.Descriptor.Name, Cause: err},
			}
			continue
		}
		wg.Add(1)
		go func(idx int, c *tool.ValidatedCall) {
			defer wg.Done()
			defer sem.Release(1)
			results[idx] = e.Execute(ctx, c)
		}(i, call)
	}
	wg.Wait()
	return results
}

// Drain blocks until every in-flight handler has returned or the context
// expires. Abandoned handlers may still be running; Drain gives them the
// context's grace period and no more.
func (e *Executor) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// normalize wraps handler errors into *tool.ExecutionError unless they are
// already one of the tool error kinds.
func normalize(name string, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *tool.ExecutionError, *tool.TimeoutError:
		return err
	}
	return &tool.ExecutionError{Tool: name, Cause: err}
}
