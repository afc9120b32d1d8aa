// Package dispatch executes the tool calls of one structured decision in
// parallel and turns every outcome, success or failure, into an observation
// string. Per-call failures never abort the iteration; they surface as
// failure-marker results so the next planning thought can react to them.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// ErrBudgetExceeded reports a dispatch attempted with a negative iteration
// budget. The whole call set is refused; no partial execution happens.
var ErrBudgetExceeded = errors.New("dispatch refused: iteration budget exhausted")

// Strategy executes one decision's call set against a transport.
//
// Dispatch returns exactly one result per input call, in input order.
// remainingBudget is the number of iterations the caller may still run after
// the current one; strategies that spawn nested routing loops bound them with
// it. Zero is valid (last iteration), negative is refused atomically.
type Strategy interface {
	Dispatch(ctx context.Context, calls []core.ToolCall, remainingBudget int, requestID string) ([]core.ToolCallResult, error)
	// Release frees transport resources. It must be safe to call more than
	// once and after a failed Dispatch.
	Release(ctx context.Context) error
}

// Factory creates the dispatch strategy of one routing run. The run owns the
// returned strategy and releases it when the run ends, so concurrent runs
// never share releasable transport state.
type Factory func(ctx context.Context) (Strategy, error)

// Shared returns a Factory handing the same strategy to every run. Only
// strategies whose Release leaves the transport usable qualify, like
// RemoteStrategy with its per-request HTTP clients.
func Shared(s Strategy) Factory {
	return func(context.Context) (Strategy, error) { return s, nil }
}

// callFunc executes a single call and reports its result plus whether the
// call failed (the result then carries a failure marker).
type callFunc func(ctx context.Context, call core.ToolCall) (core.ToolCallResult, bool)

// fanOut runs one goroutine per call and collects results in input order.
// Concurrency is bounded only by the size of the call set; the barrier waits
// for every call. A panicking call is converted into a failure-marker result
// so one bad handler cannot take down the whole iteration.
func fanOut(ctx context.Context, calls []core.ToolCall, transport core.TransportKind, logger *logging.RouterLogger, fn callFunc) []core.ToolCallResult {
	results := make([]core.ToolCallResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, call core.ToolCall) {
			defer wg.Done()

			defer func() {
				if r := recover(); r != nil {
					logger.Error("tool call panicked", "function", call.Function, "panic", fmt.Sprint(r))
					results[idx] = failureResult(call, transport, fmt.Errorf("panic: %v", r))
				}
			}()

			start := time.Now()
			result, failed := fn(ctx, call)
			results[idx] = result
			logger.LogDispatch(call.Function, string(transport), time.Since(start), failed)
		}(i, call)
	}
	wg.Wait()

	return results
}

// failureResult wraps a per-call error into the uniform failure-marker
// observation the planning stage expects.
func failureResult(call core.ToolCall, transport core.TransportKind, err error) core.ToolCallResult {
	return core.ToolCallResult{
		ToolCall:  call,
		Transport: transport,
		Result:    fmt.Sprintf("Error while calling tool %s: %v", call.Function, err),
	}
}
