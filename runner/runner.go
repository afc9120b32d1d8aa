// Package runner drives routing runs asynchronously and streams their
// process snapshots over channels. It sits on top of the pull-based router
// iterator for callers that prefer push delivery and cancellation by ID.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
	"github.com/hupe1980/agentrouter/router"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// SnapshotBufferSize sets channel buffering for process snapshots.
	SnapshotBufferSize int
	// DefaultMaxIterations bounds runs started without an explicit budget.
	DefaultMaxIterations int
	// Logging services.
	Logger *logging.RouterLogger
}

// Runner coordinates routing runs: it starts them, relays every iteration
// snapshot, and tracks active runs for cancellation. Public methods are safe
// for concurrent use.
type Runner struct {
	router *router.Router

	snapshotBufferSize   int
	defaultMaxIterations int
	logger               *logging.RouterLogger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(r *router.Router, optFns ...func(o *Options)) *Runner {
	opts := Options{
		SnapshotBufferSize:   16,
		DefaultMaxIterations: router.DefaultMaxIterations,
		Logger:               logging.NewLogger(nil).WithComponent("runner"),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		router:               r,
		snapshotBufferSize:   opts.SnapshotBufferSize,
		defaultMaxIterations: opts.DefaultMaxIterations,
		logger:               opts.Logger,
		activeRuns:           make(map[string]context.CancelFunc),
	}
}

// Route starts an asynchronous run for one question. Every iteration
// snapshot is delivered on the returned channel; both channels close when
// the run ends. maxIterations <= 0 selects the runner default.
func (r *Runner) Route(
	ctx context.Context,
	question string,
	maxIterations int,
) (string, <-chan core.RouterProcess, <-chan error, error) {
	if maxIterations <= 0 {
		maxIterations = r.defaultMaxIterations
	}

	run, err := r.router.RouteQuestion(ctx, question, maxIterations, "")
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to start run: %w", err)
	}

	requestID := run.Process().RequestID
	snapshotCh := make(chan core.RouterProcess, r.snapshotBufferSize)
	errorCh := make(chan error, 1)

	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[requestID] = cancel
	r.mu.Unlock()

	go func() {
		defer func() {
			close(snapshotCh)
			close(errorCh)
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, requestID)
			r.mu.Unlock()
		}()
		defer run.Close(context.WithoutCancel(runCtx))

		r.drive(runCtx, run, snapshotCh, errorCh)
	}()

	return requestID, snapshotCh, errorCh, nil
}

// Cancel cancels a running run by request ID.
func (r *Runner) Cancel(requestID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[requestID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", requestID)
	}

	cancel()

	return nil
}

func (r *Runner) drive(
	ctx context.Context,
	run *router.Run,
	snapshotCh chan<- core.RouterProcess,
	errorCh chan<- error,
) {
	for {
		snapshot, done, err := run.Step(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
			case errorCh <- fmt.Errorf("run execution failed: %w", err):
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case snapshotCh <- snapshot:
			r.logger.Debug("runner delivered snapshot",
				"request_id", snapshot.RequestID, "iterations", len(snapshot.History))
		}

		if done {
			return
		}
	}
}
