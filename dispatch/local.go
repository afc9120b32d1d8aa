package dispatch

import (
	"context"
	"sync"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// ToolSession is a live connection to the local tool server. The toolserver
// package provides the production implementation.
type ToolSession interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	Close(ctx context.Context) error
}

// LocalStrategyOptions configures a LocalStrategy.
type LocalStrategyOptions struct {
	Logger *logging.RouterLogger
}

// LocalStrategy dispatches calls to the local tool-server session. It owns
// the session and closes it on Release.
type LocalStrategy struct {
	session   ToolSession
	logger    *logging.RouterLogger
	closeOnce sync.Once
	closeErr  error
}

// NewLocalStrategy wraps an open tool session into a dispatch strategy.
func NewLocalStrategy(session ToolSession, optFns ...func(o *LocalStrategyOptions)) *LocalStrategy {
	opts := LocalStrategyOptions{
		Logger: logging.NewLogger(nil).WithComponent("dispatch"),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &LocalStrategy{session: session, logger: opts.Logger}
}

// Dispatch implements Strategy.
func (s *LocalStrategy) Dispatch(ctx context.Context, calls []core.ToolCall, remainingBudget int, requestID string) ([]core.ToolCallResult, error) {
	if remainingBudget < 0 {
		return nil, ErrBudgetExceeded
	}

	logger := s.logger.WithRequest(requestID)
	return fanOut(ctx, calls, core.TransportLocal, logger, func(ctx context.Context, call core.ToolCall) (core.ToolCallResult, bool) {
		text, err := s.session.CallTool(ctx, call.Function, call.Args)
		if err != nil {
			return failureResult(call, core.TransportLocal, err), true
		}
		return core.ToolCallResult{
			ToolCall:  call,
			Transport: core.TransportLocal,
			Result:    text,
		}, false
	}), nil
}

// Release implements Strategy; closing the underlying session is idempotent.
func (s *LocalStrategy) Release(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.session.Close(ctx)
	})
	return s.closeErr
}
