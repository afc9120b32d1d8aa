// Package router implements the iterative routing engine: think, act,
// observe, repeat. Each iteration runs the three thought stages, dispatches
// the decided calls in parallel and folds the observations back into the
// process before the next turn.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/dispatch"
	"github.com/hupe1980/agentrouter/logging"
	"github.com/hupe1980/agentrouter/reasoning"
	"github.com/hupe1980/agentrouter/thought"
)

// Terminal error messages surfaced on the process.
const (
	// msgNoActions ends a run whose structured decision carried neither
	// calls nor a final answer.
	msgNoActions = "No agent calls found. Please try rephrasing your question."
	// msgLoopDetected ends a run that repeated an earlier call set verbatim.
	msgLoopDetected = "Routing was stopped because the router was repeating the same queries without progress."
	// msgBudgetExhausted marks a run that ran out of iterations. The process
	// state still reports budget exhaustion, not a generic error.
	msgBudgetExhausted = "Maximum number of iterations reached."
)

// DefaultMaxIterations bounds a run when the caller passes no explicit budget.
const DefaultMaxIterations = 10

// Options configures a Router.
type Options struct {
	Logger *logging.RouterLogger
	// StructuredProvider runs the extraction stage on a separate (usually
	// cheaper, colder) model. Defaults to the main provider.
	StructuredProvider reasoning.Provider
	// ExtendedSystemPrompt adds deployment-specific guidance to the planning
	// stage.
	ExtendedSystemPrompt string
}

// Router routes questions across a fixed tool catalog. It is immutable after
// construction and safe for concurrent runs: every run acquires its own
// dispatch strategy from the factory and releases it when the run ends.
type Router struct {
	generator   *thought.Generator
	newStrategy dispatch.Factory
	tools       []core.DeclaredTool
	logger      *logging.RouterLogger
}

// New creates a Router.
func New(provider reasoning.Provider, newStrategy dispatch.Factory, tools []core.DeclaredTool, optFns ...func(o *Options)) *Router {
	opts := Options{
		Logger: logging.NewLogger(nil).WithComponent("router"),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	generator := thought.NewGenerator(provider, func(o *thought.GeneratorOptions) {
		o.Logger = opts.Logger.WithComponent("thought")
		o.StructuredProvider = opts.StructuredProvider
		o.ExtendedSystemPrompt = opts.ExtendedSystemPrompt
	})

	return &Router{
		generator:   generator,
		newStrategy: newStrategy,
		tools:       tools,
		logger:      opts.Logger,
	}
}

// Tools returns the declared tool catalog of this router.
func (r *Router) Tools() []core.DeclaredTool { return r.tools }

// RouteQuestion starts a run for one question and returns its pull iterator.
// The run acquires its own dispatch strategy, so parallel and back-to-back
// runs on the same Router do not interfere. maxIterations <= 0 selects
// DefaultMaxIterations; an empty requestID gets a generated one. The caller
// must drive the Run via Step and Close it when abandoning the run early; a
// run stepped to completion closes itself.
func (r *Router) RouteQuestion(ctx context.Context, question string, maxIterations int, requestID string) (*Run, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	process, err := core.NewRouterProcess(requestID, question, maxIterations, r.tools)
	if err != nil {
		return nil, fmt.Errorf("route question: %w", err)
	}

	strategy, err := r.newStrategy(ctx)
	if err != nil {
		return nil, fmt.Errorf("route question: %w", err)
	}

	logger := r.logger.WithRequest(process.RequestID)
	logger.Info("routing started", "question", question, "max_iterations", maxIterations)

	return &Run{router: r, strategy: strategy, process: process, logger: logger}, nil
}

// Route runs a question to completion and returns the final process snapshot.
// It is the convenience wrapper around RouteQuestion for callers that do not
// need intermediate snapshots.
func (r *Router) Route(ctx context.Context, question string, maxIterations int, requestID string) (core.RouterProcess, error) {
	run, err := r.RouteQuestion(ctx, question, maxIterations, requestID)
	if err != nil {
		return core.RouterProcess{}, err
	}
	defer run.Close(ctx)

	for {
		snapshot, done, err := run.Step(ctx)
		if err != nil {
			return snapshot, err
		}
		if done {
			return snapshot, nil
		}
	}
}

// Run is the pull iterator over one routing process. Each Step executes at
// most one full iteration and returns an immutable snapshot. Run is not safe
// for concurrent Step calls.
type Run struct {
	router   *Router
	strategy dispatch.Strategy
	process  core.RouterProcess
	logger   *logging.RouterLogger

	closeOnce sync.Once
	closeErr  error
	finished  bool
}

// Process returns the current process snapshot without advancing the run.
func (run *Run) Process() core.RouterProcess { return run.process }

// Close releases the dispatch strategy owned by this run. Idempotent;
// stepping a run to its terminal state closes it automatically.
func (run *Run) Close(ctx context.Context) error {
	run.closeOnce.Do(func() {
		run.closeErr = run.strategy.Release(ctx)
	})
	return run.closeErr
}

// Step advances the run by one iteration. done is true once the process is
// terminal; further Steps return the final snapshot unchanged. All routing
// failures are folded into the process as terminal errors, so err is reserved
// for broken engine invariants.
func (run *Run) Step(ctx context.Context) (core.RouterProcess, bool, error) {
	if run.process.Terminal() {
		return run.finish(ctx)
	}

	index := len(run.process.History)
	run.logger.Info("iteration started", "iteration", index)

	todoThought, err := run.router.generator.Todo(ctx, run.process)
	if err != nil {
		return run.fail(ctx, err)
	}

	planningThought, err := run.router.generator.Planning(ctx, run.process, todoThought)
	if err != nil {
		return run.fail(ctx, err)
	}

	decision, err := run.router.generator.Structured(ctx, planningThought, run.process.Tools)
	if err != nil {
		return run.fail(ctx, err)
	}

	if len(decision.Calls) == 0 && !decision.Finished {
		run.process = run.process.WithError(msgNoActions)
		return run.finish(ctx)
	}

	if isDuplicateCallSet(run.process, decision.Calls) {
		run.logger.Warn("duplicate call set detected, stopping", "iteration", index)
		run.process = run.process.WithError(msgLoopDetected)
		return run.finish(ctx)
	}

	record := core.IterationRecord{
		Index:           index,
		PlanningThought: planningThought,
		TodoThought:     todoThought,
		Decision:        decision,
	}

	if len(decision.Calls) > 0 {
		// Budget after this iteration completes; zero on the final turn.
		remaining := run.process.RemainingBudget() - 1
		results, err := run.strategy.Dispatch(ctx, decision.Calls, remaining, run.process.RequestID)
		if err != nil {
			return run.fail(ctx, err)
		}
		record.CallResults = results
		record.Observation = renderObservation(results)
	}

	next, err := run.process.AppendIteration(record)
	if err != nil {
		return run.process, true, fmt.Errorf("append iteration: %w", err)
	}
	run.process = next

	if run.process.State() == core.StateBudgetExhausted {
		run.process = run.process.WithError(msgBudgetExhausted)
	}

	if run.process.Terminal() {
		return run.finish(ctx)
	}
	return run.process, false, nil
}

// fail marks the process terminally errored with the failure message and
// finishes the run.
func (run *Run) fail(ctx context.Context, err error) (core.RouterProcess, bool, error) {
	run.logger.Error("routing failed", "error", err.Error())
	run.process = run.process.WithError(err.Error())
	return run.finish(ctx)
}

// finish closes the run and returns the terminal snapshot. A Release failure
// is logged, not surfaced; the routing outcome already stands.
func (run *Run) finish(ctx context.Context) (core.RouterProcess, bool, error) {
	if err := run.Close(ctx); err != nil {
		run.logger.Warn("releasing dispatch resources failed", "error", err.Error())
	}
	if !run.finished {
		run.finished = true
		run.logger.Info("routing finished",
			"state", string(run.process.State()), "iterations", len(run.process.History))
	}
	return run.process, true, nil
}

// renderObservation folds the call results of one iteration into the single
// observation string the next planning thought reads.
func renderObservation(results []core.ToolCallResult) string {
	type entry struct {
		Function string `json:"function"`
		Result   string `json:"result"`
	}
	entries := make([]entry, len(results))
	for i, res := range results {
		entries[i] = entry{Function: res.Function, Result: res.Result}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return string(b)
}
