package core

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// State is the derived lifecycle state of a RouterProcess.
type State string

const (
	// StateRunning means the process has remaining budget and no terminal
	// condition has been reached.
	StateRunning State = "running"
	// StateFinished means the last iteration carried a final answer.
	StateFinished State = "finished"
	// StateBudgetExhausted means the iteration budget ran out before the
	// process finished. It is a defined outcome, distinct from StateErrored.
	StateBudgetExhausted State = "budget_exhausted"
	// StateErrored means the run was terminated by an unrecoverable condition.
	StateErrored State = "errored"
)

// StructuredDecision is the machine-actionable outcome of one thought cycle:
// the tool calls to dispatch, or a finished flag when the planning thought was
// a final answer.
type StructuredDecision struct {
	Calls    []ToolCall `json:"function_calls"`
	Finished bool       `json:"is_finished"`
}

// IterationRecord captures one completed turn of the engine. Records are
// immutable once appended.
type IterationRecord struct {
	Index           int                `json:"iteration"`
	PlanningThought string             `json:"planning_thought"`
	TodoThought     string             `json:"todo_thought"`
	Decision        StructuredDecision `json:"structured_thought"`
	CallResults     []ToolCallResult   `json:"call_results,omitempty"`
	Observation     string             `json:"observation,omitempty"`
}

// RouterProcess is the root aggregate for one routed question. It is advanced
// only by AppendIteration and WithError, both of which return a fresh value so
// every emitted snapshot is immutable from the caller's point of view.
type RouterProcess struct {
	RequestID     string            `json:"request_id"`
	Question      string            `json:"question"`
	MaxIterations int               `json:"max_iterations"`
	Tools         []DeclaredTool    `json:"tools,omitempty"`
	History       []IterationRecord `json:"iteration_history,omitempty"`
	TerminalError string            `json:"error,omitempty"`
}

// ErrHistoryFull reports an append beyond the iteration budget.
var ErrHistoryFull = errors.New("iteration history is full")

// ErrBadIndex reports an append whose record index does not continue the history.
var ErrBadIndex = errors.New("iteration record index out of sequence")

// NewRouterProcess constructs a fresh process for one inbound question. An
// empty requestID is replaced with a generated UUID.
func NewRouterProcess(requestID, question string, maxIterations int, tools []DeclaredTool) (RouterProcess, error) {
	if maxIterations <= 0 {
		return RouterProcess{}, fmt.Errorf("maxIterations must be positive, got %d", maxIterations)
	}
	if requestID == "" {
		requestID = NewID()
	}
	return RouterProcess{
		RequestID:     requestID,
		Question:      question,
		MaxIterations: maxIterations,
		Tools:         tools,
	}, nil
}

// NewID generates a unique identifier for requests and nested processes.
func NewID() string { return uuid.NewString() }

// AppendIteration returns a copy of the process with the record appended. The
// input process is never mutated, so previously handed out snapshots stay
// valid. It enforces the history bound and index continuity.
func (p RouterProcess) AppendIteration(rec IterationRecord) (RouterProcess, error) {
	if len(p.History) >= p.MaxIterations {
		return p, fmt.Errorf("%w: max %d iterations", ErrHistoryFull, p.MaxIterations)
	}
	if rec.Index != len(p.History) {
		return p, fmt.Errorf("%w: got %d, want %d", ErrBadIndex, rec.Index, len(p.History))
	}
	next := p
	next.History = make([]IterationRecord, len(p.History), len(p.History)+1)
	copy(next.History, p.History)
	next.History = append(next.History, rec)
	return next, nil
}

// WithError returns a copy of the process marked terminally errored.
func (p RouterProcess) WithError(msg string) RouterProcess {
	next := p
	next.TerminalError = msg
	return next
}

// LastRecord returns the most recent iteration record.
func (p RouterProcess) LastRecord() (IterationRecord, bool) {
	if len(p.History) == 0 {
		return IterationRecord{}, false
	}
	return p.History[len(p.History)-1], true
}

// LatestObservation returns the observation text of the last iteration, or an
// empty string when no observation exists yet.
func (p RouterProcess) LatestObservation() string {
	last, ok := p.LastRecord()
	if !ok {
		return ""
	}
	return last.Observation
}

// RemainingBudget returns how many iterations may still run.
func (p RouterProcess) RemainingBudget() int { return p.MaxIterations - len(p.History) }

// State derives the lifecycle state. Budget exhaustion is checked before the
// generic errored case so an exhausted run reports StateBudgetExhausted even
// though its terminal error string is set.
func (p RouterProcess) State() State {
	last, ok := p.LastRecord()
	if ok && last.Decision.Finished {
		return StateFinished
	}
	if ok && len(p.History) == p.MaxIterations {
		return StateBudgetExhausted
	}
	if p.TerminalError != "" {
		return StateErrored
	}
	return StateRunning
}

// Terminal reports whether the process reached any terminal state.
func (p RouterProcess) Terminal() bool { return p.State() != StateRunning }
