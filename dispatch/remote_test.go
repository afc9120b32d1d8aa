package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/a2a"
	"github.com/hupe1980/agentrouter/core"
)

// fakeAgent records received instructions and returns a scripted reply.
type fakeAgent struct {
	mu           sync.Mutex
	name         string
	reply        a2a.Reply
	err          error
	instructions []string
	contextIDs   []string
}

func (a *fakeAgent) Name() string { return a.name }

func (a *fakeAgent) Send(_ context.Context, instruction, contextID string) (a2a.Reply, error) {
	a.mu.Lock()
	a.instructions = append(a.instructions, instruction)
	a.contextIDs = append(a.contextIDs, contextID)
	a.mu.Unlock()

	if a.err != nil {
		return a2a.Reply{}, a.err
	}
	return a.reply, nil
}

func newRemote(agents ...a2a.Client) *RemoteStrategy {
	return NewRemoteStrategy(agents, func(o *RemoteStrategyOptions) {
		o.Logger = testLogger()
	})
}

func TestRemoteDispatchDeliversInstruction(t *testing.T) {
	agent := &fakeAgent{name: "moodle-agent", reply: a2a.Reply{Message: "The course starts on October 3rd."}}
	strategy := newRemote(agent)

	calls := []core.ToolCall{{
		Function: "moodle-agent",
		Args: map[string]any{
			"prompt":    "When does Biology 101 start?",
			"course_id": 7,
		},
	}}

	results, err := strategy.Dispatch(context.Background(), calls, 4, "req-1")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "The course starts on October 3rd.", results[0].Result)
	assert.Equal(t, core.TransportRemote, results[0].Transport)

	require.Len(t, agent.instructions, 1)
	assert.Contains(t, agent.instructions[0], "When does Biology 101 start?")
	assert.Contains(t, agent.instructions[0], "course_id=7")
	assert.Equal(t, []string{"req-1"}, agent.contextIDs)
}

func TestRemoteDispatchNamespacedFunction(t *testing.T) {
	agent := &fakeAgent{name: "moodle-agent", reply: a2a.Reply{Message: "ok"}}
	strategy := newRemote(agent)

	calls := []core.ToolCall{{
		Function: "moodle-agent/search_courses",
		Args:     map[string]any{"prompt": "find biology courses"},
	}}

	results, err := strategy.Dispatch(context.Background(), calls, 2, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "ok", results[0].Result)
}

func TestRemoteDispatchUnknownAgent(t *testing.T) {
	strategy := newRemote(
		&fakeAgent{name: "moodle-agent"},
		&fakeAgent{name: "library-agent"},
	)

	calls := []core.ToolCall{{Function: "billing-agent", Args: map[string]any{"prompt": "x"}}}

	results, err := strategy.Dispatch(context.Background(), calls, 2, "req-1")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Contains(t, results[0].Result, `unknown agent "billing-agent"`)
	assert.Contains(t, results[0].Result, "library-agent, moodle-agent")
}

func TestRemoteDispatchMissingPrompt(t *testing.T) {
	agent := &fakeAgent{name: "moodle-agent"}
	strategy := newRemote(agent)

	calls := []core.ToolCall{{Function: "moodle-agent", Args: map[string]any{"course_id": 7}}}

	results, err := strategy.Dispatch(context.Background(), calls, 2, "req-1")
	require.NoError(t, err)
	assert.Contains(t, results[0].Result, `missing required argument "prompt"`)
	assert.Empty(t, agent.instructions, "an unbuildable instruction must not reach the agent")
}

func TestRemoteDispatchAgentErrorIsData(t *testing.T) {
	agent := &fakeAgent{name: "moodle-agent", err: errors.New("connection reset")}
	strategy := newRemote(agent)

	calls := []core.ToolCall{{Function: "moodle-agent", Args: map[string]any{"prompt": "x"}}}

	results, err := strategy.Dispatch(context.Background(), calls, 2, "req-1")
	require.NoError(t, err)
	assert.Contains(t, results[0].Result, "Error while calling tool moodle-agent")
	assert.Contains(t, results[0].Result, "connection reset")
}

func TestRemoteDispatchCarriesNestedProcess(t *testing.T) {
	nested, err := core.NewRouterProcess("nested-1", "sub question", 2, nil)
	require.NoError(t, err)

	agent := &fakeAgent{name: "moodle-agent", reply: a2a.Reply{Message: "done", Process: &nested}}
	strategy := newRemote(agent)

	calls := []core.ToolCall{{Function: "moodle-agent", Args: map[string]any{"prompt": "x"}}}

	results, err := strategy.Dispatch(context.Background(), calls, 2, "req-1")
	require.NoError(t, err)
	require.NotNil(t, results[0].InternalProcess)
	assert.Equal(t, "nested-1", results[0].InternalProcess.RequestID)
}

func TestRemoteDispatchRefusesWithoutBudget(t *testing.T) {
	agent := &fakeAgent{name: "moodle-agent"}
	strategy := newRemote(agent)

	_, err := strategy.Dispatch(context.Background(), []core.ToolCall{{Function: "moodle-agent"}}, -1, "req-1")
	require.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Empty(t, agent.instructions)
}

func TestRemoteReleaseIsNoop(t *testing.T) {
	strategy := newRemote(&fakeAgent{name: "moodle-agent"})
	assert.NoError(t, strategy.Release(context.Background()))
	assert.NoError(t, strategy.Release(context.Background()))
}
