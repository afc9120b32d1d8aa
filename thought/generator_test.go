package thought

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/internal/testutil"
	"github.com/hupe1980/agentrouter/reasoning"
)

func newProcess(t *testing.T) core.RouterProcess {
	t.Helper()
	p, err := core.NewRouterProcess("req-1", "Is the course Biology 101 starting in October?", 5, testutil.CourseTools())
	require.NoError(t, err)
	return p
}

func TestTodoExtractsBracketedList(t *testing.T) {
	provider := reasoning.NewMockProvider().QueueText(
		"Here is my plan:\n<TODO_LIST>\n- [ ] Search for the course\n</TODO_LIST>\nGood luck!")
	g := newTestGenerator(provider)

	todo, err := g.Todo(context.Background(), newProcess(t))
	require.NoError(t, err)
	assert.Equal(t, "<TODO_LIST>\n- [ ] Search for the course\n</TODO_LIST>", todo)
}

func TestTodoStripsThinkTags(t *testing.T) {
	provider := reasoning.NewMockProvider().QueueText(
		"<think>internal musings</think><TODO_LIST>\n- [ ] Find it\n</TODO_LIST>")
	g := newTestGenerator(provider)

	todo, err := g.Todo(context.Background(), newProcess(t))
	require.NoError(t, err)
	assert.NotContains(t, todo, "musings")
	assert.Contains(t, todo, "- [ ] Find it")
}

func TestTodoRejectsRepliesWithoutList(t *testing.T) {
	provider := reasoning.NewMockProvider().QueueText("I cannot produce a list right now.")
	g := newTestGenerator(provider)

	_, err := g.Todo(context.Background(), newProcess(t))
	assert.Error(t, err)
}

func TestTodoPropagatesServiceErrors(t *testing.T) {
	boom := errors.New("connection refused")
	provider := reasoning.NewMockProvider().FailWith(boom)
	g := newTestGenerator(provider)

	_, err := g.Todo(context.Background(), newProcess(t))
	assert.ErrorIs(t, err, boom)
}

func TestPlanningReturnsTrimmedThought(t *testing.T) {
	provider := reasoning.NewMockProvider().QueueText("\n  CALL: search_courses\nparameters=\"query=Biology 101\"  \n")
	g := newTestGenerator(provider)

	thought, err := g.Planning(context.Background(), newProcess(t), "<TODO_LIST>\n- [ ] Search\n</TODO_LIST>")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(thought, "CALL: search_courses"))
}

func TestPlanningRejectsEmptyReply(t *testing.T) {
	provider := reasoning.NewMockProvider().QueueText("<think>only thinking, no output</think>")
	g := newTestGenerator(provider)

	_, err := g.Planning(context.Background(), newProcess(t), "")
	assert.ErrorIs(t, err, reasoning.ErrEmptyResponse)
}

func TestTodoPromptCarriesPreviousList(t *testing.T) {
	p := newProcess(t)

	req := todoPrompt(p)
	joined := strings.Join(req.System, "\n")
	assert.Contains(t, joined, "<TODO_LIST>\n</TODO_LIST>", "fresh process gets an empty list")

	p, err := p.AppendIteration(core.IterationRecord{
		Index:       0,
		TodoThought: "<TODO_LIST>\n- [x] Search for the course\n</TODO_LIST>",
		Observation: `[{"function":"search_courses","result":"found course 7"}]`,
	})
	require.NoError(t, err)

	req = todoPrompt(p)
	joined = strings.Join(req.System, "\n")
	assert.Contains(t, joined, "- [x] Search for the course")
	assert.Contains(t, joined, "found course 7")
}

func TestPlanningPromptIncludesStateAndHistory(t *testing.T) {
	p := newProcess(t)
	p, err := p.AppendIteration(core.IterationRecord{
		Index:           0,
		PlanningThought: "CALL: search_courses",
		Decision: core.StructuredDecision{
			Calls: []core.ToolCall{{Function: "search_courses", Args: map[string]any{"query": "Biology 101"}}},
		},
		Observation: `[{"function":"search_courses","result":"course 7 found"}]`,
	})
	require.NoError(t, err)

	req := planningPrompt(p, "<TODO_LIST>\n- [ ] Check start date\n</TODO_LIST>", "Always answer in formal English.")
	joined := strings.Join(req.System, "\n")

	assert.Contains(t, joined, "Is the course Biology 101 starting in October?")
	assert.Contains(t, joined, `"lastObservation":"[{\"function\":\"search_courses\",\"result\":\"course 7 found\"}]"`)
	assert.Contains(t, joined, "- [ ] Check start date")
	assert.Contains(t, joined, "Always answer in formal English.")
	assert.Contains(t, joined, "search_courses")
	assert.Equal(t, p.Question, req.Prompt)
}

func TestStructuredPromptUsesThoughtAsPrompt(t *testing.T) {
	req := structuredPrompt("CALL: search_courses", testutil.CourseTools())
	assert.Equal(t, "CALL: search_courses", req.Prompt)
	assert.InDelta(t, 0.1, req.Temperature, 0.0001)

	joined := strings.Join(req.System, "\n")
	assert.Contains(t, joined, "HARD GATING")
	assert.Contains(t, joined, "search_courses")
}
