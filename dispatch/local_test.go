package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// fakeSession scripts tool outcomes by name. A nil entry panics to exercise
// the recovery path.
type fakeSession struct {
	mu      sync.Mutex
	results map[string]string
	errs    map[string]error
	panics  map[string]bool
	called  []string
	closed  int
}

func (s *fakeSession) CallTool(_ context.Context, name string, _ map[string]any) (string, error) {
	s.mu.Lock()
	s.called = append(s.called, name)
	s.mu.Unlock()

	if s.panics[name] {
		panic("handler exploded")
	}
	if err, ok := s.errs[name]; ok {
		return "", err
	}
	return s.results[name], nil
}

func (s *fakeSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func testLogger() *logging.RouterLogger {
	return logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelError})
}

func newLocal(session *fakeSession) *LocalStrategy {
	return NewLocalStrategy(session, func(o *LocalStrategyOptions) {
		o.Logger = testLogger()
	})
}

func TestLocalDispatchPreservesOrder(t *testing.T) {
	session := &fakeSession{results: map[string]string{
		"search_courses":     "two courses found",
		"get_course_details": "course 7 details",
	}}
	strategy := newLocal(session)

	calls := []core.ToolCall{
		{Function: "search_courses", Args: map[string]any{"query": "biology"}},
		{Function: "get_course_details", Args: map[string]any{"course_id": 7}},
	}

	results, err := strategy.Dispatch(context.Background(), calls, 3, "req-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "search_courses", results[0].Function)
	assert.Equal(t, "two courses found", results[0].Result)
	assert.Equal(t, core.TransportLocal, results[0].Transport)
	assert.Equal(t, "get_course_details", results[1].Function)
	assert.Equal(t, "course 7 details", results[1].Result)
}

func TestLocalDispatchFailuresAreData(t *testing.T) {
	session := &fakeSession{
		results: map[string]string{"search_courses": "ok"},
		errs:    map[string]error{"get_course_details": errors.New("course not found")},
	}
	strategy := newLocal(session)

	calls := []core.ToolCall{
		{Function: "search_courses", Args: map[string]any{"query": "x"}},
		{Function: "get_course_details", Args: map[string]any{"course_id": 99}},
	}

	results, err := strategy.Dispatch(context.Background(), calls, 3, "req-1")
	require.NoError(t, err, "per-call failures must not abort the dispatch")
	require.Len(t, results, 2)

	assert.Equal(t, "ok", results[0].Result)
	assert.Equal(t, "Error while calling tool get_course_details: course not found", results[1].Result)
}

func TestLocalDispatchRecoversFromPanics(t *testing.T) {
	session := &fakeSession{
		results: map[string]string{"steady": "fine"},
		panics:  map[string]bool{"flaky": true},
	}
	strategy := newLocal(session)

	calls := []core.ToolCall{
		{Function: "flaky", Args: map[string]any{}},
		{Function: "steady", Args: map[string]any{}},
	}

	results, err := strategy.Dispatch(context.Background(), calls, 2, "req-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Contains(t, results[0].Result, "Error while calling tool flaky")
	assert.Contains(t, results[0].Result, "panic")
	assert.Equal(t, "fine", results[1].Result)
}

func TestLocalDispatchBudgetBoundary(t *testing.T) {
	session := &fakeSession{results: map[string]string{"f": "ok"}}
	strategy := newLocal(session)

	// Zero budget means this is the last iteration; calls still run.
	results, err := strategy.Dispatch(context.Background(), []core.ToolCall{{Function: "f"}}, 0, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "ok", results[0].Result)

	_, err = strategy.Dispatch(context.Background(), []core.ToolCall{{Function: "f"}}, -1, "req-1")
	require.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Len(t, session.called, 1, "no call may execute with a negative budget")
}

func TestLocalReleaseClosesSessionOnce(t *testing.T) {
	session := &fakeSession{}
	strategy := newLocal(session)

	require.NoError(t, strategy.Release(context.Background()))
	require.NoError(t, strategy.Release(context.Background()))
	assert.Equal(t, 1, session.closed)
}

func TestLocalDispatchManyParallelCalls(t *testing.T) {
	session := &fakeSession{results: map[string]string{}}
	for i := 0; i < 20; i++ {
		session.results[fmt.Sprintf("tool_%d", i)] = fmt.Sprintf("result_%d", i)
	}
	strategy := newLocal(session)

	calls := make([]core.ToolCall, 20)
	for i := range calls {
		calls[i] = core.ToolCall{Function: fmt.Sprintf("tool_%d", i), Args: map[string]any{}}
	}

	results, err := strategy.Dispatch(context.Background(), calls, 5, "req-1")
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("result_%d", i), res.Result)
	}
}
