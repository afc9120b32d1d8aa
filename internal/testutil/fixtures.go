package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/agentrouter/core"
)

// CourseToolsResult returns the raw MCP tool listing of a small course
// catalog server, as a server would declare it.
func CourseToolsResult() *mcp.ListToolsResult {
	return &mcp.ListToolsResult{
		Tools: []mcp.Tool{
			{
				Name:        "search_courses",
				Description: "Search the course catalog by free-text query.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "Free-text search query.",
						},
						"limit": map[string]any{
							"type": []any{"number", "null"},
						},
						"include_in_response": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":         map[string]any{"type": "boolean"},
								"fullname":   map[string]any{"type": "boolean"},
								"start_date": map[string]any{"type": "boolean"},
							},
						},
					},
					Required: []string{"query"},
				},
			},
			{
				Name:        "get_course_details",
				Description: "Fetch the full record of one course by its identifier.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]any{
						"course_id": map[string]any{
							"type":        "number",
							"description": "Course identifier from search results.",
						},
						"include_in_response": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"fullname":   map[string]any{"type": "boolean"},
								"start_date": map[string]any{"type": "boolean"},
								"summary":    map[string]any{"type": "boolean"},
							},
						},
					},
					Required: []string{"course_id"},
				},
			},
		},
	}
}

// CourseTools returns the normalized form of CourseToolsResult.
func CourseTools() []core.DeclaredTool {
	return []core.DeclaredTool{
		{
			Name:        "search_courses",
			Description: "Search the course catalog by free-text query.",
			Args: []core.ToolArg{
				{Name: "limit", Type: "number"},
				{Name: "query", Type: "string", Description: "Free-text search query.", Required: true},
				{
					Name:        "include_in_response",
					Type:        "object",
					Description: "This option is mandatory and used to specify which fields should be included in the response.",
					Required:    true,
					Properties: []core.ToolArg{
						{Name: "fullname", Type: "boolean", Required: true},
						{Name: "id", Type: "boolean", Required: true},
						{Name: "start_date", Type: "boolean", Required: true},
					},
				},
			},
		},
		{
			Name:        "get_course_details",
			Description: "Fetch the full record of one course by its identifier.",
			Args: []core.ToolArg{
				{Name: "course_id", Type: "number", Description: "Course identifier from search results.", Required: true},
				{
					Name:        "include_in_response",
					Type:        "object",
					Description: "This option is mandatory and used to specify which fields should be included in the response.",
					Required:    true,
					Properties: []core.ToolArg{
						{Name: "fullname", Type: "boolean", Required: true},
						{Name: "start_date", Type: "boolean", Required: true},
						{Name: "summary", Type: "boolean", Required: true},
					},
				},
			},
		},
	}
}

// StubStrategy is a scripted dispatch strategy. Results are keyed by function
// name; unscripted calls fail with a marker. It records every dispatched call
// set and counts Release invocations.
type StubStrategy struct {
	mu sync.Mutex

	// Results maps function names to canned result strings.
	Results map[string]string

	// Dispatched collects the call sets in dispatch order.
	Dispatched [][]core.ToolCall
	// Budgets collects the remaining budget passed to each dispatch.
	Budgets []int
	// Released counts Release calls.
	Released int
	// ReleaseErr is returned by Release when set.
	ReleaseErr error
}

// NewStubStrategy creates a StubStrategy with the given canned results.
func NewStubStrategy(results map[string]string) *StubStrategy {
	if results == nil {
		results = make(map[string]string)
	}
	return &StubStrategy{Results: results}
}

// Dispatch implements dispatch.Strategy.
func (s *StubStrategy) Dispatch(_ context.Context, calls []core.ToolCall, remainingBudget int, _ string) ([]core.ToolCallResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Dispatched = append(s.Dispatched, calls)
	s.Budgets = append(s.Budgets, remainingBudget)

	results := make([]core.ToolCallResult, len(calls))
	for i, call := range calls {
		text, ok := s.Results[call.Function]
		if !ok {
			text = fmt.Sprintf("Error while calling tool %s: not scripted", call.Function)
		}
		results[i] = core.ToolCallResult{
			ToolCall:  call,
			Transport: core.TransportLocal,
			Result:    text,
		}
	}
	return results, nil
}

// Release implements dispatch.Strategy.
func (s *StubStrategy) Release(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Released++
	return s.ReleaseErr
}

// ReleaseCount returns how often Release has been called.
func (s *StubStrategy) ReleaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Released
}
