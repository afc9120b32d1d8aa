package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKey(t *testing.T) {
	t.Run("ignores free text fields", func(t *testing.T) {
		a := ToolCall{
			Function:    "search_courses",
			Args:        map[string]any{"query": "biology", "reason": "user asked"},
			Description: "find biology courses",
		}
		b := ToolCall{
			Function: "search_courses",
			Args:     map[string]any{"query": "biology", "description": "searching"},
		}
		assert.Equal(t, a.CanonicalKey(), b.CanonicalKey())
	})

	t.Run("distinguishes argument values", func(t *testing.T) {
		a := ToolCall{Function: "search_courses", Args: map[string]any{"query": "biology"}}
		b := ToolCall{Function: "search_courses", Args: map[string]any{"query": "chemistry"}}
		assert.NotEqual(t, a.CanonicalKey(), b.CanonicalKey())
	})

	t.Run("is order independent", func(t *testing.T) {
		a := ToolCall{Function: "f", Args: map[string]any{"x": 1, "y": 2}}
		b := ToolCall{Function: "f", Args: map[string]any{"y": 2, "x": 1}}
		assert.Equal(t, a.CanonicalKey(), b.CanonicalKey())
	})
}

func TestCallSetKey(t *testing.T) {
	calls := []ToolCall{
		{Function: "a", Args: map[string]any{"k": "v"}},
		{Function: "b", Args: map[string]any{}},
	}
	same := []ToolCall{
		{Function: "a", Args: map[string]any{"k": "v", "reason": "because"}},
		{Function: "b", Args: map[string]any{}},
	}
	reversed := []ToolCall{calls[1], calls[0]}

	assert.Equal(t, CallSetKey(calls), CallSetKey(same))
	assert.NotEqual(t, CallSetKey(calls), CallSetKey(reversed))
}

func TestDeclaredTool(t *testing.T) {
	tool := DeclaredTool{
		Name: "search_courses",
		Args: []ToolArg{
			{Name: "query", Type: "string", Required: true},
			{Name: "limit", Type: "number"},
			{Name: "include_in_response", Type: "object", Required: true},
		},
	}

	arg, ok := tool.Arg("limit")
	require.True(t, ok)
	assert.Equal(t, "number", arg.Type)

	_, ok = tool.Arg("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"query", "include_in_response"}, tool.RequiredArgs())

	found, ok := FindTool([]DeclaredTool{tool}, "search_courses")
	require.True(t, ok)
	assert.Equal(t, "search_courses", found.Name)

	_, ok = FindTool([]DeclaredTool{tool}, "nope")
	assert.False(t, ok)
}
