package catalog

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/internal/testutil"
)

func TestNormalize(t *testing.T) {
	tools, err := Normalize(testutil.CourseToolsResult())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, testutil.CourseTools(), tools)
}

func TestNormalizeInjectsIncludeInResponse(t *testing.T) {
	res := &mcp.ListToolsResult{
		Tools: []mcp.Tool{
			{
				Name: "plain_tool",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]any{
						"name": map[string]any{"type": "string"},
					},
				},
			},
		},
	}

	tools, err := Normalize(res)
	require.NoError(t, err)
	require.Len(t, tools, 1)

	arg, ok := tools[0].Arg(IncludeInResponseArg)
	require.True(t, ok, "include_in_response must be injected even when undeclared")
	assert.Equal(t, "object", arg.Type)
	assert.True(t, arg.Required)
	assert.Empty(t, arg.Properties)
}

func TestNormalizeIncludeInResponseShapeIsEnforced(t *testing.T) {
	// The server declares the properties as optional strings; normalization
	// still produces required booleans.
	res := &mcp.ListToolsResult{
		Tools: []mcp.Tool{
			{
				Name: "listing_tool",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]any{
						"include_in_response": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name": map[string]any{"type": "string"},
								"id":   map[string]any{"type": "number"},
							},
						},
					},
				},
			},
		},
	}

	tools, err := Normalize(res)
	require.NoError(t, err)

	arg, ok := tools[0].Arg(IncludeInResponseArg)
	require.True(t, ok)
	require.Len(t, arg.Properties, 2)
	for _, prop := range arg.Properties {
		assert.Equal(t, "boolean", prop.Type)
		assert.True(t, prop.Required)
	}
	assert.Equal(t, "id", arg.Properties[0].Name)
	assert.Equal(t, "name", arg.Properties[1].Name)
}

func TestNormalizeUnionTypes(t *testing.T) {
	res := &mcp.ListToolsResult{
		Tools: []mcp.Tool{
			{
				Name: "union_tool",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]any{
						"maybe_number": map[string]any{
							"type": []any{"null", "number"},
						},
						"any_of": map[string]any{
							"anyOf": []any{
								map[string]any{"type": "null"},
								map[string]any{"type": "string"},
							},
						},
					},
				},
			},
		},
	}

	tools, err := Normalize(res)
	require.NoError(t, err)

	arg, ok := tools[0].Arg("maybe_number")
	require.True(t, ok)
	assert.Equal(t, "number", arg.Type)

	arg, ok = tools[0].Arg("any_of")
	require.True(t, ok)
	assert.Equal(t, "string", arg.Type)
}

func TestNormalizeErrors(t *testing.T) {
	t.Run("nil listing", func(t *testing.T) {
		_, err := Normalize(nil)
		var catErr *CatalogError
		require.ErrorAs(t, err, &catErr)
	})

	t.Run("duplicate tool name", func(t *testing.T) {
		res := &mcp.ListToolsResult{
			Tools: []mcp.Tool{
				{Name: "dup", InputSchema: mcp.ToolInputSchema{Type: "object"}},
				{Name: "dup", InputSchema: mcp.ToolInputSchema{Type: "object"}},
			},
		}
		_, err := Normalize(res)
		var catErr *CatalogError
		require.ErrorAs(t, err, &catErr)
		assert.Equal(t, "dup", catErr.Tool)
	})

	t.Run("required argument without type", func(t *testing.T) {
		res := &mcp.ListToolsResult{
			Tools: []mcp.Tool{
				{
					Name: "broken",
					InputSchema: mcp.ToolInputSchema{
						Type: "object",
						Properties: map[string]any{
							"mystery": map[string]any{"description": "no type at all"},
						},
						Required: []string{"mystery"},
					},
				},
			},
		}
		_, err := Normalize(res)
		var catErr *CatalogError
		require.ErrorAs(t, err, &catErr)
		assert.Equal(t, "broken", catErr.Tool)
	})

	t.Run("optional argument without type is kept", func(t *testing.T) {
		res := &mcp.ListToolsResult{
			Tools: []mcp.Tool{
				{
					Name: "lenient",
					InputSchema: mcp.ToolInputSchema{
						Type: "object",
						Properties: map[string]any{
							"mystery": map[string]any{"description": "no type"},
						},
					},
				},
			},
		}
		tools, err := Normalize(res)
		require.NoError(t, err)

		arg, ok := tools[0].Arg("mystery")
		require.True(t, ok)
		assert.Empty(t, arg.Type)
		assert.False(t, arg.Required)
	})
}

func TestCatalogErrorMessage(t *testing.T) {
	err := &CatalogError{Tool: "search_courses", Message: "duplicate tool name"}
	assert.Contains(t, err.Error(), "search_courses")

	bare := &CatalogError{Message: "empty tool listing"}
	assert.Equal(t, "catalog error: empty tool listing", bare.Error())
}
