// Package catalog normalizes the raw tool listing of a connected tool server
// into the uniform DeclaredTool representation consumed by the thought and
// dispatch layers.
package catalog

import (
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/agentrouter/core"
)

// IncludeInResponseArg is the synthetic argument injected into every declared
// tool. Its object properties name the response fields a caller may opt into
// receiving; every downstream tool honors it for payload-size control.
const IncludeInResponseArg = "include_in_response"

// CatalogError reports a malformed tool catalog. It aborts router construction
// before any iteration runs.
type CatalogError struct {
	Tool    string
	Message string
}

func (e *CatalogError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("catalog error in %s: %s", e.Tool, e.Message)
	}
	return fmt.Sprintf("catalog error: %s", e.Message)
}

// Normalize converts a raw tool listing into declared tools. Tool names and
// descriptions are preserved verbatim; nested argument schemas are flattened
// into the uniform ToolArg shape; include_in_response is injected as a
// required object argument for every tool.
//
// Returns a *CatalogError when a tool name is duplicated or a required
// argument has no discoverable type.
func Normalize(res *mcp.ListToolsResult) ([]core.DeclaredTool, error) {
	if res == nil {
		return nil, &CatalogError{Message: "empty tool listing"}
	}

	seen := make(map[string]struct{}, len(res.Tools))
	tools := make([]core.DeclaredTool, 0, len(res.Tools))

	for _, raw := range res.Tools {
		if _, dup := seen[raw.Name]; dup {
			return nil, &CatalogError{Tool: raw.Name, Message: "duplicate tool name"}
		}
		seen[raw.Name] = struct{}{}

		args, err := normalizeArgs(raw.Name, raw.InputSchema)
		if err != nil {
			return nil, err
		}

		tools = append(tools, core.DeclaredTool{
			Name:        raw.Name,
			Description: raw.Description,
			Args:        args,
		})
	}

	return tools, nil
}

func normalizeArgs(toolName string, schema mcp.ToolInputSchema) ([]core.ToolArg, error) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	args := make([]core.ToolArg, 0, len(schema.Properties)+1)
	for _, name := range sortedKeys(schema.Properties) {
		if name == IncludeInResponseArg {
			continue // rebuilt below with the enforced shape
		}
		arg, ok := flattenProperty(name, schema.Properties[name])
		arg.Required = required[name]
		if !ok && arg.Required {
			return nil, &CatalogError{
				Tool:    toolName,
				Message: fmt.Sprintf("required argument %q has no discoverable type", name),
			}
		}
		args = append(args, arg)
	}

	args = append(args, includeInResponse(schema.Properties[IncludeInResponseArg]))

	return args, nil
}

// flattenProperty reduces one JSON-schema property to the shallow ToolArg
// shape. The second return reports whether a type was discoverable.
func flattenProperty(name string, prop any) (core.ToolArg, bool) {
	arg := core.ToolArg{Name: name}

	m, ok := prop.(map[string]any)
	if !ok {
		return arg, false
	}

	if desc, ok := m["description"].(string); ok {
		arg.Description = desc
	}

	arg.Type = primaryType(m)
	if arg.Type == "" {
		return arg, false
	}

	if props, ok := m["properties"].(map[string]any); ok {
		for _, childName := range sortedKeys(props) {
			child, _ := flattenProperty(childName, props[childName])
			arg.Properties = append(arg.Properties, child)
		}
	}

	return arg, true
}

// primaryType resolves the schema's type, reducing union types ("type" arrays
// and anyOf variants) to a deterministic primary: the first non-null entry.
func primaryType(m map[string]any) string {
	switch t := m["type"].(type) {
	case string:
		if t != "null" {
			return t
		}
	case []any:
		for _, entry := range t {
			if s, ok := entry.(string); ok && s != "null" {
				return s
			}
		}
	}

	if anyOf, ok := m["anyOf"].([]any); ok {
		for _, option := range anyOf {
			if om, ok := option.(map[string]any); ok {
				if t := primaryType(om); t != "" {
					return t
				}
			}
		}
	}

	return ""
}

// includeInResponse builds the enforced shape of the synthetic argument: a
// required object whose properties are all boolean and required. Declared
// property names are taken from the raw schema when present.
func includeInResponse(raw any) core.ToolArg {
	arg := core.ToolArg{
		Name:        IncludeInResponseArg,
		Type:        "object",
		Description: "This option is mandatory and used to specify which fields should be included in the response.",
		Required:    true,
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return arg
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		return arg
	}
	for _, name := range sortedKeys(props) {
		arg.Properties = append(arg.Properties, core.ToolArg{
			Name:     name,
			Type:     "boolean",
			Required: true,
		})
	}

	return arg
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
