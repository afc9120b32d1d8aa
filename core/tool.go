package core

import (
	"encoding/json"
	"sort"
)

// TransportKind identifies the dispatch transport that produced a result.
type TransportKind string

const (
	// TransportLocal marks results produced by the local tool-server session.
	TransportLocal TransportKind = "local"
	// TransportRemote marks results produced by a remote agent.
	TransportRemote TransportKind = "remote"
)

// ToolArg describes a single declared argument of a tool. Nested object
// arguments (such as include_in_response) carry their own property list.
type ToolArg struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
	Properties  []ToolArg `json:"properties,omitempty"`
}

// DeclaredTool is the uniform representation of one remote capability as
// produced by the catalog adapter. It is immutable for the lifetime of a
// RouterProcess.
type DeclaredTool struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Args        []ToolArg `json:"args"`
}

// Arg returns the declared argument with the given name.
func (t DeclaredTool) Arg(name string) (ToolArg, bool) {
	for _, a := range t.Args {
		if a.Name == name {
			return a, true
		}
	}
	return ToolArg{}, false
}

// RequiredArgs returns the names of all required arguments in declaration order.
func (t DeclaredTool) RequiredArgs() []string {
	var names []string
	for _, a := range t.Args {
		if a.Required {
			names = append(names, a.Name)
		}
	}
	return names
}

// FindTool returns the declared tool with the given name.
func FindTool(tools []DeclaredTool, name string) (DeclaredTool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return DeclaredTool{}, false
}

// ToolCall is a single named remote invocation with resolved arguments, as
// extracted by the structured-thought stage. Description is free-text
// justification and is ignored for identity (see CanonicalKey).
type ToolCall struct {
	Function    string         `json:"function"`
	Args        map[string]any `json:"args"`
	Description string         `json:"description,omitempty"`
}

// CanonicalKey returns a deterministic identity string for the call with all
// free-text fields (Description, args "reason"/"description") stripped. Two
// calls with equal keys are the same invocation.
func (c ToolCall) CanonicalKey() string {
	args := make(map[string]any, len(c.Args))
	for k, v := range c.Args {
		if k == "reason" || k == "description" {
			continue
		}
		args[k] = v
	}
	// json.Marshal sorts map keys, so the key is order independent.
	b, err := json.Marshal(struct {
		Function string         `json:"function"`
		Args     map[string]any `json:"args"`
	}{Function: c.Function, Args: args})
	if err != nil {
		return c.Function
	}
	return string(b)
}

// CallSetKey returns a deterministic identity for an ordered call set.
func CallSetKey(calls []ToolCall) string {
	keys := make([]string, len(calls))
	for i, c := range calls {
		keys[i] = c.CanonicalKey()
	}
	b, _ := json.Marshal(keys)
	return string(b)
}

// ToolCallResult is a ToolCall joined with the outcome of its dispatch. A
// failed call carries a failure-marker string in Result; failures are data,
// not errors, once they cross the dispatch boundary.
type ToolCallResult struct {
	ToolCall
	Transport TransportKind `json:"type"`
	Result    string        `json:"result"`
	// InternalProcess carries the nested RouterProcess a remote agent may
	// return alongside its textual reply.
	InternalProcess *RouterProcess `json:"internal_router_process,omitempty"`
}

// SortedArgNames returns the argument names of a call in sorted order.
// Prompt builders use it to render calls deterministically.
func (c ToolCall) SortedArgNames() []string {
	names := make([]string, 0, len(c.Args))
	for k := range c.Args {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
