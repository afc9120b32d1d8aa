package thought

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hupe1980/agentrouter/core"
)

// decisionSchema validates the wire shape of the extraction reply before any
// field is trusted. Unknown extra fields are tolerated; wrong types are not.
const decisionSchema = `{
	"type": "object",
	"required": ["functionCalls"],
	"properties": {
		"functionCalls": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["function", "args"],
				"properties": {
					"function": {"type": "string", "minLength": 1},
					"args": {"type": "object"},
					"description": {"type": "string"}
				}
			}
		},
		"isFinished": {"type": "boolean"}
	}
}`

var decisionSchemaLoader = gojsonschema.NewStringLoader(decisionSchema)

// wireDecision mirrors the JSON emitted by the extraction model.
type wireDecision struct {
	FunctionCalls []core.ToolCall `json:"functionCalls"`
	IsFinished    bool            `json:"isFinished"`
}

// safeFinish is the degraded decision used when the model reply cannot be
// trusted: no calls, finished. It ends the run instead of acting on garbage.
func safeFinish() core.StructuredDecision {
	return core.StructuredDecision{Calls: []core.ToolCall{}, Finished: true}
}

// Structured translates a planning thought into a StructuredDecision.
//
// An error is returned only when the reasoning service itself fails; a
// malformed or schema-invalid reply degrades to the safe finished decision.
// Candidate calls that omit a required argument of their declared tool are
// dropped rather than completed with invented values, and syntactically
// identical calls are deduplicated. When drops leave no calls the decision is
// forced finished; a genuine empty decision from the model is passed through
// unchanged so the engine can surface it.
func (g *Generator) Structured(ctx context.Context, planningThought string, tools []core.DeclaredTool) (core.StructuredDecision, error) {
	start := time.Now()
	raw, err := g.opts.StructuredProvider.GenerateJSON(ctx, structuredPrompt(planningThought, tools))
	g.opts.Logger.LogThought("structured", time.Since(start), err)
	if err != nil {
		return core.StructuredDecision{}, fmt.Errorf("structured thought: %w", err)
	}

	result, err := gojsonschema.Validate(decisionSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil || !result.Valid() {
		g.opts.Logger.Warn("structured reply failed schema validation, finishing defensively",
			"valid", err == nil && result != nil && result.Valid())
		return safeFinish(), nil
	}

	var wire wireDecision
	if err := json.Unmarshal(raw, &wire); err != nil {
		g.opts.Logger.Warn("structured reply failed to decode, finishing defensively", "error", err.Error())
		return safeFinish(), nil
	}

	calls, dropped := resolveCalls(wire.FunctionCalls, tools, g)
	decision := core.StructuredDecision{Calls: calls, Finished: wire.IsFinished}
	switch {
	case len(calls) > 0:
		// Calls always win over a stray finished flag.
		decision.Finished = false
	case dropped > 0:
		// Every candidate was unresolvable; acting is impossible, so finish.
		decision.Finished = true
	}
	return decision, nil
}

// resolveCalls deduplicates candidate calls and drops those missing a required
// argument of their declared tool. Calls naming an undeclared function pass
// through untouched; dispatch reports those as failure observations.
func resolveCalls(candidates []core.ToolCall, tools []core.DeclaredTool, g *Generator) (calls []core.ToolCall, dropped int) {
	seen := make(map[string]struct{}, len(candidates))
	calls = []core.ToolCall{}
	for _, call := range candidates {
		key := call.CanonicalKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if missing := missingRequiredArgs(call, tools); len(missing) > 0 {
			g.opts.Logger.Warn("dropping call with missing required arguments",
				"function", call.Function, "missing", strings.Join(missing, ","))
			dropped++
			continue
		}
		calls = append(calls, call)
	}
	return calls, dropped
}

// missingRequiredArgs returns the required argument names absent from the
// call. Namespaced remote calls ("agent/function") are checked against the
// agent's declaration.
func missingRequiredArgs(call core.ToolCall, tools []core.DeclaredTool) []string {
	tool, ok := core.FindTool(tools, call.Function)
	if !ok {
		if agent, _, found := strings.Cut(call.Function, "/"); found {
			tool, ok = core.FindTool(tools, agent)
		}
	}
	if !ok {
		return nil
	}

	var missing []string
	for _, name := range tool.RequiredArgs() {
		if _, present := call.Args[name]; !present {
			missing = append(missing, name)
		}
	}
	return missing
}
