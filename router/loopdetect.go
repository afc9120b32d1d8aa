package router

import "github.com/hupe1980/agentrouter/core"

// isDuplicateCallSet reports whether the decided call set repeats the call
// set of any previous iteration. Identity ignores free-text fields, so two
// calls differing only in justification still count as the same action.
func isDuplicateCallSet(p core.RouterProcess, calls []core.ToolCall) bool {
	if len(calls) == 0 {
		return false
	}
	key := core.CallSetKey(calls)
	for _, rec := range p.History {
		if len(rec.Decision.Calls) == 0 {
			continue
		}
		if core.CallSetKey(rec.Decision.Calls) == key {
			return true
		}
	}
	return false
}
