package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/agentrouter/a2a"
	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// RemoteStrategyOptions configures a RemoteStrategy.
type RemoteStrategyOptions struct {
	Logger *logging.RouterLogger
}

// RemoteStrategy dispatches calls to remote agents. Call functions address an
// agent either directly by name or namespaced as "agent/function"; everything
// after the slash is advisory and travels inside the instruction.
type RemoteStrategy struct {
	clients map[string]a2a.Client
	logger  *logging.RouterLogger
}

// NewRemoteStrategy builds a strategy over the given agent clients.
func NewRemoteStrategy(clients []a2a.Client, optFns ...func(o *RemoteStrategyOptions)) *RemoteStrategy {
	opts := RemoteStrategyOptions{
		Logger: logging.NewLogger(nil).WithComponent("dispatch"),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName := make(map[string]a2a.Client, len(clients))
	for _, c := range clients {
		byName[c.Name()] = c
	}
	return &RemoteStrategy{clients: byName, logger: opts.Logger}
}

// Dispatch implements Strategy.
func (s *RemoteStrategy) Dispatch(ctx context.Context, calls []core.ToolCall, remainingBudget int, requestID string) ([]core.ToolCallResult, error) {
	if remainingBudget < 0 {
		return nil, ErrBudgetExceeded
	}

	logger := s.logger.WithRequest(requestID)
	return fanOut(ctx, calls, core.TransportRemote, logger, func(ctx context.Context, call core.ToolCall) (core.ToolCallResult, bool) {
		agentName, _, _ := strings.Cut(call.Function, "/")

		client, ok := s.clients[agentName]
		if !ok {
			return failureResult(call, core.TransportRemote,
				fmt.Errorf("unknown agent %q, known agents: %s", agentName, strings.Join(s.knownAgents(), ", "))), true
		}

		instruction, err := buildInstruction(call)
		if err != nil {
			return failureResult(call, core.TransportRemote, err), true
		}

		reply, err := client.Send(ctx, instruction, requestID)
		if err != nil {
			return failureResult(call, core.TransportRemote, err), true
		}

		return core.ToolCallResult{
			ToolCall:        call,
			Transport:       core.TransportRemote,
			Result:          reply.Message,
			InternalProcess: reply.Process,
		}, false
	}), nil
}

// Release implements Strategy. Remote clients hold no per-run resources.
func (s *RemoteStrategy) Release(context.Context) error { return nil }

func (s *RemoteStrategy) knownAgents() []string {
	names := make([]string, 0, len(s.clients))
	for name := range s.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildInstruction assembles the natural-language instruction delivered to an
// agent: the mandatory prompt argument plus the remaining arguments rendered
// as explicit parameters. Without a prompt the agent has nothing to act on.
func buildInstruction(call core.ToolCall) (string, error) {
	prompt, _ := call.Args["prompt"].(string)
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("missing required argument %q", "prompt")
	}

	var params []string
	for _, name := range call.SortedArgNames() {
		if name == "prompt" {
			continue
		}
		params = append(params, fmt.Sprintf("%s=%v", name, call.Args[name]))
	}
	if len(params) == 0 {
		return prompt, nil
	}
	return fmt.Sprintf("%s\n\nUse these parameters: %s", prompt, strings.Join(params, ", ")), nil
}
