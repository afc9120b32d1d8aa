// Package agentrouter provides a high-level façade over the routing engine
// and its transports. Most applications interact with this package by:
//  1. Building a router from config via NewLocalRouter (MCP tool server) or
//     NewRemoteRouter (agent-to-agent endpoints)
//  2. Routing questions synchronously (Router.Route) or iterating snapshots
//     via Router.RouteQuestion / runner.Runner
//
// The façade only wires packages together; routing semantics live in router,
// thought and dispatch.
package agentrouter

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentrouter/a2a"
	"github.com/hupe1980/agentrouter/catalog"
	"github.com/hupe1980/agentrouter/config"
	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/dispatch"
	"github.com/hupe1980/agentrouter/logging"
	"github.com/hupe1980/agentrouter/reasoning"
	anthropicprovider "github.com/hupe1980/agentrouter/reasoning/anthropic"
	openaiprovider "github.com/hupe1980/agentrouter/reasoning/openai"
	"github.com/hupe1980/agentrouter/router"
	"github.com/hupe1980/agentrouter/toolserver"
)

// Version of the module.
const Version = "0.1.0"

// NewLocalRouter connects to the configured MCP tool server once to normalize
// its tool catalog, then returns a router whose runs each open their own
// session against the server. A run's session is released when the run
// finishes or is closed, so concurrent and back-to-back runs never share
// transport state.
func NewLocalRouter(ctx context.Context, cfg config.Config) (*router.Router, error) {
	if cfg.ToolServer.URL == "" {
		return nil, fmt.Errorf("tool_server.url is required for a local router")
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  cfg.LogLevel(),
		Format: cfg.Logging.Format,
	})

	session, err := toolserver.Connect(ctx, cfg.ToolServer.URL, func(o *toolserver.SessionOptions) {
		o.Logger = logger.WithComponent("toolserver")
	})
	if err != nil {
		return nil, err
	}

	listed, err := session.ListTools(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, err
	}
	_ = session.Close(ctx)

	tools, err := catalog.Normalize(listed)
	if err != nil {
		return nil, err
	}

	factory := func(ctx context.Context) (dispatch.Strategy, error) {
		session, err := toolserver.Connect(ctx, cfg.ToolServer.URL, func(o *toolserver.SessionOptions) {
			o.Logger = logger.WithComponent("toolserver")
		})
		if err != nil {
			return nil, err
		}
		return dispatch.NewLocalStrategy(session, func(o *dispatch.LocalStrategyOptions) {
			o.Logger = logger.WithComponent("dispatch")
		}), nil
	}

	return newRouter(cfg, factory, tools, logger)
}

// NewRemoteRouter builds a router dispatching to the configured remote
// agents. Each agent is declared to the reasoning loop as one callable tool
// taking a prompt plus free-form parameters.
func NewRemoteRouter(cfg config.Config) (*router.Router, error) {
	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("at least one agent is required for a remote router")
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  cfg.LogLevel(),
		Format: cfg.Logging.Format,
	})

	clients := make([]a2a.Client, 0, len(cfg.Agents))
	tools := make([]core.DeclaredTool, 0, len(cfg.Agents))
	for _, agent := range cfg.Agents {
		clients = append(clients, a2a.NewHTTPClient(agent.Name, agent.URL, func(o *a2a.HTTPClientOptions) {
			o.Logger = logger.WithComponent("a2a")
		}))
		tools = append(tools, agentTool(agent.Name))
	}

	strategy := dispatch.NewRemoteStrategy(clients, func(o *dispatch.RemoteStrategyOptions) {
		o.Logger = logger.WithComponent("dispatch")
	})

	// The remote strategy holds no releasable transport state, so every run
	// may share it.
	return newRouter(cfg, dispatch.Shared(strategy), tools, logger)
}

func newRouter(cfg config.Config, factory dispatch.Factory, tools []core.DeclaredTool, logger *logging.RouterLogger) (*router.Router, error) {
	provider, err := buildProvider(cfg, cfg.Reasoning.Model)
	if err != nil {
		return nil, err
	}
	structured, err := structuredProvider(cfg)
	if err != nil {
		return nil, err
	}

	return router.New(provider, factory, tools, func(o *router.Options) {
		o.Logger = logger.WithComponent("router")
		o.StructuredProvider = structured
		o.ExtendedSystemPrompt = cfg.Router.ExtendedSystemPrompt
	}), nil
}

// structuredProvider builds the extraction-stage provider when the config
// selects a dedicated model for it. Nil means the main provider serves all
// three stages.
func structuredProvider(cfg config.Config) (reasoning.Provider, error) {
	if cfg.Reasoning.StructuredModel == "" {
		return nil, nil
	}
	return buildProvider(cfg, cfg.Reasoning.StructuredModel)
}

func buildProvider(cfg config.Config, model string) (reasoning.Provider, error) {
	switch cfg.Reasoning.Provider {
	case "openai":
		return openaiprovider.NewProvider(func(o *openaiprovider.Options) {
			if model != "" {
				o.Model = model
			}
			if cfg.Reasoning.Temperature > 0 {
				o.Temperature = cfg.Reasoning.Temperature
			}
		}), nil
	case "anthropic":
		return anthropicprovider.NewProvider(func(o *anthropicprovider.Options) {
			if model != "" {
				o.Model = anthropic.Model(model)
			}
			if cfg.Reasoning.Temperature > 0 {
				o.Temperature = cfg.Reasoning.Temperature
			}
		}), nil
	case "mock":
		return reasoning.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Reasoning.Provider)
	}
}

// agentTool declares the uniform call surface of a remote agent.
func agentTool(name string) core.DeclaredTool {
	return core.DeclaredTool{
		Name:        name,
		Description: fmt.Sprintf("Delegate a task to the %s agent. Describe the task in natural language via the prompt argument.", name),
		Args: []core.ToolArg{
			{Name: "prompt", Type: "string", Description: "Natural language instruction for the agent.", Required: true},
			{Name: "parameters", Type: "string", Description: "Optional key=value pairs the agent should use."},
		},
	}
}
