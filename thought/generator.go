package thought

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/internal/util"
	"github.com/hupe1980/agentrouter/logging"
	"github.com/hupe1980/agentrouter/reasoning"
)

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	// Logger receives per-stage generation telemetry.
	Logger *logging.RouterLogger
	// StructuredProvider handles the extraction stage. When nil the main
	// provider is used for all three stages.
	StructuredProvider reasoning.Provider
	// ExtendedSystemPrompt is injected verbatim into the planning stage so
	// deployments can add domain guidance without touching the core protocol.
	ExtendedSystemPrompt string
}

// Generator produces the three thought stages of one iteration. It is
// stateless between calls; all run state lives in the RouterProcess.
type Generator struct {
	provider reasoning.Provider
	opts     GeneratorOptions
}

// NewGenerator creates a Generator on top of a reasoning provider.
func NewGenerator(provider reasoning.Provider, optFns ...func(o *GeneratorOptions)) *Generator {
	opts := GeneratorOptions{
		Logger: logging.NewLogger(nil).WithComponent("thought"),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.StructuredProvider == nil {
		opts.StructuredProvider = provider
	}
	return &Generator{provider: provider, opts: opts}
}

// Todo generates the next todo thought for the process. The reply is cleaned
// of model chatter (think tags, surrounding prose outside the list markers).
func (g *Generator) Todo(ctx context.Context, p core.RouterProcess) (string, error) {
	start := time.Now()
	raw, err := g.provider.GenerateText(ctx, todoPrompt(p))
	g.opts.Logger.LogThought("todo", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("todo thought: %w", err)
	}

	todo := extractTodoList(util.StripThinkTags(raw))
	if todo == "" {
		return "", fmt.Errorf("todo thought: reply contains no %s block", TodoListBegin)
	}
	return todo, nil
}

// Planning generates the freeform planning thought from the current process
// snapshot and the todo thought produced this iteration.
func (g *Generator) Planning(ctx context.Context, p core.RouterProcess, todoThought string) (string, error) {
	start := time.Now()
	raw, err := g.provider.GenerateText(ctx, planningPrompt(p, todoThought, g.opts.ExtendedSystemPrompt))
	g.opts.Logger.LogThought("planning", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("planning thought: %w", err)
	}

	text := strings.TrimSpace(util.StripThinkTags(raw))
	if text == "" {
		return "", fmt.Errorf("planning thought: %w", reasoning.ErrEmptyResponse)
	}
	return text, nil
}

// extractTodoList cuts the bracketed todo list out of a raw reply. Models
// occasionally wrap the list in prose; everything outside the markers is
// dropped. A reply without both markers yields an empty string.
func extractTodoList(raw string) string {
	begin := strings.Index(raw, TodoListBegin)
	if begin < 0 {
		return ""
	}
	rest := raw[begin:]
	end := strings.Index(rest, TodoListEnd)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end+len(TodoListEnd)])
}
