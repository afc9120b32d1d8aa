// Package anthropic provides a reasoning.Provider backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentrouter/internal/util"
	"github.com/hupe1980/agentrouter/reasoning"
)

// jsonInstruction steers the model towards a bare JSON object reply; the
// Messages API has no response-format switch equivalent to OpenAI's.
const jsonInstruction = "Reply with a single JSON object only. No prose, no markdown fences."

// Options configures the Anthropic provider adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Provider wraps the Anthropic Messages API behind reasoning.Provider.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

// NewProvider creates a new Anthropic provider using the official client.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewProviderFromClient creates a new Anthropic provider from an existing client.
func NewProviderFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// GenerateText implements reasoning.Provider.
func (p *Provider) GenerateText(ctx context.Context, req reasoning.Request) (string, error) {
	text, err := p.generate(ctx, req, nil)
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateJSON implements reasoning.Provider. A trailing system block steers
// the model to a bare JSON object; fences are stripped defensively anyway.
func (p *Provider) GenerateJSON(ctx context.Context, req reasoning.Request) (json.RawMessage, error) {
	text, err := p.generate(ctx, req, []string{jsonInstruction})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(util.StripCodeFences(text)), nil
}

func (p *Provider) generate(ctx context.Context, req reasoning.Request, extraSystem []string) (string, error) {
	system := make([]anthropic.TextBlockParam, 0, len(req.System)+len(extraSystem))
	for _, sys := range append(append([]string{}, req.System...), extraSystem...) {
		if sys != "" {
			system = append(system, anthropic.TextBlockParam{Text: sys})
		}
	}

	temp := req.Temperature
	if temp == 0 {
		temp = p.opts.Temperature
	}

	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(temp),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", reasoning.ErrEmptyResponse
	}

	return sb.String(), nil
}

// Info returns metadata describing this provider implementation.
func (p *Provider) Info() reasoning.Info {
	return reasoning.Info{Name: string(p.opts.Model), Provider: "anthropic"}
}
