// Package openai provides a reasoning.Provider backed by the OpenAI Chat
// Completions API. It adapts the router's normalized Request into the SDK's
// message format and back.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/hupe1980/agentrouter/internal/util"
	"github.com/hupe1980/agentrouter/reasoning"
)

// Options configure the OpenAI provider adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Provider wraps the OpenAI Chat Completions API behind reasoning.Provider.
type Provider struct {
	client *openai.Client
	opts   Options
}

// NewProvider creates a new OpenAI provider using the official client.
func NewProvider(optFns ...func(o *Options)) *Provider {
	client := openai.NewClient()
	return NewProviderFromClient(&client, optFns...)
}

// NewProviderFromClient creates a new OpenAI provider from an existing client.
func NewProviderFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// GenerateText implements reasoning.Provider.
func (p *Provider) GenerateText(ctx context.Context, req reasoning.Request) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", reasoning.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateJSON implements reasoning.Provider using the json_object response
// format. The raw object is returned unvalidated; the caller owns validation.
func (p *Provider) GenerateJSON(ctx context.Context, req reasoning.Request) (json.RawMessage, error) {
	params := p.buildParams(req)
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, reasoning.ErrEmptyResponse
	}

	return json.RawMessage(util.StripCodeFences(resp.Choices[0].Message.Content)), nil
}

func (p *Provider) buildParams(req reasoning.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.System)+1)
	for _, sys := range req.System {
		messages = append(messages, openai.SystemMessage(sys))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	temp := req.Temperature
	if temp == 0 {
		temp = p.opts.Temperature
	}

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               p.opts.Model,
		Temperature:         openai.Float(temp),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}
}

// Info returns metadata describing this provider implementation.
func (p *Provider) Info() reasoning.Info {
	return reasoning.Info{Name: p.opts.Model, Provider: "openai"}
}
