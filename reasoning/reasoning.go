// Package reasoning defines the boundary to the language model service used by
// the thought generators: freeform text generation and structured JSON
// generation. Provider implementations live in the subpackages openai and
// anthropic; MockProvider supports tests and examples.
package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/agentrouter/internal/util"
)

// Request captures the normalized input for one generation call. System blocks
// are passed to the provider in order, followed by the user prompt.
type Request struct {
	System      []string
	Prompt      string
	Temperature float64 // 0 selects the provider default
}

// Provider is the minimal interface required by the thought generators.
//
// GenerateJSON returns the raw JSON object emitted by the model; callers
// validate it at their own boundary before decoding. Both methods return an
// error only for transport-level failures (service unreachable, empty reply),
// which the engine treats as fatal for the current run.
type Provider interface {
	GenerateText(ctx context.Context, req Request) (string, error)
	GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error)
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock"
}

// ErrEmptyResponse reports a provider reply with no usable content.
var ErrEmptyResponse = errors.New("reasoning service returned an empty response")

// MockProvider is a scripted in-memory Provider for tests and examples. Text
// and JSON replies are popped in FIFO order; an exhausted queue falls back to
// a canned reply so simple demos keep working.
type MockProvider struct {
	textQueue []string
	jsonQueue []string
	failWith  error
}

// NewMockProvider constructs an empty scripted provider.
func NewMockProvider() *MockProvider { return &MockProvider{} }

// QueueText appends scripted text replies.
func (m *MockProvider) QueueText(replies ...string) *MockProvider {
	m.textQueue = append(m.textQueue, replies...)
	return m
}

// QueueJSON appends scripted JSON replies.
func (m *MockProvider) QueueJSON(replies ...string) *MockProvider {
	m.jsonQueue = append(m.jsonQueue, replies...)
	return m
}

// FailWith makes every subsequent call return err, simulating an unreachable
// service.
func (m *MockProvider) FailWith(err error) *MockProvider {
	m.failWith = err
	return m
}

// GenerateText implements Provider.
func (m *MockProvider) GenerateText(_ context.Context, req Request) (string, error) {
	if m.failWith != nil {
		return "", m.failWith
	}
	if len(m.textQueue) == 0 {
		return fmt.Sprintf("Mock response to: %s", req.Prompt), nil
	}
	reply := m.textQueue[0]
	m.textQueue = m.textQueue[1:]
	return reply, nil
}

// GenerateJSON implements Provider.
func (m *MockProvider) GenerateJSON(_ context.Context, _ Request) (json.RawMessage, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	if len(m.jsonQueue) == 0 {
		return nil, ErrEmptyResponse
	}
	reply := m.jsonQueue[0]
	m.jsonQueue = m.jsonQueue[1:]
	return json.RawMessage(util.StripCodeFences(reply)), nil
}

// Info implements the metadata accessor used by logging.
func (m *MockProvider) Info() Info { return Info{Name: "mock", Provider: "mock"} }
