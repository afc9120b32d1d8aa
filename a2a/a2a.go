// Package a2a implements a minimal client for the agent-to-agent JSON-RPC
// protocol: one message in, one reply out. A remote agent may run its own
// routing loop and return the resulting process snapshot alongside its text.
package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// Reply is the normalized outcome of one agent exchange.
type Reply struct {
	// Message is the agent's textual answer, all text parts joined.
	Message string
	// Process is the nested routing process the agent ran to produce the
	// answer, when the agent exposes one.
	Process *core.RouterProcess
}

// Client is the boundary the dispatch layer calls through. Implementations
// must be safe for concurrent use.
type Client interface {
	// Name returns the agent name used for call addressing.
	Name() string
	// Send delivers one instruction and blocks for the reply. The contextID
	// groups related exchanges on the agent side.
	Send(ctx context.Context, instruction, contextID string) (Reply, error)
}

// HTTPClientOptions configures an HTTPClient.
type HTTPClientOptions struct {
	HTTPClient *http.Client
	Logger     *logging.RouterLogger
	Timeout    time.Duration
}

// HTTPClient talks to a remote agent over JSON-RPC 2.0 ("message/send").
type HTTPClient struct {
	name    string
	baseURL string
	client  *http.Client
	logger  *logging.RouterLogger
}

// NewHTTPClient creates a client for one named agent endpoint.
func NewHTTPClient(name, baseURL string, optFns ...func(o *HTTPClientOptions)) *HTTPClient {
	opts := HTTPClientOptions{
		Timeout: 120 * time.Second,
		Logger:  logging.NewLogger(nil).WithComponent("a2a"),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		logger:  opts.Logger,
	}
}

// Name implements Client.
func (c *HTTPClient) Name() string { return c.name }

type rpcRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      string     `json:"id"`
	Method  string     `json:"method"`
	Params  sendParams `json:"params"`
}

type sendParams struct {
	Message rpcMessage `json:"message"`
}

type rpcMessage struct {
	Kind      string    `json:"kind"`
	MessageID string    `json:"messageId"`
	Role      string    `json:"role"`
	ContextID string    `json:"contextId,omitempty"`
	Parts     []rpcPart `json:"parts"`
}

type rpcPart struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// resultEnvelope covers both reply shapes agents use: a bare message or a
// task whose status carries the message. Metadata may hold the nested
// routing process under "routerProcess".
type resultEnvelope struct {
	Kind     string                     `json:"kind"`
	Parts    []rpcPart                  `json:"parts"`
	Status   *taskStatus                `json:"status,omitempty"`
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
}

type taskStatus struct {
	State   string      `json:"state,omitempty"`
	Message *rpcMessage `json:"message,omitempty"`
}

// Send implements Client.
func (c *HTTPClient) Send(ctx context.Context, instruction, contextID string) (Reply, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      core.NewID(),
		Method:  "message/send",
		Params: sendParams{
			Message: rpcMessage{
				Kind:      "message",
				MessageID: core.NewID(),
				Role:      "user",
				ContextID: contextID,
				Parts:     []rpcPart{{Kind: "text", Text: instruction}},
			},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Reply{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("agent %s unreachable: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read reply from agent %s: %w", c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("agent %s returned status %d", c.name, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return Reply{}, fmt.Errorf("decode reply from agent %s: %w", c.name, err)
	}
	if rpcResp.Error != nil {
		return Reply{}, fmt.Errorf("agent %s rpc error %d: %s", c.name, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	reply, err := parseResult(rpcResp.Result)
	if err != nil {
		return Reply{}, fmt.Errorf("agent %s: %w", c.name, err)
	}

	c.logger.Debug("agent exchange completed",
		"agent", c.name, "duration_ms", time.Since(start).Milliseconds())
	return reply, nil
}

func parseResult(raw json.RawMessage) (Reply, error) {
	if len(raw) == 0 {
		return Reply{}, fmt.Errorf("empty rpc result")
	}

	var envelope resultEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Reply{}, fmt.Errorf("decode rpc result: %w", err)
	}

	parts := envelope.Parts
	if len(parts) == 0 && envelope.Status != nil && envelope.Status.Message != nil {
		parts = envelope.Status.Message.Parts
	}

	var sb strings.Builder
	for _, part := range parts {
		if part.Kind == "text" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return Reply{}, fmt.Errorf("reply contains no text parts")
	}

	reply := Reply{Message: sb.String()}
	if rawProcess, ok := envelope.Metadata["routerProcess"]; ok {
		var process core.RouterProcess
		if err := json.Unmarshal(rawProcess, &process); err == nil {
			reply.Process = &process
		}
	}
	return reply, nil
}
