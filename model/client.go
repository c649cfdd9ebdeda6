// Package model implements an HTTP client for OpenAI-compatible chat
// completion endpoints. The orchestrator talks to it through a narrow
// interface, so any backend exposing /chat/completions works: a hosted
// provider, a local llama.cpp server, or a test stub.
package model

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/relaydeck/convod/core/protocol"
	"github.com/relaydeck/convod/core/response"
)

const defaultTimeout = 120 * time.Second

// Config holds connection settings for a chat completion backend.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Name is the model identifier sent in each request.
	Name string
	// Timeout bounds each request. Zero means the default of two minutes.
	Timeout time.Duration
}

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	http *resty.Client
	name string
}

// NewClient creates a chat completion client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		http.SetAuthToken(cfg.APIKey)
	}

	return &Client{http: http, name: cfg.Name}
}

// chatRequest is the wire format for a chat completion call. Tools are
// wrapped in the function-calling envelope the endpoint expects.
type chatRequest struct {
	Model      string             `json:"model"`
	Messages   []protocol.Message `json:"messages"`
	Tools      []toolSpec         `json:"tools,omitempty"`
	ToolChoice string             `json:"tool_choice,omitempty"`
}

type toolSpec struct {
	Type     string        `json:"type"`
	Function protocol.Tool `json:"function"`
}

// Chat sends the transcript and tool definitions to the backend and returns
// the parsed completion. Transport failures and non-2xx statuses are
// reported as ErrUnavailable so callers can treat the backend as down.
func (c *Client) Chat(ctx context.Context, messages []protocol.Message, defs []protocol.Tool) (*response.ChatResponse, error) {
	req := chatRequest{
		Model:    c.name,
		Messages: messages,
	}
	if len(defs) > 0 {
		req.Tools = make([]toolSpec, 0, len(defs))
		for _, def := range defs {
			req.Tools = append(req.Tools, toolSpec{Type: "function", Function: def})
		}
		req.ToolChoice = "auto"
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode(), truncate(resp.String(), 512))
	}

	parsed, err := response.ParseChat(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("parse chat completion: %w", err)
	}
	return parsed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
