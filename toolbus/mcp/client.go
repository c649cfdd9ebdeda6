// Package mcp bridges a remote MCP (Model Context Protocol) tool server into
// the local tool invocation boundary. The server is reached over HTTP with
// JSON-RPC 2.0 framing: tools/list for discovery, tools/call for execution.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/relaydeck/convod/core/protocol"
	"github.com/relaydeck/convod/tools"
)

// Client talks JSON-RPC to an MCP server. It implements tools.Invoker, so
// remote tools are indistinguishable from local ones to the orchestrator.
type Client struct {
	http *resty.Client
}

var _ tools.Invoker = (*Client)(nil)

// NewClient constructs an MCP bridge for the server at baseURL. Requests are
// posted to the URL as-is, so include the RPC path (e.g. ".../v1/mcp").
func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json"),
	}
}

// List fetches the server's tool definitions via tools/list. The MCP
// inputSchema field maps onto Tool.Parameters unchanged.
func (c *Client) List(ctx context.Context) ([]protocol.Tool, error) {
	raw, err := c.call(ctx, "tools/list", map[string]any{}, 1)
	if err != nil {
		return nil, err
	}

	var result struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}

	defs := make([]protocol.Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		params := t.InputSchema
		if params == nil {
			params = map[string]any{"type": "object"}
		}
		defs = append(defs, protocol.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return defs, nil
}

// Invoke executes a remote tool via tools/call. Text content items are
// joined into Result.Content; the raw items are preserved in Result.Items.
func (c *Client) Invoke(ctx context.Context, name string, args json.RawMessage) (tools.Result, error) {
	arguments := map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return tools.Result{}, fmt.Errorf("tool %s: decode arguments: %w", name, err)
		}
	}

	raw, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": arguments,
	}, name)
	if err != nil {
		return tools.Result{}, fmt.Errorf("tool %s: %w", name, err)
	}

	var result struct {
		Content []contentItem `json:"content"`
		IsError bool          `json:"isError"`
		Error   string        `json:"error"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return tools.Result{}, fmt.Errorf("tool %s: decode tools/call result: %w", name, err)
	}
	if result.Error != "" && !result.IsError {
		result.IsError = true
	}

	var texts []string
	items := make([]any, 0, len(result.Content))
	for _, item := range result.Content {
		if item.Type == "text" && item.Text != "" {
			texts = append(texts, item.Text)
		}
		items = append(items, item.asMap())
	}
	content := strings.Join(texts, "\n")
	if content == "" && result.Error != "" {
		content = result.Error
	}

	return tools.Result{Content: content, Items: items, IsError: result.IsError}, nil
}

type contentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

func (ci contentItem) asMap() map[string]any {
	m := map[string]any{"type": ci.Type}
	if ci.Text != "" {
		m["text"] = ci.Text
	}
	if ci.Data != "" {
		m["data"] = ci.Data
	}
	if ci.MimeType != "" {
		m["mimeType"] = ci.MimeType
	}
	return m
}

// call posts one JSON-RPC request and returns the raw result payload.
func (c *Client) call(ctx context.Context, method string, params map[string]any, id any) (json.RawMessage, error) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      id,
	}

	var rpcResp rpcResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&rpcResp).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("mcp %s: %w", method, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mcp %s: status %d: %s", method, resp.StatusCode(), resp.String())
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      any             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r *rpcError) Error() string {
	return fmt.Sprintf("mcp error (%d): %s", r.Code, r.Message)
}
