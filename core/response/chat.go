// Package response defines the envelope returned by the model endpoint and
// helpers for parsing it.
package response

import (
	"encoding/json"
	"fmt"

	"github.com/relaydeck/convod/core/protocol"
)

// TokenUsage reports token consumption for one model call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AssistantMessage is the model's message inside a choice: text content plus
// any tool-call requests.
type AssistantMessage struct {
	Role      string              `json:"role"`
	Content   string              `json:"content"`
	ToolCalls []protocol.ToolCall `json:"tool_calls,omitempty"`
}

// Choice is one completion alternative. The orchestrator only ever consumes
// the first.
type Choice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason,omitempty"`
}

// ChatResponse represents the response from a chat completion request.
// Contains the assistant message, optional tool-call requests, and token usage.
type ChatResponse struct {
	ID      string      `json:"id,omitempty"`
	Object  string      `json:"object,omitempty"`
	Created int64       `json:"created,omitempty"`
	Model   string      `json:"model"`
	Choices []Choice    `json:"choices"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// ParseChat parses a chat completion response from JSON bytes.
// Returns the parsed ChatResponse or an error if parsing fails.
func ParseChat(body []byte) (*ChatResponse, error) {
	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}
	return &resp, nil
}

// First returns the first choice's message, or an error when the response
// carries no choices.
func (r *ChatResponse) First() (*AssistantMessage, error) {
	if len(r.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices")
	}
	return &r.Choices[0].Message, nil
}
