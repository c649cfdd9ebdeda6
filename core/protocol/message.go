package protocol

import (
	"encoding/json"
	"fmt"
)

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall represents a tool invocation requested by the model.
// Fields are flat (ID, Name, Arguments) for direct use across the service.
// UnmarshalJSON transparently handles the nested LLM API format
// (function.name, function.arguments) so endpoint responses decode correctly.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// MarshalJSON serializes to the nested LLM API format ({type, function: {name, arguments}})
// ensuring round-trip fidelity with UnmarshalJSON for endpoint communication.
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	}{
		ID:   tc.ID,
		Type: "function",
		Function: struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}{
			Name:      tc.Name,
			Arguments: tc.Arguments,
		},
	})
}

// UnmarshalJSON handles both the nested LLM API format ({function: {name, arguments}})
// and the flat form ({name, arguments}). This allows endpoint responses to
// decode directly into the canonical ToolCall type.
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var nested struct {
		ID       string `json:"id"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}

	if nested.Function.Name != "" {
		tc.ID = nested.ID
		tc.Name = nested.Function.Name
		tc.Arguments = nested.Function.Arguments
		return nil
	}

	type plain ToolCall
	return json.Unmarshal(data, (*plain)(tc))
}

// Message represents a single message in a conversation transcript.
//
// Content is a tagged union: Text for plain messages, ToolResult for
// structured tool output. Assistant messages that request tool invocations
// carry ToolCalls; the answering tool-role messages carry a ToolCallID that
// correlates back to the request.
//
// Invariant: every tool-role message answers exactly one request of the
// nearest preceding assistant message, and all of that message's requests
// are answered, in request order, before any later user or assistant
// message appears.
type Message struct {
	Role       Role
	Content    Content
	ToolCallID string
	ToolCalls  []ToolCall
}

// NewText creates a plain-text Message with the given role.
//
// Example:
//
//	msg := protocol.NewText(protocol.RoleUser, "Hello, world!")
func NewText(role Role, text string) Message {
	return Message{Role: role, Content: Text(text)}
}

// NewToolReply creates a tool-role Message answering the request with the
// given tool-call id.
func NewToolReply(toolCallID string, content Content) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// MarshalJSON renders the message with content reduced to a plain
// JSON-compatible value via the content variant's JSONValue.
func (m Message) MarshalJSON() ([]byte, error) {
	w := struct {
		Role       Role       `json:"role"`
		Content    any        `json:"content"`
		ToolCallID string     `json:"tool_call_id,omitempty"`
		ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	}{
		Role:       m.Role,
		Content:    "",
		ToolCallID: m.ToolCallID,
		ToolCalls:  m.ToolCalls,
	}
	if m.Content != nil {
		w.Content = m.Content.JSONValue()
	}
	return json.Marshal(w)
}

// UnmarshalJSON reconstructs the content variant from the JSON shape: a
// string becomes Text, an array becomes ToolResult, null becomes empty Text.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w struct {
		Role       Role            `json:"role"`
		Content    json.RawMessage `json:"content"`
		ToolCallID string          `json:"tool_call_id"`
		ToolCalls  []ToolCall      `json:"tool_calls"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	content, err := decodeContent(w.Content)
	if err != nil {
		return fmt.Errorf("message content: %w", err)
	}

	m.Role = w.Role
	m.Content = content
	m.ToolCallID = w.ToolCallID
	m.ToolCalls = w.ToolCalls
	return nil
}
