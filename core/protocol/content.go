package protocol

import (
	"encoding/json"
	"fmt"
)

// Content is the payload of a message. Exactly one concrete variant is
// present per message, and each variant renders itself to a plain
// JSON-compatible value through JSONValue. Persistence and transport never
// inspect content shape at runtime beyond this single capability.
type Content interface {
	// JSONValue returns the value persisted for this content: a string,
	// or a tree of maps, slices and primitives.
	JSONValue() any

	isContent()
}

// Text is plain text content.
type Text string

func (Text) isContent() {}

// JSONValue returns the text as a plain string.
func (t Text) JSONValue() any { return string(t) }

func (t Text) String() string { return string(t) }

// ToolResult is structured output returned by a tool invocation. Items hold
// the tool's payload as decoded JSON values; non-primitive items are
// normalized recursively on serialization.
type ToolResult struct {
	Items []any
}

func (ToolResult) isContent() {}

// JSONValue returns the items normalized to pure JSON-compatible values.
func (r ToolResult) JSONValue() any {
	items := make([]any, len(r.Items))
	for i, item := range r.Items {
		items[i] = normalize(item)
	}
	return items
}

// normalize converts v to a pure JSON-compatible value. Content variants
// serialize themselves, maps and slices recurse, primitives pass through,
// and anything else degrades to its string form.
func normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case Content:
		return val.JSONValue()
	case string:
		return val
	case bool:
		return val
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return val
	case json.Number:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return fmt.Sprint(val)
	}
}

// decodeContent maps a raw JSON content value onto its variant.
func decodeContent(raw json.RawMessage) (Content, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Text(""), nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return Text(text), nil
	}

	var items []any
	if err := json.Unmarshal(raw, &items); err == nil {
		return ToolResult{Items: items}, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return ToolResult{Items: []any{obj}}, nil
	}

	return nil, fmt.Errorf("unsupported content value: %s", string(raw))
}
