package protocol

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "nil passes", in: nil, want: nil},
		{name: "string passes", in: "hello", want: "hello"},
		{name: "bool passes", in: true, want: true},
		{name: "int passes", in: 42, want: 42},
		{name: "content serializes itself", in: Text("inner"), want: "inner"},
		{
			name: "map recurses",
			in:   map[string]any{"t": Text("x"), "n": 1},
			want: map[string]any{"t": "x", "n": 1},
		},
		{
			name: "slice recurses",
			in:   []any{Text("a"), "b"},
			want: []any{"a", "b"},
		},
		{name: "unknown degrades to string", in: struct{ X int }{X: 1}, want: "{1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToolResult_JSONValue(t *testing.T) {
	r := ToolResult{Items: []any{Text("nested"), map[string]any{"k": Text("v")}}}

	got, ok := r.JSONValue().([]any)
	if !ok {
		t.Fatalf("JSONValue() type = %T, want []any", r.JSONValue())
	}
	want := []any{"nested", map[string]any{"k": "v"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("JSONValue() = %v, want %v", got, want)
	}
}

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Content
	}{
		{name: "empty is empty text", raw: "", want: Text("")},
		{name: "null is empty text", raw: "null", want: Text("")},
		{name: "string is text", raw: `"hi"`, want: Text("hi")},
		{name: "array is tool result", raw: `[1,2]`, want: ToolResult{Items: []any{float64(1), float64(2)}}},
		{name: "object wraps into single item", raw: `{"k":"v"}`, want: ToolResult{Items: []any{map[string]any{"k": "v"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeContent([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decodeContent() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decodeContent(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeContent_Invalid(t *testing.T) {
	if _, err := decodeContent([]byte(`123`)); err == nil {
		t.Error("decodeContent(123) expected error for non-content value")
	}
}
