package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/relaydeck/convod/core/protocol"
	"github.com/relaydeck/convod/tools"
)

func echoHandler(_ context.Context, args json.RawMessage) (tools.Result, error) {
	return tools.Result{Content: string(args)}, nil
}

func toolDef(name string) protocol.Tool {
	return protocol.Tool{Name: name, Parameters: map[string]any{"type": "object"}}
}

func TestRegistry_Register(t *testing.T) {
	reg := tools.NewRegistry()

	if err := reg.Register(toolDef("echo"), echoHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := reg.Register(toolDef("echo"), echoHandler); !errors.Is(err, tools.ErrAlreadyExists) {
		t.Errorf("Register() duplicate error = %v, want ErrAlreadyExists", err)
	}

	if err := reg.Register(protocol.Tool{}, echoHandler); !errors.Is(err, tools.ErrEmptyName) {
		t.Errorf("Register() empty name error = %v, want ErrEmptyName", err)
	}
}

func TestRegistry_Replace(t *testing.T) {
	reg := tools.NewRegistry()

	if err := reg.Replace(toolDef("missing"), echoHandler); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Replace() unknown error = %v, want ErrNotFound", err)
	}

	if err := reg.Register(toolDef("echo"), echoHandler); err != nil {
		t.Fatal(err)
	}
	replaced := func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: "replaced"}, nil
	}
	if err := reg.Replace(toolDef("echo"), replaced); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	res, err := reg.Invoke(context.Background(), "echo", json.RawMessage("{}"))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.Content != "replaced" {
		t.Errorf("Invoke() content = %q, want %q", res.Content, "replaced")
	}
}

func TestRegistry_List_Sorted(t *testing.T) {
	reg := tools.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(toolDef(name), echoHandler); err != nil {
			t.Fatal(err)
		}
	}

	defs, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"alpha", "mid", "zeta"}
	if len(defs) != len(want) {
		t.Fatalf("List() len = %d, want %d", len(defs), len(want))
	}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, def.Name, want[i])
		}
	}
}

func TestRegistry_Invoke(t *testing.T) {
	reg := tools.NewRegistry()
	if err := reg.Register(toolDef("echo"), echoHandler); err != nil {
		t.Fatal(err)
	}

	res, err := reg.Invoke(context.Background(), "echo", json.RawMessage(`{"k":"v"}`))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.Content != `{"k":"v"}` {
		t.Errorf("Invoke() content = %q", res.Content)
	}

	if _, err := reg.Invoke(context.Background(), "missing", nil); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Invoke() unknown error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Invoke_HandlerError(t *testing.T) {
	reg := tools.NewRegistry()
	failing := func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{}, fmt.Errorf("boom")
	}
	if err := reg.Register(toolDef("bad"), failing); err != nil {
		t.Fatal(err)
	}

	_, err := reg.Invoke(context.Background(), "bad", nil)
	if err == nil {
		t.Fatal("Invoke() expected error")
	}
	if got := err.Error(); got != "tool bad execution failed: boom" {
		t.Errorf("Invoke() error = %q", got)
	}
}
