package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/relaydeck/convod/core/protocol"
	"github.com/relaydeck/convod/tools"
)

// countingInvoker counts List calls on the wrapped invoker.
type countingInvoker struct {
	tools.Invoker
	listCalls int
}

func (c *countingInvoker) List(ctx context.Context) ([]protocol.Tool, error) {
	c.listCalls++
	return c.Invoker.List(ctx)
}

func newRegistryWith(t *testing.T, names ...string) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	for _, name := range names {
		name := name
		handler := func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
			return tools.Result{Content: "from " + name}, nil
		}
		if err := reg.Register(toolDef(name), handler); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func TestMux_List_FirstRegistrationWins(t *testing.T) {
	local := newRegistryWith(t, "echo", "datetime")
	remote := newRegistryWith(t, "echo", "web_search")

	mux := tools.NewMux(local, remote)
	defs, err := mux.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(defs) != 3 {
		t.Fatalf("List() len = %d, want 3 (shadowed name deduped)", len(defs))
	}
}

func TestMux_Invoke_DispatchesToOwner(t *testing.T) {
	local := newRegistryWith(t, "datetime")
	remote := newRegistryWith(t, "web_search")

	mux := tools.NewMux(local, remote)

	res, err := mux.Invoke(context.Background(), "web_search", json.RawMessage("{}"))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.Content != "from web_search" {
		t.Errorf("Invoke() content = %q", res.Content)
	}
}

func TestMux_Invoke_ShadowedNameGoesToFirst(t *testing.T) {
	first := newRegistryWith(t, "echo")
	second := tools.NewRegistry()
	if err := second.Register(toolDef("echo"), func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: "from second"}, nil
	}); err != nil {
		t.Fatal(err)
	}

	mux := tools.NewMux(first, second)
	res, err := mux.Invoke(context.Background(), "echo", nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.Content != "from echo" {
		t.Errorf("Invoke() content = %q, want first invoker's result", res.Content)
	}
}

func TestMux_Invoke_Unknown(t *testing.T) {
	mux := tools.NewMux(newRegistryWith(t, "datetime"))

	_, err := mux.Invoke(context.Background(), "missing", nil)
	if !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Invoke() error = %v, want ErrNotFound", err)
	}
}

func TestMux_Invoke_ResolvesOwnerFromCachedList(t *testing.T) {
	remote := &countingInvoker{Invoker: newRegistryWith(t, "web_search")}
	mux := tools.NewMux(newRegistryWith(t, "datetime"), remote)

	if _, err := mux.List(context.Background()); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	remote.listCalls = 0

	// Repeated dispatch must not re-list the remote invoker.
	for i := 0; i < 3; i++ {
		if _, err := mux.Invoke(context.Background(), "web_search", nil); err != nil {
			t.Fatalf("Invoke() #%d error = %v", i, err)
		}
	}
	if remote.listCalls != 0 {
		t.Errorf("remote List called %d times during dispatch, want 0", remote.listCalls)
	}
}

func TestMux_Invoke_RefreshesOnUnknownName(t *testing.T) {
	second := newRegistryWith(t, "datetime")
	mux := tools.NewMux(second)

	if _, err := mux.List(context.Background()); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	// A tool registered after the last List is still reachable.
	if err := second.Register(toolDef("late"), func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: "from late"}, nil
	}); err != nil {
		t.Fatal(err)
	}

	res, err := mux.Invoke(context.Background(), "late", nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.Content != "from late" {
		t.Errorf("Invoke() content = %q", res.Content)
	}
}

func TestMux_SkipsNilInvokers(t *testing.T) {
	mux := tools.NewMux(nil, newRegistryWith(t, "datetime"), nil)

	defs, err := mux.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(defs) != 1 {
		t.Errorf("List() len = %d, want 1", len(defs))
	}
}
