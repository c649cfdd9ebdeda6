package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/relaydeck/convod/core/protocol"
)

// Mux merges several invokers behind one Invoker. List concatenates the
// underlying tool sets, first registration of a name wins. Invoke dispatches
// to the first invoker that claims the name, so local registries should be
// listed before remote buses.
type Mux struct {
	invokers []Invoker

	mu     sync.RWMutex
	owners map[string]Invoker
}

// NewMux creates a Mux over the given invokers, skipping nil entries.
func NewMux(invokers ...Invoker) *Mux {
	filtered := make([]Invoker, 0, len(invokers))
	for _, inv := range invokers {
		if inv != nil {
			filtered = append(filtered, inv)
		}
	}
	return &Mux{invokers: filtered}
}

func (m *Mux) List(ctx context.Context) ([]protocol.Tool, error) {
	seen := make(map[string]bool)
	owners := make(map[string]Invoker)
	var defs []protocol.Tool

	for _, inv := range m.invokers {
		tools, err := inv.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tools {
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			owners[t.Name] = inv
			defs = append(defs, t)
		}
	}

	m.mu.Lock()
	m.owners = owners
	m.mu.Unlock()

	return defs, nil
}

// Invoke dispatches to the invoker that owns name. Ownership comes from the
// cached List result; an unknown name triggers one refresh so tools
// registered after the last List are still found.
func (m *Mux) Invoke(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	m.mu.RLock()
	owner, ok := m.owners[name]
	m.mu.RUnlock()

	if !ok {
		if _, err := m.List(ctx); err != nil {
			return Result{}, err
		}
		m.mu.RLock()
		owner, ok = m.owners[name]
		m.mu.RUnlock()
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return owner.Invoke(ctx, name, args)
}
