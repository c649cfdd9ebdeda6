// Package tools provides the tool invocation boundary: a local registry of
// in-process handlers plus the Invoker interface shared with remote tool
// buses. The orchestrator treats every tool as an opaque invoke(name, args)
// capability.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/relaydeck/convod/core/protocol"
)

// Invoker exposes the tool capability consumed by the turn orchestrator:
// the declared tool schemas, queryable before the first turn, and execution
// of a named tool. Implementations must be safe for concurrent use.
type Invoker interface {
	// List returns the definitions of all available tools.
	List(ctx context.Context) ([]protocol.Tool, error)
	// Invoke executes a named tool with JSON-encoded arguments.
	Invoke(ctx context.Context, name string, args json.RawMessage) (Result, error)
}

// Handler is the function signature for local tool implementations.
// Handlers receive the request context and JSON-encoded arguments from the LLM.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Result is the tool execution output that feeds back into the next model
// round. Content is the human-readable rendering; Items optionally carries
// the structured payload. IsError signals to the model that the invocation
// failed without aborting the turn.
type Result struct {
	Content string
	Items   []any
	IsError bool
}

type entry struct {
	tool    protocol.Tool
	handler Handler
}

// Registry holds named local tools. The zero value is not usable; construct
// with NewRegistry. Thread-safe for concurrent access.
type Registry struct {
	entries map[string]entry
	mu      sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a new tool to the registry.
// Returns ErrAlreadyExists if a tool with the same name is already registered.
// Use Replace to update an existing tool's handler.
func (r *Registry) Register(tool protocol.Tool, handler Handler) error {
	if tool.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, tool.Name)
	}

	r.entries[tool.Name] = entry{tool: tool, handler: handler}
	return nil
}

// Replace updates an existing tool's definition and handler.
// Returns ErrNotFound if no tool with the given name is registered.
func (r *Registry) Replace(tool protocol.Tool, handler Handler) error {
	if tool.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, tool.Name)
	}

	r.entries[tool.Name] = entry{tool: tool, handler: handler}
	return nil
}

// List returns the definitions of all registered tools, sorted by name.
func (r *Registry) List(_ context.Context) ([]protocol.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]protocol.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		defs = append(defs, e.tool)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Invoke dispatches a tool call to the registered handler by name.
// Returns ErrNotFound if the tool is not registered.
// Handler errors are wrapped with the tool name for context.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	result, err := e.handler(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("tool %s execution failed: %w", name, err)
	}

	return result, nil
}
