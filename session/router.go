// Package session routes edge requests to conversations. The router owns a
// per-conversation lock table so turns on the same id execute one at a time,
// while turns on different ids proceed concurrently. All conversation state
// lives in the store; the router itself keeps nothing but locks.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/relaydeck/convod/convo"
	"github.com/relaydeck/convod/core/protocol"
	"github.com/relaydeck/convod/store"
)

// Router serializes access to conversations and drives turns through the
// orchestrator. Safe for concurrent use.
type Router struct {
	store store.Store
	orch  *convo.Orchestrator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRouter creates a Router over the given store and orchestrator.
func NewRouter(st store.Store, orch *convo.Orchestrator) *Router {
	return &Router{
		store: st,
		orch:  orch,
		locks: make(map[string]*sync.Mutex),
	}
}

// Handle is a borrowed conversation. It is exclusive: no other turn on the
// same id can start until End is called.
type Handle struct {
	Conv *store.Conversation

	// Minted reports whether the id was generated for this request because
	// the caller supplied none.
	Minted bool

	release func()
	once    sync.Once
}

// End returns the conversation to the router. Idempotent.
func (h *Handle) End() {
	h.once.Do(h.release)
}

// lockFor returns the mutex guarding id, creating it on first use. Lock
// entries are never removed; the table grows with the set of ids touched by
// this process, which is bounded by the store's population.
func (r *Router) lockFor(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// Begin borrows the conversation for id, blocking while another turn on the
// same id is in flight. An empty id mints a fresh one. Unknown ids begin an
// empty conversation in memory; nothing is written until the first Save.
func (r *Router) Begin(ctx context.Context, id string) (*Handle, error) {
	minted := false
	if id == "" {
		id = uuid.NewString()
		minted = true
	}

	l := r.lockFor(id)
	l.Lock()

	conv, err := r.store.Load(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		conv = store.NewConversation(id)
	case err != nil:
		l.Unlock()
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}

	return &Handle{Conv: conv, Minted: minted, release: l.Unlock}, nil
}

// RunTurn drives one user turn on a borrowed conversation, saving the
// transcript after every transition.
func (r *Router) RunTurn(ctx context.Context, h *Handle, input string) (*convo.Result, error) {
	persist := func(ctx context.Context) error {
		return r.store.Save(ctx, h.Conv)
	}
	return r.orch.RunTurn(ctx, h.Conv, input, persist)
}

// Query is the single-shot edge operation: borrow, run one turn, release.
// The returned result carries only this turn's delta.
func (r *Router) Query(ctx context.Context, id, input string) (string, *convo.Result, error) {
	h, err := r.Begin(ctx, id)
	if err != nil {
		return "", nil, err
	}
	defer h.End()

	result, err := r.RunTurn(ctx, h, input)
	return h.Conv.ID, result, err
}

// RecordUpload attaches an uploaded file to the conversation as transcript
// context: a user message naming the file, then the extracted payload the
// model can read on the next turn. The transcript is saved before returning;
// the updated conversation is returned for the edge response.
func (r *Router) RecordUpload(ctx context.Context, id, filename, payload string) (*store.Conversation, error) {
	h, err := r.Begin(ctx, id)
	if err != nil {
		return nil, err
	}
	defer h.End()

	h.Conv.Messages = append(h.Conv.Messages,
		protocol.NewText(protocol.RoleUser, fmt.Sprintf("Uploaded file: %s", filename)),
		protocol.NewText(protocol.RoleUser, payload),
	)

	if err := r.store.Save(ctx, h.Conv); err != nil {
		return nil, fmt.Errorf("persist upload: %w", err)
	}
	return h.Conv, nil
}

// List returns all known conversation ids.
func (r *Router) List(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

// Transcript returns the stored conversation for id.
func (r *Router) Transcript(ctx context.Context, id string) (*store.Conversation, error) {
	return r.store.Load(ctx, id)
}

// Delete removes the conversation for id. It takes the per-id lock so a
// deletion never interleaves with an in-flight turn's saves.
func (r *Router) Delete(ctx context.Context, id string) error {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	return r.store.Delete(ctx, id)
}
