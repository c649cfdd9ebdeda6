// Package store provides durable, keyed-by-id persistence for conversation
// transcripts. Implementations are stateless — they perform I/O on each call
// without caching — and must make Save atomic relative to concurrent readers
// of the same id: a Load during a Save sees either the old or the new full
// sequence, never a partial write.
package store

import (
	"context"
	"time"

	"github.com/relaydeck/convod/core/protocol"
)

// Conversation is the durable record: an opaque id, its immutable creation
// time, and the full ordered message transcript. The whole sequence is
// overwritten on each Save.
type Conversation struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Messages  []protocol.Message `json:"messages"`
}

// NewConversation creates an empty in-memory Conversation for the given id.
// Nothing is persisted until the first Save.
func NewConversation(id string) *Conversation {
	return &Conversation{ID: id, CreatedAt: time.Now().UTC()}
}

// Store translates between durable storage and conversation records.
type Store interface {
	// Create persists an empty conversation for id. Creating an existing id
	// is a no-op that preserves its history and returns the stored record.
	Create(ctx context.Context, id string) (*Conversation, error)
	// Load retrieves the conversation for id. Returns ErrNotFound when no
	// prior data exists.
	Load(ctx context.Context, id string) (*Conversation, error)
	// Save persists the full message sequence, overwriting any previous
	// content for the id.
	Save(ctx context.Context, conv *Conversation) error
	// List returns all known conversation ids.
	List(ctx context.Context) ([]string, error)
	// Delete removes the conversation for id. Unknown ids are ignored.
	Delete(ctx context.Context, id string) error
}
