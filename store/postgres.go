package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydeck/convod/core/protocol"
)

// PostgresStore persists conversations in a single jsonb-backed table.
// The upsert in Save rewrites the full message array in one statement, which
// carries the atomic-visibility guarantee over to shared databases.
type PostgresStore struct {
	db *pgxpool.Pool
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a Store backed by the given connection pool.
// The conversations table must exist; see Migrate.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the conversations table when it is missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS conversations (
			id         text PRIMARY KEY,
			created_at timestamptz NOT NULL DEFAULT now(),
			messages   jsonb NOT NULL DEFAULT '[]'::jsonb
		)`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, id string) (*Conversation, error) {
	const query = `
		INSERT INTO conversations (id, created_at, messages)
		VALUES ($1, $2, '[]'::jsonb)
		ON CONFLICT (id) DO NOTHING`

	now := time.Now().UTC()
	if _, err := s.db.Exec(ctx, query, id, now); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSaveFailed, id, err)
	}

	// The insert may have been a no-op for an existing id; return whatever
	// the table now holds so history is preserved.
	return s.Load(ctx, id)
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*Conversation, error) {
	const query = `SELECT id, created_at, messages FROM conversations WHERE id = $1`

	var (
		conv Conversation
		raw  []byte
	)
	err := s.db.QueryRow(ctx, query, id).Scan(&conv.ID, &conv.CreatedAt, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, id, err)
	}

	var messages []protocol.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, id, err)
	}
	conv.Messages = messages
	return &conv, nil
}

func (s *PostgresStore) Save(ctx context.Context, conv *Conversation) error {
	const query = `
		INSERT INTO conversations (id, created_at, messages)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET messages = EXCLUDED.messages`

	raw, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, conv.ID, err)
	}
	if conv.Messages == nil {
		raw = []byte("[]")
	}

	if _, err := s.db.Exec(ctx, query, conv.ID, conv.CreatedAt, raw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, conv.ID, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM conversations ORDER BY created_at`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return ids, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM conversations WHERE id = $1`

	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete failed: %s: %w", id, err)
	}
	return nil
}
