// Package store persists conversation exchanges to Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the durable conversation log. The underlying pool is safe for
// concurrent use; connections are acquired per call only.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema idempotently provisions the persisted tables. Safe to call on
// every webhook invocation.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const conversationsDDL = `
		CREATE TABLE IF NOT EXISTS conversations (
			id BIGSERIAL PRIMARY KEY,
			source_id TEXT NOT NULL,
			inbound_text TEXT NOT NULL,
			reply_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.pool.Exec(ctx, conversationsDDL); err != nil {
		return classify("create conversations table", err)
	}

	const storageDDL = `
		CREATE TABLE IF NOT EXISTS app_storage (
			key VARCHAR(255) PRIMARY KEY,
			value TEXT NOT NULL
		)`
	if _, err := s.pool.Exec(ctx, storageDDL); err != nil {
		return classify("create app_storage table", err)
	}

	return nil
}

// ConversationInput is one exchange ready to be persisted. A row is written
// only after a reply has been successfully generated.
type ConversationInput struct {
	SourceID    string
	InboundText string
	ReplyText   string
}

// ConversationRecord is one persisted exchange. ID and CreatedAt are assigned
// server-side; records are never updated or deleted.
type ConversationRecord struct {
	ID          int64     `json:"id"`
	SourceID    string    `json:"source_id"`
	InboundText string    `json:"inbound_text"`
	ReplyText   string    `json:"reply_text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Append inserts one exchange as a single atomic insert and returns the
// stored record.
func (s *Store) Append(ctx context.Context, in ConversationInput) (ConversationRecord, error) {
	rec := ConversationRecord{
		SourceID:    in.SourceID,
		InboundText: in.InboundText,
		ReplyText:   in.ReplyText,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (source_id, inbound_text, reply_text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		in.SourceID, in.InboundText, in.ReplyText,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return ConversationRecord{}, classify("insert conversation", err)
	}

	return rec, nil
}
