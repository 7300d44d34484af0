package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// GetItem reads one value from app_storage. The second return value reports
// whether the key exists.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM app_storage WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("get item", err)
	}
	return value, true, nil
}

// SetItem upserts one value into app_storage.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_storage (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return classify("set item", err)
	}
	return nil
}
