package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/siteledger/internal/storage"
)

var _ storage.Storage = (*SlotStorage)(nil)

// SlotStorage implements storage.Storage on the slots table
type SlotStorage struct {
	db *DB
}

// NewSlotStorage creates a new SlotStorage
func NewSlotStorage(db *DB) *SlotStorage {
	return &SlotStorage{db: db}
}

// Get returns the value held in a slot
func (s *SlotStorage) Get(ctx context.Context, key string) (string, error) {
	query := `
		SELECT value
		FROM slots
		WHERE key = ?
	`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get slot: %w", err)
	}

	return value, nil
}

// Set writes a slot, replacing any previous value
func (s *SlotStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	query := `
		INSERT INTO slots (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set slot: %w", err)
	}

	return nil
}

// Remove deletes a slot
func (s *SlotStorage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove slot: %w", err)
	}
	return nil
}
