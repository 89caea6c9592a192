// Package storage defines the key-value slot capability the persistent
// store writes through, with in-memory and file-backed implementations.
package storage

import "context"

// Storage holds string values in named slots.
type Storage interface {
	// Get returns the slot contents, or ErrNotFound when the slot is empty.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes the slot. Removing an empty slot is not an error.
	Remove(ctx context.Context, key string) error
}
