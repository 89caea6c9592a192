package storage

import "errors"

var (
	// ErrNotFound is returned when a slot holds no value
	ErrNotFound = errors.New("slot not found")

	// ErrInvalidKey is returned when a key cannot name a slot
	ErrInvalidKey = errors.New("invalid slot key")
)
