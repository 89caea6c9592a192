package project

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound indicates no project has the requested id.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates a field value the ledger does not accept.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateID indicates a caller-supplied id is already taken.
	ErrDuplicateID = errors.New("id already exists")
)

// invalid wraps ErrInvalidInput with the offending field.
func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidInput, field, reason)
}
