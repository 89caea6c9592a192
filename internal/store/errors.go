package store

import (
	"errors"
	"fmt"

	"github.com/rpggio/siteledger/internal/domain/project"
)

var (
	// ErrTooLarge is returned when the serialized collection exceeds the size ceiling.
	ErrTooLarge = errors.New("serialized projects exceed size limit")
	// ErrEncoding is returned when the serialized collection fails its own read-back check.
	ErrEncoding = errors.New("serialized projects failed verification")
)

// SaveError reports a failed write of the primary slot. When Recovered is
// true, Restored holds the collection reloaded from the backup slot and the
// primary slot matches it.
type SaveError struct {
	Err       error
	Restored  []project.Project
	Recovered bool
}

func (e *SaveError) Error() string {
	if e.Recovered {
		return fmt.Sprintf("save failed, restored %d projects from backup: %v", len(e.Restored), e.Err)
	}
	return fmt.Sprintf("save failed, backup restore failed: %v", e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}
