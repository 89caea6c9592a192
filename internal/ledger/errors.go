package ledger

import "errors"

var (
	// ErrRolledBack indicates a save failed and the collection was restored
	// from the backup slot. The mutation is lost.
	ErrRolledBack = errors.New("changes rolled back to last backup")
	// ErrNotPersisted indicates a save failed and the backup could not be
	// restored. The mutation is kept in memory only.
	ErrNotPersisted = errors.New("changes may not be saved")
)
