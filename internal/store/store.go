// Package store persists the project collection in a storage slot with a
// single backup slot, validating what it reads and recovering from
// corrupted or failed writes.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/storage"
)

const (
	// DefaultPrimaryKey names the slot holding the project collection.
	DefaultPrimaryKey = "construction_projects"
	// DefaultBackupKey names the slot holding the previous primary contents.
	DefaultBackupKey = "construction_projects_backup"
	// DefaultMaxBytes is the serialized size ceiling.
	DefaultMaxBytes = 5 * 1024 * 1024
)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	PrimaryKey string
	BackupKey  string
	MaxBytes   int
	Now        func() time.Time
}

// Store loads and saves the full project collection. Calls are serialized
// so a backup/primary pair is never written by two saves at once.
type Store struct {
	storage storage.Storage
	logger  *slog.Logger
	opts    Options
	mu      sync.Mutex
}

// New creates a store writing through s.
func New(s storage.Storage, logger *slog.Logger, opts Options) *Store {
	if opts.PrimaryKey == "" {
		opts.PrimaryKey = DefaultPrimaryKey
	}
	if opts.BackupKey == "" {
		opts.BackupKey = DefaultBackupKey
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{storage: s, logger: logger, opts: opts}
}

// Load reads the collection. An empty slot yields an empty collection. A
// slot that does not hold a JSON array is logged, removed, and treated as
// empty. Invalid entries are dropped individually.
func (s *Store) Load(ctx context.Context) ([]project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.storage.Get(ctx, s.opts.PrimaryKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []project.Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading projects: %w", err)
	}

	report := Decode([]byte(raw), s.now())
	if report.Corrupt {
		s.logger.Warn("discarding corrupted project data", "key", s.opts.PrimaryKey, "reason", report.Reason)
		if err := s.storage.Remove(ctx, s.opts.PrimaryKey); err != nil {
			s.logger.Error("failed to remove corrupted project data", "key", s.opts.PrimaryKey, "error", err)
		}
		return []project.Project{}, nil
	}

	for _, dropped := range report.Dropped() {
		s.logger.Warn("dropping invalid project entry", "index", dropped.Index, "reason", dropped.Reason)
	}
	return report.Projects(), nil
}

// Inspect decodes the primary slot without modifying storage.
func (s *Store) Inspect(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.storage.Get(ctx, s.opts.PrimaryKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Report{Entries: []Entry{}}, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("reading projects: %w", err)
	}
	return Decode([]byte(raw), s.now()), nil
}

// Save replaces the stored collection. The previous primary contents are
// copied to the backup slot first. A collection over the size ceiling is
// rejected with ErrTooLarge before anything is written. If the primary
// write fails, the backup is restored and a *SaveError is returned.
func (s *Store) Save(ctx context.Context, projects []project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.encode(projects)
	if err != nil {
		return err
	}

	previous := s.backup(ctx)

	if err := s.storage.Set(ctx, s.opts.PrimaryKey, string(data)); err != nil {
		s.logger.Error("failed to save projects", "key", s.opts.PrimaryKey, "error", err)
		restored, rerr := s.restore(ctx, previous)
		if rerr != nil {
			s.logger.Error("failed to restore projects from backup", "key", s.opts.BackupKey, "error", rerr)
			return &SaveError{Err: err}
		}
		s.logger.Warn("restored projects from backup", "count", len(restored))
		return &SaveError{Err: err, Restored: restored, Recovered: true}
	}

	return nil
}

// Clear removes the primary slot. The backup slot is kept.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Remove(ctx, s.opts.PrimaryKey); err != nil {
		return fmt.Errorf("clearing projects: %w", err)
	}
	return nil
}

func (s *Store) now() time.Time {
	return s.opts.Now().UTC()
}

func (s *Store) encode(projects []project.Project) ([]byte, error) {
	normalized := make([]project.Project, len(projects))
	for i, p := range projects {
		if p.Expenses == nil {
			p.Expenses = []project.Expense{}
		}
		if p.ChangeOrders == nil {
			p.ChangeOrders = []project.ChangeOrder{}
		}
		normalized[i] = p
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encoding projects: %w", err)
	}
	if len(data) > s.opts.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), s.opts.MaxBytes)
	}

	var check []json.RawMessage
	if err := json.Unmarshal(data, &check); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if len(check) != len(normalized) {
		return nil, fmt.Errorf("%w: wrote %d entries, read %d", ErrEncoding, len(normalized), len(check))
	}
	return data, nil
}

// prior is the primary slot as observed before a save.
type prior struct {
	value string
	state priorState
}

type priorState int

const (
	priorMissing priorState = iota
	priorRead
	priorUnreadable
)

// backup copies the current primary contents to the backup slot. It is
// best-effort: failures are logged and do not block the save. It returns
// what it observed in the primary slot.
func (s *Store) backup(ctx context.Context) prior {
	previous, err := s.storage.Get(ctx, s.opts.PrimaryKey)
	if errors.Is(err, storage.ErrNotFound) {
		return prior{state: priorMissing}
	}
	if err != nil {
		s.logger.Warn("failed to read projects for backup", "key", s.opts.PrimaryKey, "error", err)
		return prior{state: priorUnreadable}
	}
	if err := s.storage.Set(ctx, s.opts.BackupKey, previous); err != nil {
		s.logger.Warn("failed to write projects backup", "key", s.opts.BackupKey, "error", err)
	}
	return prior{value: previous, state: priorRead}
}

// restore reloads the previous collection from the backup slot. Slot
// writes replace values whole, so the primary slot still holds what the
// backup was copied from.
func (s *Store) restore(ctx context.Context, previous prior) ([]project.Project, error) {
	switch previous.state {
	case priorMissing:
		// Nothing was stored before this save.
		return []project.Project{}, nil
	case priorUnreadable:
		return nil, errors.New("previous projects were unreadable, nothing to restore")
	}

	raw, err := s.storage.Get(ctx, s.opts.BackupKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errors.New("backup slot is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup: %w", err)
	}
	if raw != previous.value {
		return nil, errors.New("backup slot is stale")
	}

	report := Decode([]byte(raw), s.now())
	if report.Corrupt {
		return nil, fmt.Errorf("backup is corrupt: %s", report.Reason)
	}
	return report.Projects(), nil
}
