// Package backend opens the configured slot storage driver and builds the
// persistent store and ledger on top of it.
package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/siteledger/internal/config"
	"github.com/rpggio/siteledger/internal/ledger"
	"github.com/rpggio/siteledger/internal/redisstore"
	"github.com/rpggio/siteledger/internal/sqlite"
	"github.com/rpggio/siteledger/internal/storage"
	"github.com/rpggio/siteledger/internal/store"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStorage opens the slot storage selected by cfg.Driver. The returned
// closer releases the driver's connection.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return storage.NewMemory(), nopCloser{}, nil
	case config.DriverFile:
		s, err := storage.NewFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case config.DriverSQLite:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewSlotStorage(db), db, nil
	case config.DriverRedis:
		s, err := redisstore.Dial(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// OpenStore opens the storage driver and wraps it in a persistent store.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*store.Store, io.Closer, error) {
	s, closer, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store.New(s, logger, store.Options{MaxBytes: cfg.MaxBytes}), closer, nil
}

// OpenLedger opens the store and loads the ledger from it.
func OpenLedger(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger, opts ...ledger.Option) (*ledger.Service, io.Closer, error) {
	st, closer, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	svc := ledger.NewService(st, logger, opts...)
	if err := svc.Load(ctx); err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}
	return svc, closer, nil
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
