// Package redisstore keeps storage slots in Redis.
package redisstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rpggio/siteledger/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	PoolSize  int
	EnableTLS bool
	// Prefix is prepended to every slot key.
	Prefix string
}

// Storage implements storage.Storage with Redis strings.
type Storage struct {
	rdb    *redis.Client
	prefix string
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, opts Options) (*Storage, error) {
	ropts := &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	}
	if opts.EnableTLS {
		ropts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return New(rdb, opts.Prefix), nil
}

// New wraps an existing client.
func New(rdb *redis.Client, prefix string) *Storage {
	return &Storage{rdb: rdb, prefix: prefix}
}

func (s *Storage) key(key string) string {
	return s.prefix + key
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	value, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get slot: %w", err)
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set slot: %w", err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove slot: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Storage) Close() error {
	return s.rdb.Close()
}
