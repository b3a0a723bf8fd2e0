// Package cache is a content-addressed key/value store with expiry, used to
// memoize generation calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

// Store holds opaque values until they expire. Implementations must treat an
// expired entry exactly like a missing one.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key is the SHA-256 hex digest of the parts joined with "|".
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg *config.CacheConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Dir)
	case "redis":
		return NewRedisStore(ctx, &cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. hit reports whether the value came from the store. There is no
// single-flight: concurrent misses each compute and the last write wins.
// Store errors are logged and never fail the call.
func GetOrCompute[T any](ctx context.Context, store Store, key string, ttl time.Duration, logger *zap.Logger, compute func(ctx context.Context) (T, error)) (value T, hit bool, err error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(raw, &value); err == nil {
			return value, true, nil
		}
		logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
	}

	value, err = compute(ctx)
	if err != nil {
		return value, false, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Cache encode failed", zap.String("key", key), zap.Error(err))
		return value, false, nil
	}
	if err := store.Set(ctx, key, encoded, ttl); err != nil {
		logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, false, nil
}
