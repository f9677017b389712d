// Package store persists generated summaries and brief history.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"newsbrief/internal/core"
)

// Cache backends.
const (
	BackendNone   = "none"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// SummaryCache stores summaries keyed by SummaryKey.
type SummaryCache interface {
	// Get returns the cached summary and whether it was found.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, summary string) error
	Close() error
}

// Config selects a cache backend.
type Config struct {
	Backend   string
	Directory string // SQLite data directory
	RedisURL  string
	TTL       time.Duration // Zero keeps entries forever
}

// Open returns the configured cache, or nil when caching is disabled.
func Open(ctx context.Context, cfg Config) (SummaryCache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendNone:
		return nil, nil
	case BackendSQLite:
		s, err := NewStore(cfg.Directory, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// SummaryKey derives the cache key for an article summarized by model at length.
func SummaryKey(articleID, model string, length core.SummaryLength) string {
	sum := sha256.Sum256([]byte(articleID + "\x00" + model + "\x00" + string(length)))
	return hex.EncodeToString(sum[:])
}
