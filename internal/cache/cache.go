// Package cache holds last-known-good values used when storage reads fail.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores JSON-encodable values under string keys with a fixed TTL.
type Cache interface {
	// Get decodes the value stored at key into dst. Returns ErrMiss when
	// nothing is stored.
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
	// Clear drops every entry written by this cache.
	Clear(ctx context.Context) error
	Close() error
}

// DefaultTTL is used when a backend is constructed with a zero TTL.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "lingua:"

// Key builds the cache key for a per-user value of the given kind.
func Key(kind, userID string) string {
	return keyPrefix + kind + ":" + userID
}

// UserKeys returns the keys of every per-user value kind.
func UserKeys(userID string) []string {
	kinds := []string{KindTrainingXP, KindLessonXP, KindMissionXP, KindStreak, KindCounters}
	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = Key(k, userID)
	}
	return keys
}

// Value kinds.
const (
	KindTrainingXP = "xp:training"
	KindLessonXP   = "xp:lesson"
	KindMissionXP  = "xp:mission"
	KindStreak     = "streak"
	KindCounters   = "counters"
)
