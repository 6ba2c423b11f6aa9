package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryEntries bounds the number of values an in-process cache holds.
const MemoryEntries = 10000

// Memory is an in-process Cache backed by an expiring LRU. Values are kept
// JSON-encoded so Get behaves the same as the redis backend.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory returns an empty in-process cache.
func NewMemory(ttl time.Duration) *Memory {
	return newMemory(ttl, MemoryEntries)
}

func newMemory(ttl time.Duration, size int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) error {
	raw, ok := m.lru.Get(key)
	if !ok {
		return ErrMiss
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

func (m *Memory) Set(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.lru.Add(key, raw)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, keyPrefix) {
			m.lru.Remove(k)
		}
	}
	return nil
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
