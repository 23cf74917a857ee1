/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultMemoryExpiration = 10 * time.Second
	defaultCleanupInterval  = 20 * time.Second
)

// Memory is an in-process Cacher backed by go-cache.
type Memory struct {
	items *gocache.Cache
}

// NewMemory creates an in-process cacher. A non-positive expiration uses DefaultMemoryExpiration.
func NewMemory(expiration time.Duration) *Memory {
	if expiration <= 0 {
		expiration = DefaultMemoryExpiration
	}
	return &Memory{items: gocache.New(expiration, defaultCleanupInterval)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.items.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.items.SetDefault(key, value)
	return nil
}

func (m *Memory) Clean(_ context.Context, pattern string) error {
	for key := range m.items.Items() {
		if Match(pattern, key) {
			m.items.Delete(key)
		}
	}
	return nil
}

// Len returns the number of unexpired entries.
func (m *Memory) Len() int {
	return m.items.ItemCount()
}
