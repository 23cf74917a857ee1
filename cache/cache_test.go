/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"v2.posts.*", "v2.posts.get:1", true},
		{"v2.posts.*", "v2.posts.get:a/b", true},
		{"v2.posts.*", "v2.users.get:1", false},
		{"posts.*", "v2.posts.get:1", false},
		{"posts.get:?", "posts.get:1", true},
		{"posts.get:1", "posts.get:1", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.key))
		})
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	require.NoError(t, c.Set(ctx, "posts.get:1", []byte(`{"_id":"1"}`)))
	require.NoError(t, c.Set(ctx, "posts.get:2", []byte(`{"_id":"2"}`)))
	require.NoError(t, c.Set(ctx, "users.get:1", []byte(`{"_id":"1"}`)))

	v, found, err := c.Get(ctx, "posts.get:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"_id":"1"}`, string(v))

	require.NoError(t, c.Clean(ctx, "posts.*"))
	assert.Equal(t, 1, c.Len())

	_, found, err = c.Get(ctx, "posts.get:2")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, _ = c.Get(ctx, "users.get:1")
	assert.True(t, found)
}

func TestMemoryExpiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(20 * time.Millisecond)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	time.Sleep(50 * time.Millisecond)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
