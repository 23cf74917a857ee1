/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	"path"
	"strings"
)

// Cacher stores serialized results under string keys.
type Cacher interface {
	// Get returns the value stored under key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Clean removes every key matching a glob pattern such as "v2.posts.*".
	Clean(ctx context.Context, pattern string) error
}

// Match reports whether key matches a glob pattern. A pattern whose only
// metacharacter is a trailing "*" matches by prefix, so keys may contain "/".
func Match(pattern, key string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok && !strings.ContainsAny(prefix, `*?[\`) {
		return strings.HasPrefix(key, prefix)
	}
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}
