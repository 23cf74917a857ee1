/*
Package cache provides result cachers with pattern based invalidation.

A service caches read results under keys prefixed with its full name and drops them
after every mutation:

	c := cache.NewMemory(30 * time.Second)
	_ = c.Set(ctx, "v2.posts.get:1", payload)
	_ = c.Clean(ctx, "v2.posts.*")

Memory keeps entries in process (go-cache); Redis shares them between nodes and cleans
with SCAN and DEL so large keyspaces are never blocked by KEYS.
*/
package cache
