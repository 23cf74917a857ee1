/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/suparena/entityservice/cache"
	"github.com/suparena/entityservice/datastore/mock"
	"github.com/suparena/entityservice/notify"
	"github.com/suparena/entityservice/storagemodels"
)

type failingNotifier struct{}

func (failingNotifier) Broadcast(context.Context, string, []byte) error {
	return stderrors.New("broker down")
}

func TestMutationsBroadcastAndCleanCache(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewLocal()
	c := cache.NewMemory(time.Minute)
	svc := newTestService(t, mock.New(), WithVersion("v2"), WithNotifier(bus), WithCacher(c))

	require.NoError(t, c.Set(ctx, `v2.posts.get:one:["1"]`, []byte(`{}`)))
	require.NoError(t, c.Set(ctx, `v2.users.get:one:["1"]`, []byte(`{}`)))

	_, err := svc.Create(ctx, storagemodels.Entity{"_id": "1"})
	require.NoError(t, err)

	_, found, _ := c.Get(ctx, `v2.posts.get:one:["1"]`)
	assert.False(t, found, "own entries are cleaned")
	_, found, _ = c.Get(ctx, `v2.users.get:one:["1"]`)
	assert.True(t, found, "other services keep their entries")

	_, err = svc.Update(ctx, "1", storagemodels.Entity{"a": 1})
	require.NoError(t, err)
	_, err = svc.Delete(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, 3, bus.Count(CacheCleanEvent("v2.posts")))
	assert.JSONEq(t, `{"service":"v2.posts"}`, string(bus.Events()[0].Payload))
}

func TestHooks(t *testing.T) {
	ctx := context.Background()
	var events []string
	record := func(kind string) Hook {
		return func(ctx context.Context, e storagemodels.Entity) error {
			id, _ := e.ID()
			events = append(events, kind+":"+id)
			return nil
		}
	}

	svc := newTestService(t, mock.New(), WithHooks(Hooks{
		Created: record("created"),
		Updated: record("updated"),
		Removed: record("removed"),
	}))

	_, err := svc.Create(ctx, storagemodels.Entity{"_id": "1"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "1", storagemodels.Entity{"a": 1})
	require.NoError(t, err)
	_, err = svc.Delete(ctx, "1")
	require.NoError(t, err)
	_, err = svc.Delete(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, []string{"created:1", "updated:1", "removed:1", "removed:"}, events)
}

func TestHookReceivesRequest(t *testing.T) {
	var got *Request
	svc := newTestService(t, mock.New(), WithHooks(Hooks{
		Created: func(ctx context.Context, _ storagemodels.Entity) error {
			got, _ = RequestFromContext(ctx)
			return nil
		},
	}))

	_, err := svc.Call(context.Background(), ActionCreate, Params{"doc": map[string]any{"title": "x"}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ActionCreate, got.Action)
	assert.Contains(t, got.Params, "doc")
}

func TestNotificationFailuresDoNotFailMutation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := newTestService(t, mock.New(),
		WithLogger(zap.New(core)),
		WithNotifier(failingNotifier{}),
		WithHooks(Hooks{
			Created: func(context.Context, storagemodels.Entity) error {
				return stderrors.New("hook exploded")
			},
		}),
	)

	created, err := svc.Create(context.Background(), storagemodels.Entity{"_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, "1", created["_id"])

	assert.Equal(t, 1, logs.FilterMessage("cache clean broadcast failed").Len())
	hookLogs := logs.FilterMessage("entity hook failed").All()
	require.Len(t, hookLogs, 1)
	assert.Equal(t, zapcore.ErrorLevel, hookLogs[0].Level)
}

func TestPeerCacheClean(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewLocal()
	c := cache.NewMemory(time.Minute)

	svc, err := New("posts", mock.New(), WithNotifier(bus), WithCacher(c))
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))
	assert.Equal(t, 1, bus.Subscribers(CacheCleanEvent("posts")))

	require.NoError(t, c.Set(ctx, `posts.get:one:["1"]`, []byte(`{}`)))
	require.NoError(t, bus.Broadcast(ctx, CacheCleanEvent("posts"), nil))

	_, found, _ := c.Get(ctx, `posts.get:one:["1"]`)
	assert.False(t, found)

	require.NoError(t, svc.Stop(ctx))
	assert.Eventually(t, func() bool {
		return bus.Subscribers(CacheCleanEvent("posts")) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestPeerCacheCleanRestart(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewLocal()
	c := cache.NewMemory(time.Minute)
	event := CacheCleanEvent("posts")

	svc, err := New("posts", mock.New(), WithNotifier(bus), WithCacher(c))
	require.NoError(t, err)

	t.Run("StartTwiceKeepsOneSubscription", func(t *testing.T) {
		require.NoError(t, svc.Start(ctx))
		require.NoError(t, svc.Start(ctx))
		assert.Eventually(t, func() bool { return bus.Subscribers(event) == 1 }, time.Second, 5*time.Millisecond)

		require.NoError(t, svc.Stop(ctx))
		assert.Eventually(t, func() bool { return bus.Subscribers(event) == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("CancelledStartDoesNotSubscribe", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		// the mock connects regardless of ctx, so Start succeeds after teardown began
		require.NoError(t, svc.Start(cancelled))
		assert.Equal(t, 0, bus.Subscribers(event))
		require.NoError(t, svc.Stop(ctx))
	})
}
