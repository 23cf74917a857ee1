//go:build integration
// +build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pgdoc

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entityservice/datastore"
	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
)

func TestPostgresRoundTrip(t *testing.T) {
	_ = godotenv.Load()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN is not set")
	}
	ctx := context.Background()

	adapter := New(dsn, "")
	require.NoError(t, adapter.Init(datastore.ServiceInfo{Name: "posts", FullName: "posts", Collection: "posts_it"}))
	require.NoError(t, adapter.Connect(ctx))
	defer adapter.Disconnect(ctx)

	for _, e := range []storagemodels.Entity{
		{"_id": "1", "category": "JS", "author": "B", "tags": []any{"web"}},
		{"_id": "2", "category": "JS", "author": "A"},
		{"_id": "3", "category": "Go"},
	} {
		_, err := adapter.Create(ctx, e)
		require.NoError(t, err)
	}

	q := storagemodels.NewQuery(
		storagemodels.Where("category", storagemodels.OpEqual, "JS"),
		storagemodels.WithOrderBy("author"),
	)
	rs, err := adapter.Find(ctx, q)
	require.NoError(t, err)
	ordered := rs.Ordered(q.OrderBy)
	require.Len(t, ordered, 2)
	assert.Equal(t, "2", ordered[0]["_id"])

	tagged, err := adapter.Find(ctx, storagemodels.NewQuery(storagemodels.Where("tags", storagemodels.OpArrayContains, "web")))
	require.NoError(t, err)
	assert.Len(t, tagged, 1)

	updated, err := adapter.Update(ctx, "3", storagemodels.Entity{"author": "C"})
	require.NoError(t, err)
	assert.Equal(t, "Go", updated["category"])
	assert.Equal(t, "C", updated["author"])

	_, err = adapter.Update(ctx, "404", storagemodels.Entity{"author": "C"})
	assert.True(t, errors.IsNotFound(err))

	byIDs, err := adapter.FindByIDs(ctx, []string{"1", "3", "404"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	for _, id := range []string{"1", "2", "3"} {
		deleted, err := adapter.Delete(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, deleted)
	}
}
