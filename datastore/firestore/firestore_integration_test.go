//go:build integration
// +build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package firestore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entityservice/storagemodels"
)

// Runs against the emulator: FIRESTORE_EMULATOR_HOST=localhost:8080
func TestFirestoreEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set")
	}
	ctx := context.Background()

	adapter := New("emulator-key", "demo-entityservice")
	require.NoError(t, adapter.Init(postsInfo))
	require.NoError(t, adapter.Connect(ctx))
	defer adapter.Disconnect(ctx)

	for _, e := range []storagemodels.Entity{
		{"_id": "1", "category": "JS", "author": "B"},
		{"_id": "2", "category": "JS", "author": "A"},
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

	updated, err := adapter.Update(ctx, "1", storagemodels.Entity{"votes": 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated["votes"])

	byIDs, err := adapter.FindByIDs(ctx, []string{"1", "404"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)

	for _, id := range []string{"1", "2"} {
		deleted, err := adapter.Delete(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, deleted)
	}
	gone, err := adapter.Delete(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
