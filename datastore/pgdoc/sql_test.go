/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pgdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
)

const table = `"public"."posts"`

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		query    storagemodels.Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "empty query",
			query:    storagemodels.Query{},
			wantSQL:  `SELECT doc FROM "public"."posts" ORDER BY id ASC`,
			wantArgs: nil,
		},
		{
			name: "equality with order and limit",
			query: storagemodels.NewQuery(
				storagemodels.Where("category", storagemodels.OpEqual, "JS"),
				storagemodels.WithOrderBy("author"),
				storagemodels.WithLimit(10),
			),
			wantSQL: `SELECT doc FROM "public"."posts" WHERE (doc -> $1::text) = $2::jsonb` +
				` AND (doc -> $3::text) IS NOT NULL ORDER BY (doc -> $3::text) ASC, id ASC LIMIT $4`,
			wantArgs: []any{"category", `"JS"`, "author", 10},
		},
		{
			name:    "range",
			query:   storagemodels.NewQuery(storagemodels.Where("votes", storagemodels.OpGreaterOrEqual, 3)),
			wantSQL: `SELECT doc FROM "public"."posts" WHERE (jsonb_typeof((doc -> $1::text)) = jsonb_typeof($2::jsonb) AND (doc -> $1::text) >= $2::jsonb) ORDER BY id ASC`,
			wantArgs: []any{"votes", "3"},
		},
		{
			name:     "in",
			query:    storagemodels.NewQuery(storagemodels.ByIDs([]string{"1", "2"})),
			wantSQL:  `SELECT doc FROM "public"."posts" WHERE (doc -> $1::text) IN (SELECT jsonb_array_elements($2::jsonb)) ORDER BY id ASC`,
			wantArgs: []any{"_id", `["1","2"]`},
		},
		{
			name:     "array contains",
			query:    storagemodels.NewQuery(storagemodels.Where("tags", storagemodels.OpArrayContains, "go")),
			wantSQL:  `SELECT doc FROM "public"."posts" WHERE (jsonb_typeof((doc -> $1::text)) = 'array' AND (doc -> $1::text) @> jsonb_build_array($2::jsonb)) ORDER BY id ASC`,
			wantArgs: []any{"tags", `"go"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, args, err := buildSelect(table, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildSelectRejects(t *testing.T) {
	_, _, err := buildSelect(table, storagemodels.NewQuery(storagemodels.Where("title", "like", "x%")))
	assert.True(t, errors.IsValidationError(err))

	_, _, err = buildSelect(table, storagemodels.NewQuery(storagemodels.Where("_id", storagemodels.OpIn, "1")))
	assert.True(t, errors.IsValidationError(err))
}
