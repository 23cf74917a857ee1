/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entityservice/datastore"
	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
)

func connectedAdapter(t *testing.T, client *fakeClient, opts ...Option) *Adapter {
	t.Helper()
	adapter := New("", "", append([]Option{WithClient(client)}, opts...)...)
	require.NoError(t, adapter.Init(datastore.ServiceInfo{Name: "posts", FullName: "posts", Collection: "posts"}))
	require.NoError(t, adapter.Connect(context.Background()))
	return adapter
}

func TestInitCredentials(t *testing.T) {
	info := datastore.ServiceInfo{Name: "posts", Collection: "posts"}

	t.Run("MissingAccessKey", func(t *testing.T) {
		err := New("", "secret").Init(info)
		assert.True(t, stderrors.Is(err, ErrMissingAccessKey))
		assert.True(t, errors.IsMissingCredential(err))
	})

	t.Run("MissingSecretKey", func(t *testing.T) {
		err := New("key", "").Init(info)
		assert.True(t, stderrors.Is(err, ErrMissingSecretKey))
		assert.False(t, stderrors.Is(err, ErrMissingAccessKey))
	})

	t.Run("MissingCollection", func(t *testing.T) {
		err := New("key", "secret").Init(datastore.ServiceInfo{Name: "posts"})
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("InvalidIndexMap", func(t *testing.T) {
		err := New("key", "secret", WithIndexMap(map[string]string{"PK": "POST#{_id}"})).Init(info)
		assert.True(t, errors.IsConfiguration(err))
	})
}

func TestConnect(t *testing.T) {
	client := newFakeClient()
	client.describeErr = stderrors.New("ResourceNotFoundException")

	adapter := New("", "", WithClient(client))
	require.NoError(t, adapter.Init(datastore.ServiceInfo{Name: "posts", Collection: "posts"}))

	err := adapter.Connect(context.Background())
	assert.True(t, errors.IsStoreError(err))

	_, err = New("k", "s").FindByID(context.Background(), "1")
	assert.True(t, stderrors.Is(err, errors.ErrNotConnected))
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	adapter := connectedAdapter(t, client)

	created, err := adapter.Create(ctx, storagemodels.Entity{"_id": "1", "category": "JS", "author": "B"})
	require.NoError(t, err)
	assert.Equal(t, "B", created["author"])

	got, err := adapter.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, storagemodels.Entity{"_id": "1", "category": "JS", "author": "B"}, got)

	updated, err := adapter.Update(ctx, "1", storagemodels.Entity{"_id": "ignored", "votes": 3})
	require.NoError(t, err)
	assert.Equal(t, "1", updated["_id"])
	assert.Equal(t, "B", updated["author"])
	assert.EqualValues(t, 3, updated["votes"])

	require.Len(t, client.updates, 1)
	assert.Equal(t, "SET #f0 = :v0", *client.updates[0].UpdateExpression)
	assert.Equal(t, "attribute_exists(#k0)", *client.updates[0].ConditionExpression)

	deleted, err := adapter.Delete(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "B", deleted["author"])

	absent, err := adapter.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, absent)

	none, err := adapter.Delete(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdateMissing(t *testing.T) {
	adapter := connectedAdapter(t, newFakeClient())

	_, err := adapter.Update(context.Background(), "nope", storagemodels.Entity{"a": 1})
	assert.True(t, errors.IsStoreError(err))
	assert.True(t, errors.IsNotFound(err))

	_, err = adapter.Update(context.Background(), "nope", storagemodels.Entity{})
	assert.True(t, errors.IsNotFound(err))
}

func TestFindPaginatesAndOrders(t *testing.T) {
	ctx := context.Background()
	adapter := connectedAdapter(t, newFakeClient())

	for _, e := range []storagemodels.Entity{
		{"_id": "1", "category": "JS", "author": "B"},
		{"_id": "2", "category": "JS", "author": "A"},
		{"_id": "3", "category": "Go", "author": "C"},
		{"_id": "4", "category": "JS", "author": "D"},
		{"_id": "5", "category": "JS", "author": "E"},
	} {
		_, err := adapter.Create(ctx, e)
		require.NoError(t, err)
	}

	all, err := adapter.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	q := storagemodels.NewQuery(
		storagemodels.Where("category", storagemodels.OpEqual, "JS"),
		storagemodels.WithOrderBy("author"),
		storagemodels.WithLimit(2),
	)
	rs, err := adapter.Find(ctx, q)
	require.NoError(t, err)
	ordered := rs.Ordered(q.OrderBy)
	require.Len(t, ordered, 2)
	assert.Equal(t, "2", ordered[0]["_id"])
	assert.Equal(t, "1", ordered[1]["_id"])

	byIDs, err := adapter.FindByIDs(ctx, []string{"1", "3", "404"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)
}

func TestFindRetriesThrottledScan(t *testing.T) {
	client := newFakeClient()
	adapter := connectedAdapter(t, client, WithMaxRetries(2))
	client.scanErrs = []error{&types.ProvisionedThroughputExceededException{}}

	_, err := adapter.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, client.scans, 2)

	client.scanErrs = []error{stderrors.New("AccessDenied")}
	_, err = adapter.List(context.Background())
	assert.True(t, errors.IsStoreError(err))
}

func TestIndexMapKeys(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient("PK", "SK")
	adapter := connectedAdapter(t, client, WithIndexMap(map[string]string{
		"PK": "POST#{_id}",
		"SK": "POST#{_id}",
	}))

	_, err := adapter.Create(ctx, storagemodels.Entity{"_id": "7", "title": "hello"})
	require.NoError(t, err)

	raw, ok := client.items["POST#7|POST#7"]
	require.True(t, ok, "item should be stored under its expanded key")
	assert.Equal(t, &types.AttributeValueMemberS{Value: "posts"}, raw[entityTypeAttr])

	got, err := adapter.FindByID(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, storagemodels.Entity{"_id": "7", "title": "hello"}, got)

	_, err = adapter.Find(ctx, storagemodels.Query{})
	require.NoError(t, err)
	last := client.scans[len(client.scans)-1]
	require.NotNil(t, last.FilterExpression)
	assert.Equal(t, "#c0 = :c0_0", *last.FilterExpression)
	assert.Equal(t, entityTypeAttr, last.ExpressionAttributeNames["#c0"])
}

func TestBuildFilterExpression(t *testing.T) {
	tests := []struct {
		name       string
		conditions []storagemodels.Condition
		want       string
		wantErr    bool
	}{
		{
			name: "comparisons",
			conditions: []storagemodels.Condition{
				{Field: "category", Operator: storagemodels.OpEqual, Value: "JS"},
				{Field: "votes", Operator: storagemodels.OpGreaterOrEqual, Value: 3},
			},
			want: "#c0 = :c0_0 AND #c1 >= :c1_0",
		},
		{
			name: "in",
			conditions: []storagemodels.Condition{
				{Field: "_id", Operator: storagemodels.OpIn, Value: []any{"1", "2"}},
			},
			want: "#c0 IN (:c0_0, :c0_1)",
		},
		{
			name: "not in",
			conditions: []storagemodels.Condition{
				{Field: "author", Operator: storagemodels.OpNotIn, Value: []string{"A"}},
			},
			want: "(attribute_exists(#c0) AND NOT (#c0 IN (:c0_0)))",
		},
		{
			name: "array contains any",
			conditions: []storagemodels.Condition{
				{Field: "tags", Operator: storagemodels.OpArrayContainsAny, Value: []any{"a", "b"}},
			},
			want: "(contains(#c0, :c0_0) OR contains(#c0, :c0_1))",
		},
		{
			name: "empty in list",
			conditions: []storagemodels.Condition{
				{Field: "_id", Operator: storagemodels.OpIn, Value: []any{}},
			},
			want: "",
		},
		{
			name: "unsupported operator",
			conditions: []storagemodels.Condition{
				{Field: "title", Operator: "like", Value: "x%"},
			},
			wantErr: true,
		},
		{
			name: "in without list",
			conditions: []storagemodels.Condition{
				{Field: "_id", Operator: storagemodels.OpIn, Value: "1"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, _, _, err := buildFilterExpression(tt.conditions)
			if tt.wantErr {
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr)
		})
	}
}

func TestBuildUpdateExpression(t *testing.T) {
	expr, names, values, err := buildUpdateExpression(map[string]any{
		"title": "x",
		"tags":  []any{"a"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1", expr)
	assert.Equal(t, "tags", names["#f0"])
	assert.Equal(t, "title", names["#f1"])
	assert.IsType(t, &types.AttributeValueMemberL{}, values[":v0"])

	_, _, _, err = buildUpdateExpression(nil)
	assert.Error(t, err)
}

func TestExpandMacros(t *testing.T) {
	expanded, err := expandMacros(map[string]string{
		"PK":     "USER#{_id}",
		"GSI1PK": "EMAIL#{email}",
		"SK":     "PROFILE",
	}, storagemodels.Entity{"_id": "123", "email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "USER#123", expanded["PK"])
	assert.Equal(t, "EMAIL#a@b.c", expanded["GSI1PK"])
	assert.Equal(t, "PROFILE", expanded["SK"])

	key, err := buildKeyFromExpanded(expandStringKey(map[string]string{"PK": "U#{id}", "SK": "U#{id}"}, "9"))
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "U#9"}, key["PK"])
}
