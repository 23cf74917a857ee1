//go:build integration
// +build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/suparena/entityservice/datastore"
	"github.com/suparena/entityservice/storagemodels"
)

func getPostsAdapter(t *testing.T) *Adapter {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, proceeding with environment variables")
	}

	awsAccessKey := os.Getenv("AWS_ACCESS_KEY")
	awsSecretKey := os.Getenv("AWS_SECRET_KEY")
	awsDDBTableName := os.Getenv("AWS_DDB_TABLE")
	if awsAccessKey == "" || awsDDBTableName == "" {
		t.Skip("AWS_ACCESS_KEY and AWS_DDB_TABLE are required")
	}

	adapter := New(awsAccessKey, awsSecretKey,
		WithRegion(os.Getenv("AWS_REGION")),
		WithEndpoint(os.Getenv("AWS_DDB_ENDPOINT")),
	)
	if err := adapter.Init(datastore.ServiceInfo{Name: "posts", FullName: "posts", Collection: awsDDBTableName}); err != nil {
		t.Fatal(err)
	}
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	return adapter
}

func TestDynamoDBRoundTrip(t *testing.T) {
	adapter := getPostsAdapter(t)
	ctx := context.Background()

	created, err := adapter.Create(ctx, storagemodels.Entity{
		"_id":      "integration-post",
		"category": "JS",
		"author":   "B",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("Created: %v", created)

	updated, err := adapter.Update(ctx, "integration-post", storagemodels.Entity{"author": "A"})
	if err != nil {
		t.Fatal(err)
	}
	if updated["author"] != "A" {
		t.Errorf("Expected author A, got %v", updated["author"])
	}

	found, err := adapter.Find(ctx, storagemodels.NewQuery(
		storagemodels.Where("category", storagemodels.OpEqual, "JS"),
	))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := found["integration-post"]; !ok {
		t.Error("Expected the created post in the result set")
	}

	deleted, err := adapter.Delete(ctx, "integration-post")
	if err != nil {
		t.Fatal(err)
	}
	if deleted == nil {
		t.Error("Expected the deleted snapshot")
	}

	t.Logf("Post deleted")
}
