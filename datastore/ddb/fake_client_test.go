/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient is an in-memory Client. Scans ignore filter expressions and page by pageSize.
type fakeClient struct {
	mu          sync.Mutex
	keyAttrs    []string
	items       map[string]map[string]types.AttributeValue
	describeErr error
	scanErrs    []error
	pageSize    int
	scans       []*sdk.ScanInput
	updates     []*sdk.UpdateItemInput
}

func newFakeClient(keyAttrs ...string) *fakeClient {
	if len(keyAttrs) == 0 {
		keyAttrs = []string{"_id"}
	}
	return &fakeClient{
		keyAttrs: keyAttrs,
		items:    make(map[string]map[string]types.AttributeValue),
		pageSize: 2,
	}
}

func (f *fakeClient) keyOf(item map[string]types.AttributeValue) string {
	parts := make([]string, 0, len(f.keyAttrs))
	for _, attr := range f.keyAttrs {
		if s, ok := item[attr].(*types.AttributeValueMemberS); ok {
			parts = append(parts, s.Value)
		}
	}
	return strings.Join(parts, "|")
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *fakeClient) DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &sdk.DescribeTableOutput{Table: &types.TableDescription{TableName: params.TableName}}, nil
}

func (f *fakeClient) GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[f.keyOf(params.Key)]
	if !ok {
		return &sdk.GetItemOutput{}, nil
	}
	return &sdk.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeClient) PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[f.keyOf(params.Item)] = copyItem(params.Item)
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, params)

	key := f.keyOf(params.Key)
	item, ok := f.items[key]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	updated := copyItem(item)
	for placeholder, field := range params.ExpressionAttributeNames {
		if !strings.HasPrefix(placeholder, "#f") {
			continue
		}
		updated[field] = params.ExpressionAttributeValues[":v"+strings.TrimPrefix(placeholder, "#f")]
	}
	f.items[key] = updated
	return &sdk.UpdateItemOutput{Attributes: copyItem(updated)}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.keyOf(params.Key)
	item, ok := f.items[key]
	if !ok {
		return &sdk.DeleteItemOutput{}, nil
	}
	delete(f.items, key)
	return &sdk.DeleteItemOutput{Attributes: item}, nil
}

func (f *fakeClient) Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := *params
	f.scans = append(f.scans, &snapshot)

	if len(f.scanErrs) > 0 {
		err := f.scanErrs[0]
		f.scanErrs = f.scanErrs[1:]
		return nil, err
	}

	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if params.ExclusiveStartKey != nil {
		last := f.keyOf(params.ExclusiveStartKey)
		start = sort.SearchStrings(keys, last) + 1
	}
	end := start + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}

	out := &sdk.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, copyItem(f.items[k]))
	}
	if end < len(keys) {
		out.LastEvaluatedKey = copyItem(f.items[keys[end-1]])
	}
	return out, nil
}
