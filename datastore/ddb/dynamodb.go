/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/entityservice/datastore"
	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/registry"
	"github.com/suparena/entityservice/storagemodels"
)

const (
	// DriverName is the registry name of the DynamoDB adapter
	DriverName = "dynamodb"

	// DefaultRegion is used when no region is configured
	DefaultRegion = "us-east-1"

	// entityTypeAttr marks items of a collection sharing a single table with others
	entityTypeAttr = "EntityType"
)

var (
	// ErrMissingAccessKey is returned by Init when the adapter was built without an access key
	ErrMissingAccessKey = errors.NewMissingCredentialError(DriverName, "accessKey", 1)
	// ErrMissingSecretKey is returned by Init when the adapter was built without a secret key
	ErrMissingSecretKey = errors.NewMissingCredentialError(DriverName, "secretKey", 2)
)

func init() {
	registry.Register(DriverName, func(c registry.Credentials) (datastore.Adapter, error) {
		return New(c.Primary, c.Secondary,
			WithRegion(c.Option("region", DefaultRegion)),
			WithEndpoint(c.Option("endpoint", "")),
		), nil
	})
}

// Client is the subset of the DynamoDB API the adapter uses.
type Client interface {
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

// Adapter implements datastore.Adapter on a DynamoDB table named after the collection.
//
// Without an index map the table's partition key is the "_id" attribute. With an index map
// (see WithIndexMap and registry.RegisterIndexMap) keys are expanded from macros such as
// "POST#{_id}" and items are tagged with an EntityType attribute so several collections can
// share one table.
type Adapter struct {
	accessKey string
	secretKey string
	region    string
	endpoint  string
	indexMap  map[string]string

	mu        sync.RWMutex
	client    Client
	injected  bool
	tableName string
	logger    *zap.Logger
	retry     retryOptions
}

// Option configures an Adapter
type Option func(*Adapter)

// WithRegion sets the AWS region
func WithRegion(region string) Option {
	return func(a *Adapter) {
		a.region = region
	}
}

// WithEndpoint overrides the service endpoint, e.g. for DynamoDB Local
func WithEndpoint(endpoint string) Option {
	return func(a *Adapter) {
		a.endpoint = endpoint
	}
}

// WithIndexMap sets the key macros of the table
func WithIndexMap(indexMap map[string]string) Option {
	return func(a *Adapter) {
		a.indexMap = indexMap
	}
}

// WithClient injects a ready client; Connect then only verifies the table.
func WithClient(client Client) Option {
	return func(a *Adapter) {
		a.client = client
		a.injected = client != nil
	}
}

// WithMaxRetries sets how often a throttled scan page is retried
func WithMaxRetries(n int) Option {
	return func(a *Adapter) {
		a.retry.maxRetries = n
	}
}

// New constructs a DynamoDB adapter from an access key and a secret key.
// Missing credentials are reported by Init.
func New(accessKey, secretKey string, opts ...Option) *Adapter {
	a := &Adapter{
		accessKey: accessKey,
		secretKey: secretKey,
		region:    DefaultRegion,
		logger:    zap.NewNop(),
		retry:     defaultRetryOptions(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (d *Adapter) Init(info datastore.ServiceInfo) error {
	if err := datastore.ValidateServiceInfo(info); err != nil {
		return err
	}
	if !d.injected {
		if d.accessKey == "" {
			return ErrMissingAccessKey
		}
		if d.secretKey == "" {
			return ErrMissingSecretKey
		}
	}
	if d.indexMap == nil {
		if m, ok := registry.GetIndexMap(info.Collection); ok {
			d.indexMap = m
		}
	}
	if d.indexMap != nil {
		if _, err := buildKeyFromExpanded(expandStringKey(d.indexMap, "probe")); err != nil {
			return errors.NewConfigurationError("indexMap", err.Error())
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.tableName = info.Collection
	d.logger = info.LoggerOrNop().With(zap.String("driver", DriverName), zap.String("table", info.Collection))
	return nil
}

// newClient initializes a DynamoDB client using static AWS credentials.
func (d *Adapter) newClient(ctx context.Context) (*sdk.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(d.region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(d.accessKey, d.secretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if d.endpoint != "" {
			o.BaseEndpoint = aws.String(d.endpoint)
		}
	}), nil
}

func (d *Adapter) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	client := d.client
	if !d.injected {
		c, err := d.newClient(ctx)
		if err != nil {
			return errors.NewStoreError("connect", err)
		}
		client = c
	}

	if _, err := client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: &d.tableName}); err != nil {
		return errors.NewStoreError("connect", fmt.Errorf("describe table %q: %w", d.tableName, err))
	}

	d.client = client
	d.logger.Info("DynamoDB client initialized", zap.String("region", d.region))
	return nil
}

func (d *Adapter) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// the SDK client holds no connection to close
	if !d.injected {
		d.client = nil
	}
	return nil
}

func (d *Adapter) handle(op string) (Client, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.client == nil {
		return nil, errors.NewStoreError(op, errors.ErrNotConnected)
	}
	return d.client, nil
}

// FindByID retrieves a single item. It returns nil, nil if no item is found.
func (d *Adapter) FindByID(ctx context.Context, id string) (storagemodels.Entity, error) {
	client, err := d.handle("findById")
	if err != nil {
		return nil, err
	}
	key, err := d.keyFor(id)
	if err != nil {
		return nil, errors.NewStoreError("findById", err)
	}

	out, err := client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      &d.tableName,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.NewStoreError("findById", fmt.Errorf("GetItem error: %w", err))
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return d.toEntity(out.Item)
}

// Create stores the entity, populating partition/sort keys from the index map when one is set.
func (d *Adapter) Create(ctx context.Context, entity storagemodels.Entity) (storagemodels.Entity, error) {
	client, err := d.handle("create")
	if err != nil {
		return nil, err
	}
	id, ok := entity.ID()
	if !ok {
		return nil, errors.NewStoreError("create", errors.NewValidationError(storagemodels.IDKey, "entity has no identity"))
	}

	av, err := attributevalue.MarshalMap(map[string]any(entity))
	if err != nil {
		return nil, errors.NewStoreError("create", fmt.Errorf("failed to marshal entity: %w", err))
	}
	av[storagemodels.IDKey] = &types.AttributeValueMemberS{Value: id}

	if d.indexMap != nil {
		expanded, err := expandMacros(d.indexMap, entity)
		if err != nil {
			return nil, errors.NewStoreError("create", err)
		}
		for k, v := range expanded {
			av[k] = &types.AttributeValueMemberS{Value: v}
		}
		av[entityTypeAttr] = &types.AttributeValueMemberS{Value: d.tableName}
	}

	if _, err := client.PutItem(ctx, &sdk.PutItemInput{
		TableName: &d.tableName,
		Item:      av,
	}); err != nil {
		return nil, errors.NewStoreError("create", fmt.Errorf("PutItem failed: %w", err))
	}

	return d.FindByID(ctx, id)
}

// Update merges values into the stored item; the item must exist.
func (d *Adapter) Update(ctx context.Context, id string, values storagemodels.Entity) (storagemodels.Entity, error) {
	client, err := d.handle("update")
	if err != nil {
		return nil, err
	}
	key, err := d.keyFor(id)
	if err != nil {
		return nil, errors.NewStoreError("update", err)
	}

	updates := make(map[string]any, len(values))
	for field, v := range values {
		if d.isKeyAttribute(field) {
			continue
		}
		updates[field] = v
	}
	if len(updates) == 0 {
		current, err := d.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, errors.NewStoreError("update", errors.NewNotFoundError(d.tableName, id))
		}
		return current, nil
	}

	updateExpr, exprAttrNames, exprAttrValues, err := buildUpdateExpression(updates)
	if err != nil {
		return nil, errors.NewStoreError("update", fmt.Errorf("failed to build update expression: %w", err))
	}
	condition, exprAttrNames := d.existsCondition(key, exprAttrNames)

	out, err := client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 &d.tableName,
		Key:                       key,
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  exprAttrNames,
		ExpressionAttributeValues: exprAttrValues,
		ConditionExpression:       &condition,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			return nil, errors.NewStoreError("update", errors.NewNotFoundError(d.tableName, id))
		}
		return nil, errors.NewStoreError("update", fmt.Errorf("UpdateItem failed: %w", err))
	}
	return d.toEntity(out.Attributes)
}

// Delete removes the item and returns its previous state, or nil, nil if nothing existed.
func (d *Adapter) Delete(ctx context.Context, id string) (storagemodels.Entity, error) {
	client, err := d.handle("delete")
	if err != nil {
		return nil, err
	}
	key, err := d.keyFor(id)
	if err != nil {
		return nil, errors.NewStoreError("delete", err)
	}

	out, err := client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:    &d.tableName,
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, errors.NewStoreError("delete", fmt.Errorf("failed to delete item in DynamoDB: %w", err))
	}
	if len(out.Attributes) == 0 {
		return nil, nil
	}
	return d.toEntity(out.Attributes)
}

// keyFor builds the primary key of the item with the given identity.
func (d *Adapter) keyFor(id string) (map[string]types.AttributeValue, error) {
	if d.indexMap == nil {
		return map[string]types.AttributeValue{
			storagemodels.IDKey: &types.AttributeValueMemberS{Value: id},
		}, nil
	}
	return buildKeyFromExpanded(expandStringKey(d.indexMap, id))
}

// existsCondition guards an update against creating a new item.
func (d *Adapter) existsCondition(key map[string]types.AttributeValue, names map[string]string) (string, map[string]string) {
	attrs := make([]string, 0, len(key))
	for k := range key {
		attrs = append(attrs, k)
	}
	sort.Strings(attrs)

	clauses := make([]string, 0, len(attrs))
	for i, attr := range attrs {
		placeholder := fmt.Sprintf("#k%d", i)
		names[placeholder] = attr
		clauses = append(clauses, fmt.Sprintf("attribute_exists(%s)", placeholder))
	}
	return strings.Join(clauses, " AND "), names
}

func (d *Adapter) isKeyAttribute(field string) bool {
	if field == storagemodels.IDKey || field == entityTypeAttr {
		return true
	}
	_, ok := d.indexMap[field]
	return ok
}

// toEntity converts a raw item to an Entity, dropping the attributes the adapter manages.
func (d *Adapter) toEntity(item map[string]types.AttributeValue) (storagemodels.Entity, error) {
	var generic map[string]any
	if err := attributevalue.UnmarshalMap(item, &generic); err != nil {
		return nil, errors.NewStoreError("unmarshal", fmt.Errorf("failed to unmarshal item: %w", err))
	}
	for k := range d.indexMap {
		delete(generic, k)
	}
	if d.indexMap != nil {
		delete(generic, entityTypeAttr)
	}
	return storagemodels.Entity(generic), nil
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills the index map templates with attribute values of the entity.
func expandMacros(indexMap map[string]string, entity storagemodels.Entity) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(map[string]any(entity))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key input: %w", err)
	}

	res := make(map[string]string, len(indexMap))

	for fieldName, template := range indexMap {
		expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			key := strings.Trim(macro, "{}")

			val, ok := av[key]
			if !ok {
				return ""
			}

			switch tv := val.(type) {
			case *types.AttributeValueMemberS:
				return tv.Value
			case *types.AttributeValueMemberN:
				return tv.Value
			case *types.AttributeValueMemberBOOL:
				return fmt.Sprintf("%v", tv.Value)
			default:
				// binary, sets, lists and maps have no key rendering
				return ""
			}
		})
		res[fieldName] = expanded
	}

	return res, nil
}

// expandStringKey replaces macro patterns in the indexMap values with the provided key.
func expandStringKey(indexMap map[string]string, key string) map[string]string {
	expanded := make(map[string]string, len(indexMap))
	for field, template := range indexMap {
		expanded[field] = macroPattern.ReplaceAllString(template, key)
	}
	return expanded
}

// buildKeyFromExpanded builds a DynamoDB key from the expanded index map.
// It requires non-empty values for "PK" and "SK".
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]

	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, fmt.Errorf("expanded index map missing valid PK or SK")
	}

	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// buildUpdateExpression transforms a map of field->value into:
//   - an "update expression" (e.g., "SET #f0 = :v0, #f1 = :v1")
//   - a corresponding map of expression attribute names
//   - a corresponding map of expression attribute values
//
// Fields are emitted in sorted order so the expression is stable.
func buildUpdateExpression(updates map[string]any) (string,
	map[string]string,
	map[string]types.AttributeValue,
	error) {

	if len(updates) == 0 {
		return "", nil, nil, stderrors.New("no updates provided")
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	setClauses := make([]string, 0, len(updates))
	exprAttrNames := make(map[string]string, len(updates))
	exprAttrValues := make(map[string]types.AttributeValue, len(updates))

	for i, field := range fields {
		placeholderName := fmt.Sprintf("#f%d", i)
		placeholderValue := fmt.Sprintf(":v%d", i)

		av, err := attributevalue.Marshal(updates[field])
		if err != nil {
			return "", nil, nil, fmt.Errorf("unhandled update value type for field '%s': %w", field, err)
		}

		setClauses = append(setClauses, fmt.Sprintf("%s = %s", placeholderName, placeholderValue))
		exprAttrNames[placeholderName] = field
		exprAttrValues[placeholderValue] = av
	}

	return "SET " + strings.Join(setClauses, ", "), exprAttrNames, exprAttrValues, nil
}
