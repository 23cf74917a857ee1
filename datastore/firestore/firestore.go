/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package firestore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	gcfs "cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/suparena/entityservice/datastore"
	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/registry"
	"github.com/suparena/entityservice/storagemodels"
)

const (
	// DriverName is the registry name of the Firestore adapter
	DriverName = "firestore"

	// MaxInValues is the Firestore limit on the values of an in, not-in or array-contains-any filter.
	MaxInValues = 30
)

var (
	// ErrMissingAPIKey is returned by Init when the adapter was built without an API key
	ErrMissingAPIKey = errors.NewMissingCredentialError(DriverName, "apiKey", 1)
	// ErrMissingProjectID is returned by Init when the adapter was built without a project id
	ErrMissingProjectID = errors.NewMissingCredentialError(DriverName, "projectID", 2)
)

func init() {
	registry.Register(DriverName, func(c registry.Credentials) (datastore.Adapter, error) {
		var opts []option.ClientOption
		if endpoint := c.Option("endpoint", ""); endpoint != "" {
			opts = append(opts, option.WithEndpoint(endpoint))
		}
		return New(c.Primary, c.Secondary, opts...), nil
	})
}

// Adapter implements datastore.Adapter on a Firestore collection. Document ids are entity
// identities, and the identity is also stored in the "_id" field so it can be filtered on.
type Adapter struct {
	apiKey    string
	projectID string
	opts      []option.ClientOption

	mu         sync.RWMutex
	client     *gcfs.Client
	collection string
	logger     *zap.Logger
}

// New constructs a Firestore adapter from an API key and a project id. Extra client
// options, such as an emulator endpoint, are passed to the client at Connect.
func New(apiKey, projectID string, opts ...option.ClientOption) *Adapter {
	return &Adapter{
		apiKey:    apiKey,
		projectID: projectID,
		opts:      opts,
		logger:    zap.NewNop(),
	}
}

func (a *Adapter) Init(info datastore.ServiceInfo) error {
	if a.apiKey == "" {
		return ErrMissingAPIKey
	}
	if a.projectID == "" {
		return ErrMissingProjectID
	}
	if err := datastore.ValidateServiceInfo(info); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.collection = info.Collection
	a.logger = info.LoggerOrNop().With(zap.String("driver", DriverName), zap.String("collection", info.Collection))
	return nil
}

func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	opts := append([]option.ClientOption{option.WithAPIKey(a.apiKey)}, a.opts...)
	client, err := gcfs.NewClient(ctx, a.projectID, opts...)
	if err != nil {
		return errors.NewStoreError("connect", fmt.Errorf("failed to create Firestore client: %w", err))
	}

	a.client = client
	a.logger.Info("Successfully connected to Firestore", zap.String("project", a.projectID))
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return errors.NewStoreError("disconnect", err)
}

func (a *Adapter) coll(op string) (*gcfs.CollectionRef, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.client == nil {
		return nil, errors.NewStoreError(op, errors.ErrNotConnected)
	}
	return a.client.Collection(a.collection), nil
}

func (a *Adapter) List(ctx context.Context) (storagemodels.ResultSet, error) {
	return a.Find(ctx, storagemodels.Query{})
}

func (a *Adapter) Find(ctx context.Context, q storagemodels.Query) (storagemodels.ResultSet, error) {
	coll, err := a.coll("find")
	if err != nil {
		return nil, err
	}

	query := coll.Query
	for _, c := range q.Conditions {
		query = query.WherePath(gcfs.FieldPath{c.Field}, string(c.Operator), normalizeValue(c.Value))
	}
	for _, key := range q.OrderBy {
		query = query.OrderByPath(gcfs.FieldPath{key}, gcfs.Asc)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	rs := make(storagemodels.ResultSet)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.NewStoreError("find", fmt.Errorf("failed to iterate %s: %w", a.collection, err))
		}
		rs.Add(toEntity(doc))
	}
	return rs, nil
}

func (a *Adapter) FindByID(ctx context.Context, id string) (storagemodels.Entity, error) {
	coll, err := a.coll("findById")
	if err != nil {
		return nil, err
	}

	snap, err := coll.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, errors.NewStoreError("findById", fmt.Errorf("failed to get document %q: %w", id, err))
	}
	if !snap.Exists() {
		return nil, nil
	}
	return toEntity(snap), nil
}

func (a *Adapter) FindByIDs(ctx context.Context, ids []string) (storagemodels.ResultSet, error) {
	out := make(storagemodels.ResultSet, len(ids))
	for _, chunk := range chunkIDs(ids, MaxInValues) {
		rs, err := a.Find(ctx, storagemodels.NewQuery(storagemodels.ByIDs(chunk)))
		if err != nil {
			return nil, err
		}
		for id, e := range rs {
			out[id] = e
		}
	}
	return out, nil
}

func (a *Adapter) Create(ctx context.Context, entity storagemodels.Entity) (storagemodels.Entity, error) {
	coll, err := a.coll("create")
	if err != nil {
		return nil, err
	}
	id, ok := entity.ID()
	if !ok {
		return nil, errors.NewStoreError("create", errors.NewValidationError(storagemodels.IDKey, "entity has no identity"))
	}

	data := make(map[string]any, len(entity))
	for k, v := range entity {
		data[k] = v
	}
	data[storagemodels.IDKey] = id

	if _, err := coll.Doc(id).Set(ctx, data); err != nil {
		return nil, errors.NewStoreError("create", fmt.Errorf("failed to set document %q: %w", id, err))
	}
	return a.FindByID(ctx, id)
}

func (a *Adapter) Update(ctx context.Context, id string, values storagemodels.Entity) (storagemodels.Entity, error) {
	coll, err := a.coll("update")
	if err != nil {
		return nil, err
	}

	updates := buildUpdates(values)
	ref := coll.Doc(id)
	if len(updates) > 0 {
		if _, err := ref.Update(ctx, updates); err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, errors.NewStoreError("update", errors.NewNotFoundError(a.collection, id))
			}
			return nil, errors.NewStoreError("update", fmt.Errorf("failed to update document %q: %w", id, err))
		}
	}

	current, err := a.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.NewStoreError("update", errors.NewNotFoundError(a.collection, id))
	}
	return current, nil
}

func (a *Adapter) Delete(ctx context.Context, id string) (storagemodels.Entity, error) {
	coll, err := a.coll("delete")
	if err != nil {
		return nil, err
	}

	previous, err := a.FindByID(ctx, id)
	if err != nil || previous == nil {
		return nil, err
	}
	if _, err := coll.Doc(id).Delete(ctx); err != nil {
		return nil, errors.NewStoreError("delete", fmt.Errorf("failed to delete document %q: %w", id, err))
	}
	return previous, nil
}

// buildUpdates converts values to field updates, in field order. The identity is immutable.
func buildUpdates(values storagemodels.Entity) []gcfs.Update {
	fields := make([]string, 0, len(values))
	for field := range values {
		if field == storagemodels.IDKey {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	updates := make([]gcfs.Update, 0, len(fields))
	for _, field := range fields {
		updates = append(updates, gcfs.Update{FieldPath: gcfs.FieldPath{field}, Value: values[field]})
	}
	return updates
}

// chunkIDs splits ids into groups of at most size.
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// normalizeValue turns typed string lists into the []any Firestore expects for list operators.
func normalizeValue(v any) any {
	if list, ok := v.([]string); ok {
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	return v
}

func toEntity(snap *gcfs.DocumentSnapshot) storagemodels.Entity {
	e := storagemodels.Entity(snap.Data())
	if _, ok := e.ID(); !ok {
		e[storagemodels.IDKey] = snap.Ref.ID
	}
	return e
}
