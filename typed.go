/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/suparena/entityservice/storagemodels"
)

// TypedService provides type-safe CRUD operations for entities of type T.
// Fields are mapped through their json tag names.
type TypedService[T any] struct {
	svc *Service
}

// NewTypedService wraps svc for type T
func NewTypedService[T any](svc *Service) *TypedService[T] {
	return &TypedService[T]{svc: svc}
}

// Service returns the untyped service
func (ts *TypedService[T]) Service() *Service {
	return ts.svc
}

// Get returns nil when the entity does not exist
func (ts *TypedService[T]) Get(ctx context.Context, id string) (*T, error) {
	e, err := ts.svc.Get(ctx, id)
	if err != nil || e == nil {
		return nil, err
	}
	return DecodeEntity[T](e)
}

// GetMany returns the existing subset of ids keyed by id
func (ts *TypedService[T]) GetMany(ctx context.Context, ids []string) (map[string]T, error) {
	rs, err := ts.svc.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(rs))
	for id, e := range rs {
		v, err := DecodeEntity[T](e)
		if err != nil {
			return nil, err
		}
		out[id] = *v
	}
	return out, nil
}

// Find returns the matches in q.OrderBy order
func (ts *TypedService[T]) Find(ctx context.Context, q storagemodels.Query) ([]T, error) {
	rs, err := ts.svc.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := rs.Ordered(q.OrderBy)
	out := make([]T, 0, len(rows))
	for _, e := range rows {
		v, err := DecodeEntity[T](e)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (ts *TypedService[T]) Create(ctx context.Context, v T) (*T, error) {
	doc, err := EncodeEntity(v)
	if err != nil {
		return nil, err
	}
	created, err := ts.svc.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	return DecodeEntity[T](created)
}

// Update merges values into the entity at id
func (ts *TypedService[T]) Update(ctx context.Context, id string, values storagemodels.Entity) (*T, error) {
	updated, err := ts.svc.Update(ctx, id, values)
	if err != nil {
		return nil, err
	}
	return DecodeEntity[T](updated)
}

// Delete returns the removed entity, or nil when nothing existed
func (ts *TypedService[T]) Delete(ctx context.Context, id string) (*T, error) {
	deleted, err := ts.svc.Delete(ctx, id)
	if err != nil || deleted == nil {
		return nil, err
	}
	return DecodeEntity[T](deleted)
}

// EncodeEntity converts a struct into an Entity keyed by json tag names.
func EncodeEntity[T any](v T) (storagemodels.Entity, error) {
	out := map[string]any{}
	if err := decodeJSONTagged(v, &out); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return storagemodels.Entity(out), nil
}

// DecodeEntity converts an Entity into a new T.
func DecodeEntity[T any](e storagemodels.Entity) (*T, error) {
	var v T
	if err := decodeJSONTagged(map[string]any(e), &v); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return &v, nil
}

func decodeJSONTagged(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
