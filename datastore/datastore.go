/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
	"go.uber.org/zap"
)

// ServiceInfo describes the service an adapter is bound to.
type ServiceInfo struct {
	// Name is the service name, e.g. "posts"
	Name string
	// FullName includes the version prefix, e.g. "v2.posts"
	FullName string
	// Collection is the table or collection the adapter operates on
	Collection string
	Logger     *zap.Logger
}

// Adapter is the storage driver contract every backing store implements.
// Entities passed to and returned from an Adapter carry their identity under storagemodels.IDKey.
type Adapter interface {
	// Init binds the adapter to its service. Called once, before Connect.
	Init(info ServiceInfo) error

	Connect(ctx context.Context) error

	Disconnect(ctx context.Context) error

	List(ctx context.Context) (storagemodels.ResultSet, error)

	// Find returns the entities matching q. An empty query behaves like List.
	Find(ctx context.Context, q storagemodels.Query) (storagemodels.ResultSet, error)

	// FindByID returns nil, nil when the entity does not exist.
	FindByID(ctx context.Context, id string) (storagemodels.Entity, error)

	// FindByIDs omits ids that do not exist.
	FindByIDs(ctx context.Context, ids []string) (storagemodels.ResultSet, error)

	// Create persists an entity that already carries its identity and returns it as stored.
	Create(ctx context.Context, entity storagemodels.Entity) (storagemodels.Entity, error)

	// Update merges values into the entity at id and returns the result.
	Update(ctx context.Context, id string, values storagemodels.Entity) (storagemodels.Entity, error)

	// Delete removes the entity at id and returns its last state, or nil, nil when nothing existed.
	Delete(ctx context.Context, id string) (storagemodels.Entity, error)
}

// ValidateServiceInfo checks the fields every adapter needs at Init.
func ValidateServiceInfo(info ServiceInfo) error {
	if info.Collection == "" {
		return errors.NewConfigurationError("collection", "missing collection definition")
	}
	return nil
}

// LoggerOrNop returns the service logger, or a no-op logger when none is set.
func (info ServiceInfo) LoggerOrNop() *zap.Logger {
	if info.Logger == nil {
		return zap.NewNop()
	}
	return info.Logger
}
