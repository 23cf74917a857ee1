/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Adapter for testing
package mock

import (
	"context"
	"sync"

	"github.com/suparena/entityservice/datastore"
	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/registry"
	"github.com/suparena/entityservice/storagemodels"
	"github.com/tiendc/go-deepcopy"
)

// DriverName is the registry name of the in-memory adapter
const DriverName = "memory"

func init() {
	registry.Register(DriverName, func(registry.Credentials) (datastore.Adapter, error) {
		return New(), nil
	})
}

// Adapter is an in-memory datastore.Adapter. Entities are deep-copied on the way in and out.
type Adapter struct {
	mu        sync.RWMutex
	info      datastore.ServiceInfo
	data      map[string]storagemodels.Entity
	connected bool

	connectFunc     func(ctx context.Context, attempt int) error
	connectAttempts int
	initError       error
	findError       error
	createError     error
	updateError     error
	deleteError     error

	calls map[string]int
}

// New creates an empty in-memory adapter
func New() *Adapter {
	return &Adapter{
		data:  make(map[string]storagemodels.Entity),
		calls: make(map[string]int),
	}
}

// WithConnectFunc sets a function deciding the outcome of each Connect attempt (1-based)
func (m *Adapter) WithConnectFunc(f func(ctx context.Context, attempt int) error) *Adapter {
	m.connectFunc = f
	return m
}

// WithConnectFailures makes the first n Connect attempts fail with err
func (m *Adapter) WithConnectFailures(n int, err error) *Adapter {
	return m.WithConnectFunc(func(_ context.Context, attempt int) error {
		if attempt <= n {
			return err
		}
		return nil
	})
}

// WithInitError makes Init fail
func (m *Adapter) WithInitError(err error) *Adapter {
	m.initError = err
	return m
}

// WithFindError makes List, Find, FindByID and FindByIDs fail
func (m *Adapter) WithFindError(err error) *Adapter {
	m.findError = err
	return m
}

// WithCreateError makes Create operations return an error
func (m *Adapter) WithCreateError(err error) *Adapter {
	m.createError = err
	return m
}

// WithUpdateError makes Update operations return an error
func (m *Adapter) WithUpdateError(err error) *Adapter {
	m.updateError = err
	return m
}

// WithDeleteError makes Delete operations return an error
func (m *Adapter) WithDeleteError(err error) *Adapter {
	m.deleteError = err
	return m
}

func (m *Adapter) Init(info datastore.ServiceInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["init"]++

	if m.initError != nil {
		return m.initError
	}
	if err := datastore.ValidateServiceInfo(info); err != nil {
		return err
	}
	m.info = info
	return nil
}

func (m *Adapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.calls["connect"]++
	m.connectAttempts++
	attempt := m.connectAttempts
	f := m.connectFunc
	m.mu.Unlock()

	if f != nil {
		if err := f(ctx, attempt); err != nil {
			return errors.NewStoreError("connect", err)
		}
	}

	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *Adapter) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["disconnect"]++
	m.connected = false
	return nil
}

func (m *Adapter) List(ctx context.Context) (storagemodels.ResultSet, error) {
	return m.find(ctx, "list", storagemodels.Query{})
}

func (m *Adapter) Find(ctx context.Context, q storagemodels.Query) (storagemodels.ResultSet, error) {
	return m.find(ctx, "find", q)
}

func (m *Adapter) find(ctx context.Context, op string, q storagemodels.Query) (storagemodels.ResultSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++

	if err := m.ready(op); err != nil {
		return nil, err
	}
	if m.findError != nil {
		return nil, m.findError
	}

	candidates := make([]storagemodels.Entity, 0, len(m.data))
	for _, e := range m.data {
		candidates = append(candidates, e)
	}
	selected := q.Apply(candidates)

	out := make(storagemodels.ResultSet, len(selected))
	for id, e := range selected {
		c, err := clone(e)
		if err != nil {
			return nil, errors.NewStoreError(op, err)
		}
		out[id] = c
	}
	return out, nil
}

func (m *Adapter) FindByID(ctx context.Context, id string) (storagemodels.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["findById"]++

	if err := m.ready("findById"); err != nil {
		return nil, err
	}
	if m.findError != nil {
		return nil, m.findError
	}

	e, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	out, err := clone(e)
	if err != nil {
		return nil, errors.NewStoreError("findById", err)
	}
	return out, nil
}

func (m *Adapter) FindByIDs(ctx context.Context, ids []string) (storagemodels.ResultSet, error) {
	return m.find(ctx, "findByIds", storagemodels.NewQuery(storagemodels.ByIDs(ids)))
}

func (m *Adapter) Create(ctx context.Context, entity storagemodels.Entity) (storagemodels.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["create"]++

	if err := m.ready("create"); err != nil {
		return nil, err
	}
	if m.createError != nil {
		return nil, m.createError
	}

	id, ok := entity.ID()
	if !ok {
		return nil, errors.NewStoreError("create", errors.NewValidationError(storagemodels.IDKey, "entity has no identity"))
	}
	stored, err := clone(entity)
	if err != nil {
		return nil, errors.NewStoreError("create", err)
	}
	stored[storagemodels.IDKey] = id
	m.data[id] = stored

	out, err := clone(stored)
	if err != nil {
		return nil, errors.NewStoreError("create", err)
	}
	return out, nil
}

func (m *Adapter) Update(ctx context.Context, id string, values storagemodels.Entity) (storagemodels.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["update"]++

	if err := m.ready("update"); err != nil {
		return nil, err
	}
	if m.updateError != nil {
		return nil, m.updateError
	}

	current, ok := m.data[id]
	if !ok {
		return nil, errors.NewStoreError("update", errors.NewNotFoundError(m.info.Collection, id))
	}
	patch, err := clone(values)
	if err != nil {
		return nil, errors.NewStoreError("update", err)
	}
	for k, v := range patch {
		if k == storagemodels.IDKey {
			continue
		}
		current[k] = v
	}

	out, err := clone(current)
	if err != nil {
		return nil, errors.NewStoreError("update", err)
	}
	return out, nil
}

func (m *Adapter) Delete(ctx context.Context, id string) (storagemodels.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++

	if err := m.ready("delete"); err != nil {
		return nil, err
	}
	if m.deleteError != nil {
		return nil, m.deleteError
	}

	e, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	delete(m.data, id)
	return e, nil
}

// ready must be called with m.mu held
func (m *Adapter) ready(op string) error {
	if !m.connected {
		return errors.NewStoreError(op, errors.ErrNotConnected)
	}
	return nil
}

func clone(e storagemodels.Entity) (storagemodels.Entity, error) {
	if e == nil {
		return nil, nil
	}
	var out storagemodels.Entity
	if err := deepcopy.Copy(&out, e); err != nil {
		return nil, err
	}
	return out, nil
}

// Helper methods for testing

// SetData replaces the stored entities (for testing). Each entity is keyed by its identity.
func (m *Adapter) SetData(entities ...storagemodels.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]storagemodels.Entity, len(entities))
	for _, e := range entities {
		if id, ok := e.ID(); ok {
			c, err := clone(e)
			if err != nil {
				continue
			}
			m.data[id] = c
		}
	}
}

// GetData returns a copy of the stored entities (for testing)
func (m *Adapter) GetData() storagemodels.ResultSet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(storagemodels.ResultSet, len(m.data))
	for k, v := range m.data {
		c, err := clone(v)
		if err != nil {
			continue
		}
		result[k] = c
	}
	return result
}

// Count returns the number of stored entities
func (m *Adapter) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Clear removes all data
func (m *Adapter) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]storagemodels.Entity)
}

// Calls returns how many times the named operation was invoked: "init", "connect", "disconnect",
// "list", "find", "findById", "findByIds", "create", "update" or "delete".
func (m *Adapter) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// TotalCalls returns the number of data operations invoked, excluding lifecycle calls
func (m *Adapter) TotalCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for op, n := range m.calls {
		switch op {
		case "init", "connect", "disconnect":
			continue
		}
		total += n
	}
	return total
}

// ConnectAttempts returns the number of Connect calls so far
func (m *Adapter) ConnectAttempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connectAttempts
}

// Connected reports whether the adapter holds a live handle
func (m *Adapter) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Info returns the ServiceInfo received at Init
func (m *Adapter) Info() datastore.ServiceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.info
}
