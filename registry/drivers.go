/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/entityservice/datastore"
	"github.com/suparena/entityservice/errors"
)

// Credentials are the two opaque, driver-specific construction values of an adapter
// plus optional driver settings.
type Credentials struct {
	Primary   string
	Secondary string
	Options   map[string]string
}

// Option returns a driver setting, or def when unset.
func (c Credentials) Option(key, def string) string {
	if v, ok := c.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// Factory builds an adapter from its credentials.
type Factory func(creds Credentials) (datastore.Adapter, error)

var (
	drivers   = make(map[string]Factory)
	driversMu sync.RWMutex
)

// Register makes a driver available under name.
// If a driver is already registered under name, it panics to prevent accidental overrides.
func Register(name string, factory Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if factory == nil {
		panic(fmt.Sprintf("driver registry: nil factory for %q", name))
	}
	if _, exists := drivers[name]; exists {
		panic(fmt.Sprintf("driver registry: driver %q already registered", name))
	}
	drivers[name] = factory
}

// New builds an adapter with the named driver.
func New(name string, creds Credentials) (datastore.Adapter, error) {
	driversMu.RLock()
	factory, ok := drivers[name]
	driversMu.RUnlock()

	if !ok {
		return nil, errors.NewConfigurationError("driver", fmt.Sprintf("no driver registered as %q", name))
	}
	return factory(creds)
}

// Drivers returns the registered driver names in sorted order.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
