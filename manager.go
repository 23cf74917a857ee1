/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
)

// ServiceManager keeps services by full name and drives their lifecycle together.
type ServiceManager struct {
	mu       sync.RWMutex
	services map[string]*Service
	order    []string
}

// NewServiceManager creates an empty manager
func NewServiceManager() *ServiceManager {
	return &ServiceManager{
		services: make(map[string]*Service),
	}
}

// Register adds svc under its full name
func (sm *ServiceManager) Register(svc *Service) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := svc.FullName()
	if _, exists := sm.services[key]; exists {
		return fmt.Errorf("service %q already registered", key)
	}
	sm.services[key] = svc
	sm.order = append(sm.order, key)
	return nil
}

// Get retrieves a service by full name
func (sm *ServiceManager) Get(fullName string) (*Service, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	svc, exists := sm.services[fullName]
	if !exists {
		return nil, fmt.Errorf("service %q not found", fullName)
	}
	return svc, nil
}

// Services returns the registered full names in registration order
func (sm *ServiceManager) Services() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return append([]string(nil), sm.order...)
}

// StartAll starts services in registration order and stops at the first failure.
func (sm *ServiceManager) StartAll(ctx context.Context) error {
	for _, name := range sm.Services() {
		svc, err := sm.Get(name)
		if err != nil {
			return err
		}
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
	}
	return nil
}

// StopAll stops every service in reverse registration order and joins their errors.
func (sm *ServiceManager) StopAll(ctx context.Context) error {
	names := sm.Services()
	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		svc, err := sm.Get(names[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := svc.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", names[i], err))
		}
	}
	return stderrors.Join(errs...)
}
