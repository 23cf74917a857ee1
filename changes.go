/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"context"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/suparena/entityservice/storagemodels"
)

const (
	eventCreated = "created"
	eventUpdated = "updated"
	eventRemoved = "removed"
)

// CacheCleanEvent is the broadcast subject peers listen on to drop cached results of fullName.
func CacheCleanEvent(fullName string) string {
	return "cache.clean." + fullName
}

func (s *Service) cleanEvent() string {
	return CacheCleanEvent(s.fullName)
}

func (s *Service) cachePattern() string {
	return s.fullName + ".*"
}

// entityChanged clears caches and runs the lifecycle hook for kind. Nothing here fails the mutation.
func (s *Service) entityChanged(ctx context.Context, kind string, entity storagemodels.Entity) {
	s.clearCache(ctx)

	var hook Hook
	switch kind {
	case eventCreated:
		hook = s.hooks.Created
	case eventUpdated:
		hook = s.hooks.Updated
	case eventRemoved:
		hook = s.hooks.Removed
	}
	if hook == nil {
		return
	}

	if err := hook(ctx, entity); err != nil {
		s.logger.Error("entity hook failed",
			zap.String("event", kind),
			zap.Any("id", entity[storagemodels.IDKey]),
			zap.Error(err))
	}
}

func (s *Service) clearCache(ctx context.Context) {
	payload, err := json.Marshal(map[string]string{"service": s.fullName})
	if err == nil {
		err = s.notifier.Broadcast(ctx, s.cleanEvent(), payload)
	}
	if err != nil {
		s.logger.Warn("cache clean broadcast failed", zap.String("event", s.cleanEvent()), zap.Error(err))
	}

	if s.cacher == nil {
		return
	}
	if err := s.cacher.Clean(ctx, s.cachePattern()); err != nil {
		s.logger.Warn("cache clean failed", zap.String("pattern", s.cachePattern()), zap.Error(err))
	}
}

type requestKey struct{}

// Request describes the action call a mutation originates from. Hooks read it with RequestFromContext.
type Request struct {
	Action string
	Params Params
	Meta   map[string]any
}

// WithRequest returns a copy of ctx carrying req.
func WithRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// RequestFromContext returns the request stored in ctx, if any.
func RequestFromContext(ctx context.Context) (*Request, bool) {
	req, ok := ctx.Value(requestKey{}).(*Request)
	return req, ok && req != nil
}
