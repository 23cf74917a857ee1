/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/suparena/entityservice/notify"
)

// Start connects the adapter, retrying every retry delay until it succeeds. There is no attempt
// cap; cancelling ctx is the only other way out.
func (s *Service) Start(ctx context.Context) error {
	adapter, err := s.store()
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		err := adapter.Connect(ctx)
		s.metrics.connectAttempt(s.fullName, err)
		if err == nil {
			break
		}

		s.logger.Error("connection error",
			zap.String("collection", s.collection),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}

		s.logger.Warn("reconnecting", zap.Int("attempt", attempt+1))
	}

	s.setState(StateConnected)
	s.logger.Info("connected", zap.String("collection", s.collection))

	s.watchCacheClean(ctx)
	return nil
}

// watchCacheClean drops local cache entries when a peer broadcasts a clean for this service.
// It replaces the subscription of an earlier Start and subscribes nothing once ctx is done.
func (s *Service) watchCacheClean(ctx context.Context) {
	s.stopCacheWatch()

	sub, ok := s.notifier.(notify.Subscriber)
	if !ok || s.cacher == nil || ctx.Err() != nil {
		return
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	err := sub.Subscribe(watchCtx, s.cleanEvent(), func(ctx context.Context, _ []byte) {
		if err := s.cacher.Clean(ctx, s.cachePattern()); err != nil {
			s.logger.Warn("cache clean failed", zap.Error(err))
		}
	})
	if err != nil {
		cancel()
		s.logger.Warn("cache clean subscription failed", zap.String("event", s.cleanEvent()), zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.stopWatch = cancel
	s.mu.Unlock()
}

func (s *Service) stopCacheWatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}

// Stop disconnects the adapter. It is a no-op for an unconfigured service.
func (s *Service) Stop(ctx context.Context) error {
	if s.adapter == nil {
		return nil
	}

	s.stopCacheWatch()

	if err := s.adapter.Disconnect(ctx); err != nil {
		return err
	}
	s.setState(StateDisconnected)
	s.logger.Info("disconnected")
	return nil
}
