/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	defaultNATSMaxReconnects = -1
	defaultNATSReconnectWait = 2 * time.Second
	defaultNATSTimeout       = 5 * time.Second
	handlerTimeout           = 30 * time.Second
)

// NATSConfig contains options for connecting the NATS notifier.
type NATSConfig struct {
	URL           string
	ClientName    string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// NATS broadcasts events as core NATS messages on subjects named after the event.
type NATS struct {
	conn   *nats.Conn
	logger *zap.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATS connects to the configured server. Reconnection is delegated to the client.
func NewNATS(cfg NATSConfig, logger *zap.Logger) (*NATS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = defaultNATSMaxReconnects
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = defaultNATSReconnectWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNATSTimeout
	}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrlRedacted()))
		}),
	}
	if cfg.ClientName != "" {
		opts = append(opts, nats.Name(cfg.ClientName))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	return NewNATSFromConn(conn, logger), nil
}

// NewNATSFromConn wraps an existing connection.
func NewNATSFromConn(conn *nats.Conn, logger *zap.Logger) *NATS {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATS{conn: conn, logger: logger}
}

func (n *NATS) Broadcast(_ context.Context, event string, payload []byte) error {
	if n.conn == nil || !n.conn.IsConnected() {
		return ErrNotConnected
	}
	if err := n.conn.Publish(event, payload); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Subscribe delivers every message on the event subject to handler until ctx is cancelled.
func (n *NATS) Subscribe(ctx context.Context, event string, handler Handler) error {
	if n.conn == nil {
		return ErrNotConnected
	}

	sub, err := n.conn.Subscribe(event, func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		handler(msgCtx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", event, err)
	}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil && n.conn.IsConnected() {
			n.logger.Debug("unsubscribe failed", zap.String("subject", event), zap.Error(err))
		}
	}()
	return nil
}

// Close drains subscriptions and closes the connection.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	n.mu.Lock()
	n.subs = nil
	n.mu.Unlock()

	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
