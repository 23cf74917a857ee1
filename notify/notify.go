/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"errors"
)

// ErrNotConnected is returned when a broker connection is missing or closed.
var ErrNotConnected = errors.New("notifier is not connected")

// Handler receives the payload of a broadcast event.
type Handler func(ctx context.Context, payload []byte)

// Notifier broadcasts events to every node of a deployment.
type Notifier interface {
	Broadcast(ctx context.Context, event string, payload []byte) error
}

// Subscriber is implemented by notifiers that can also receive broadcasts.
type Subscriber interface {
	Subscribe(ctx context.Context, event string, handler Handler) error
}

// Nop discards every broadcast.
type Nop struct{}

func (Nop) Broadcast(context.Context, string, []byte) error { return nil }
