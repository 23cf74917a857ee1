/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"sync"
)

// Event is a broadcast recorded by the local bus.
type Event struct {
	Name    string
	Payload []byte
}

// DefaultHistorySize is how many recent broadcasts a Local bus keeps for Events and Count.
const DefaultHistorySize = 256

// Local is an in-process bus. Handlers run synchronously on the broadcasting goroutine.
type Local struct {
	mu         sync.RWMutex
	nextID     uint64
	handlers   map[string]map[uint64]Handler
	history    []Event
	maxHistory int
}

// LocalOption configures a Local bus.
type LocalOption func(*Local)

// WithHistory keeps the last n broadcasts. Zero or less records nothing.
func WithHistory(n int) LocalOption {
	return func(l *Local) {
		l.maxHistory = max(n, 0)
	}
}

func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		handlers:   make(map[string]map[uint64]Handler),
		maxHistory: DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Broadcast(ctx context.Context, event string, payload []byte) error {
	l.mu.Lock()
	l.record(Event{Name: event, Payload: append([]byte(nil), payload...)})
	handlers := make([]Handler, 0, len(l.handlers[event]))
	for _, h := range l.handlers[event] {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()

	for _, h := range handlers {
		h(ctx, payload)
	}
	return nil
}

// record appends e, dropping the oldest entry once the history is full.
func (l *Local) record(e Event) {
	if l.maxHistory == 0 {
		return
	}
	if len(l.history) < l.maxHistory {
		l.history = append(l.history, e)
		return
	}
	copy(l.history, l.history[1:])
	l.history[len(l.history)-1] = e
}

// Subscribe registers handler for event until ctx is cancelled.
func (l *Local) Subscribe(ctx context.Context, event string, handler Handler) error {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	if l.handlers[event] == nil {
		l.handlers[event] = make(map[uint64]Handler)
	}
	l.handlers[event][id] = handler
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers[event], id)
		if len(l.handlers[event]) == 0 {
			delete(l.handlers, event)
		}
	}()
	return nil
}

// Subscribers returns the number of live handlers for event.
func (l *Local) Subscribers(event string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.handlers[event])
}

// Events returns the retained broadcasts, oldest first.
func (l *Local) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.history...)
}

// Count returns how many retained broadcasts carry event.
func (l *Local) Count(event string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.history {
		if e.Name == event {
			n++
		}
	}
	return n
}
