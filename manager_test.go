/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"context"
	"fmt"
	"testing"

	"github.com/suparena/entityservice/datastore/mock"
)

func TestServiceManager(t *testing.T) {
	ctx := context.Background()

	t.Run("BasicOperations", func(t *testing.T) {
		sm := NewServiceManager()

		posts, _ := New("posts", mock.New())
		users, _ := New("users", mock.New(), WithVersion("v1"))
		if err := sm.Register(posts); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		if err := sm.Register(users); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}

		got, err := sm.Get("v1.users")
		if err != nil || got != users {
			t.Fatalf("Expected users service, got %v, %v", got, err)
		}

		names := sm.Services()
		if len(names) != 2 || names[0] != "posts" || names[1] != "v1.users" {
			t.Fatalf("Expected [posts v1.users], got %v", names)
		}

		if _, err := sm.Get("missing"); err == nil {
			t.Fatal("Expected error for unknown service")
		}
	})

	t.Run("DuplicateRegistration", func(t *testing.T) {
		sm := NewServiceManager()
		first, _ := New("posts", mock.New())
		second, _ := New("posts", mock.New())

		if err := sm.Register(first); err != nil {
			t.Fatalf("First registration failed: %v", err)
		}
		if err := sm.Register(second); err == nil {
			t.Fatal("Expected duplicate registration error")
		}
	})

	t.Run("StartAndStopAll", func(t *testing.T) {
		sm := NewServiceManager()
		adapters := []*mock.Adapter{mock.New(), mock.New(), mock.New()}
		for i, a := range adapters {
			svc, err := New(fmt.Sprintf("svc%d", i), a)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if err := sm.Register(svc); err != nil {
				t.Fatalf("Register failed: %v", err)
			}
		}

		if err := sm.StartAll(ctx); err != nil {
			t.Fatalf("StartAll failed: %v", err)
		}
		for i, a := range adapters {
			if !a.Connected() {
				t.Fatalf("adapter %d should be connected", i)
			}
		}

		if err := sm.StopAll(ctx); err != nil {
			t.Fatalf("StopAll failed: %v", err)
		}
		for i, a := range adapters {
			if a.Connected() {
				t.Fatalf("adapter %d should be disconnected", i)
			}
		}
	})

	t.Run("StartAllReportsUnconfigured", func(t *testing.T) {
		sm := NewServiceManager()
		svc, _ := New("orphan", nil)
		_ = sm.Register(svc)

		if err := sm.StartAll(ctx); err == nil {
			t.Fatal("Expected error for a service without adapter")
		}
	})
}

func TestServiceManagerThreadSafety(t *testing.T) {
	sm := NewServiceManager()
	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(id int) {
			svc, _ := New(fmt.Sprintf("svc%d", id), mock.New())
			sm.Register(svc)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		go func() {
			sm.Services()
			done <- true
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	if n := len(sm.Services()); n != 10 {
		t.Fatalf("Expected 10 services, got %d", n)
	}
}
