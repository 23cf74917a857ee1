/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("posts", "123")

	expected := `posts with key "123" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "limit",
			message:  "must be a positive integer",
			expected: `validation failed for field "limit": must be a positive integer`,
		},
		{
			name:     "without field",
			field:    "",
			message:  "unknown action",
			expected: "validation failed: unknown action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}

			if !errors.Is(err, ErrInvalidInput) {
				t.Error("ValidationError should match ErrInvalidInput")
			}

			if !IsValidationError(err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("collection", "missing collection definition")

	expected := `configuration error for "collection": missing collection definition`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !IsConfiguration(err) {
		t.Error("IsConfiguration should return true for ConfigurationError")
	}
	if IsValidationError(err) {
		t.Error("ConfigurationError should not match ErrInvalidInput")
	}
}

func TestMissingCredentialError(t *testing.T) {
	apiKey := NewMissingCredentialError("firestore", "apiKey", 1)
	projectID := NewMissingCredentialError("firestore", "projectID", 2)

	t.Run("MatchesSentinel", func(t *testing.T) {
		if !IsMissingCredential(apiKey) {
			t.Error("MissingCredentialError should match ErrMissingCredential")
		}
	})

	t.Run("MatchesSameVariant", func(t *testing.T) {
		again := NewMissingCredentialError("firestore", "apiKey", 1)
		if !errors.Is(apiKey, again) {
			t.Error("variants naming the same credential should match")
		}
	})

	t.Run("DistinguishesVariants", func(t *testing.T) {
		if errors.Is(apiKey, projectID) {
			t.Error("apiKey variant should not match projectID variant")
		}
	})

	t.Run("Message", func(t *testing.T) {
		expected := "firestore adapter: missing apiKey credential: it should be passed as parameter #1 of the constructor"
		if apiKey.Error() != expected {
			t.Errorf("Expected error message %q, got %q", expected, apiKey.Error())
		}
	})
}

func TestStoreError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewStoreError("connect", cause)

	if !IsStoreError(err) {
		t.Error("IsStoreError should return true for StoreError")
	}
	if !errors.Is(err, cause) {
		t.Error("StoreError should unwrap to its cause")
	}
	if NewStoreError("connect", nil) != nil {
		t.Error("NewStoreError should return nil for a nil cause")
	}

	nested := NewStoreError("update", NewNotFoundError("posts", "9"))
	if !IsNotFound(nested) {
		t.Error("StoreError wrapping NotFoundError should match ErrNotFound")
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewNotFoundError("posts", "123")
	wrapped := fmt.Errorf("get action failed: %w", original)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("Wrapped NotFoundError should still match ErrNotFound")
	}

	var nfe *NotFoundError
	if !errors.As(wrapped, &nfe) {
		t.Fatal("Should be able to extract NotFoundError from wrapped error")
	}
	if nfe.Key != "123" {
		t.Errorf("Expected key 123, got %s", nfe.Key)
	}
}
