/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration is returned when a service or adapter is misconfigured
	ErrConfiguration = errors.New("invalid configuration")

	// ErrMissingCredential is returned when an adapter was constructed without a required credential
	ErrMissingCredential = errors.New("missing credential")

	// ErrStore is returned for any failure raised by the backing store
	ErrStore = errors.New("store failure")

	// ErrNotConnected is returned when an adapter is used before Connect
	ErrNotConnected = errors.New("adapter not connected")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConfigurationError is fatal and surfaces at service construction or startup.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error for %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// MissingCredentialError reports one missing construction credential of an adapter.
// Position is the 1-based position of the credential in the adapter constructor.
type MissingCredentialError struct {
	Adapter    string
	Credential string
	Position   int
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s adapter: missing %s credential: it should be passed as parameter #%d of the constructor",
		e.Adapter, e.Credential, e.Position)
}

// Is matches ErrMissingCredential and any MissingCredentialError naming the same credential.
func (e *MissingCredentialError) Is(target error) bool {
	if target == ErrMissingCredential {
		return true
	}
	var other *MissingCredentialError
	if errors.As(target, &other) {
		return other.Adapter == e.Adapter && other.Credential == e.Credential
	}
	return false
}

// StoreError wraps a failure raised by the backing store during Op.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(field, message string) error {
	return &ConfigurationError{Field: field, Message: message}
}

// NewMissingCredentialError creates a new MissingCredentialError
func NewMissingCredentialError(adapter, credential string, position int) error {
	return &MissingCredentialError{Adapter: adapter, Credential: credential, Position: position}
}

// NewStoreError wraps err as a StoreError. A nil err yields nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsMissingCredential checks if an error is a missing credential error
func IsMissingCredential(err error) bool {
	return errors.Is(err, ErrMissingCredential)
}

// IsStoreError checks if an error was raised by the backing store
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStore)
}
