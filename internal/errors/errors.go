// Package errors provides centralized error definitions and error handling
// utilities for the hubwrap codebase. It defines domain-specific errors for the
// spawner delegation layer, semantic error types, and classification helpers.
//
// The delegation layer is deliberately transparent about failure: errors raised
// by a child spawner propagate to the caller unchanged. The types here exist for
// the delegation layer's own failures (missing child, unknown spawner type,
// corrupted state) and for callers that want structured matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Spawner-related sentinel errors
var (
	// ErrNoChildSpawner indicates an operation that requires a constructed
	// child spawner was invoked before construction.
	ErrNoChildSpawner = New("no child spawner yet exists")
	// ErrUnknownSpawnerType indicates a spawner type name with no registered factory.
	ErrUnknownSpawnerType = New("unknown spawner type")
	// ErrSpawnerNotRunning indicates the child spawner is not running.
	ErrSpawnerNotRunning = New("spawner not running")
	// ErrAlreadyConstructed indicates an attempt to reconfigure a supervisor
	// whose child has already been built.
	ErrAlreadyConstructed = New("child spawner already constructed")
)

// Profile-related sentinel errors
var (
	// ErrProfileNotFound indicates a profile key missing from the catalog.
	ErrProfileNotFound = New("profile not found")
	// ErrEmptyCatalog indicates a catalog with no profiles.
	ErrEmptyCatalog = New("profile catalog is empty")
	// ErrDuplicateProfile indicates two catalog entries sharing a key.
	ErrDuplicateProfile = New("duplicate profile key")
)

// State-related sentinel errors
var (
	// ErrStateCorrupted indicates persisted supervisor state that cannot be decoded.
	ErrStateCorrupted = New("state data corrupted")
	// ErrStateNotFound indicates no persisted state exists for a session.
	ErrStateNotFound = New("state not found")
)

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SpawnerError represents errors from spawner construction or lifecycle
// forwarding.
//
// Example:
//
//	err := errors.NewSpawnerError("construction failed", errors.ErrUnknownSpawnerType)
//	err = err.WithType("docker").WithSession("abc123")
type SpawnerError struct {
	message     string
	cause       error
	SpawnerType string
	SessionID   string
}

// NewSpawnerError creates a new SpawnerError.
func NewSpawnerError(message string, cause error) *SpawnerError {
	return &SpawnerError{message: message, cause: cause}
}

// WithType adds the spawner type name to the error context.
func (e *SpawnerError) WithType(name string) *SpawnerError {
	e.SpawnerType = name
	return e
}

// WithSession adds a session ID to the error context.
func (e *SpawnerError) WithSession(id string) *SpawnerError {
	e.SessionID = id
	return e
}

// Error returns the formatted error message.
func (e *SpawnerError) Error() string {
	var parts []string
	if e.SpawnerType != "" {
		parts = append(parts, fmt.Sprintf("type=%s", e.SpawnerType))
	}
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}

	prefix := "spawner error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("spawner error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *SpawnerError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *SpawnerError) Is(target error) bool {
	if _, ok := target.(*SpawnerError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// ProfileError represents errors from catalog loading or validation.
type ProfileError struct {
	message string
	cause   error
	Key     string
}

// NewProfileError creates a new ProfileError.
func NewProfileError(message string, cause error) *ProfileError {
	return &ProfileError{message: message, cause: cause}
}

// WithKey adds a profile key to the error context.
func (e *ProfileError) WithKey(key string) *ProfileError {
	e.Key = key
	return e
}

// Error returns the formatted error message.
func (e *ProfileError) Error() string {
	prefix := "profile error"
	if e.Key != "" {
		prefix = fmt.Sprintf("profile error [key=%s]", e.Key)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *ProfileError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *ProfileError) Is(target error) bool {
	if _, ok := target.(*ProfileError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("profile", "gpu-large")
//	fmt.Println(err) // "profile 'gpu-large' not found"
type NotFoundError struct {
	ResourceType string
	ResourceID   string
	cause        error
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceID: resourceID}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Unwrap returns the underlying error.
func (e *NotFoundError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// ValidationError represents invalid input or state.
type ValidationError struct {
	message string
	cause   error
	Field   string
	Value   any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{message: message}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to construct child")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
