package errors

import (
	"fmt"
	"testing"
)

func TestSpawnerError_Format(t *testing.T) {
	err := NewSpawnerError("construction failed", ErrUnknownSpawnerType).
		WithType("docker").
		WithSession("abc123")

	want := "spawner error [type=docker, session=abc123]: construction failed: unknown spawner type"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSpawnerError_Is(t *testing.T) {
	err := NewSpawnerError("construction failed", ErrUnknownSpawnerType)

	if !Is(err, ErrUnknownSpawnerType) {
		t.Error("expected error to match ErrUnknownSpawnerType")
	}
	if Is(err, ErrProfileNotFound) {
		t.Error("error should not match ErrProfileNotFound")
	}

	var spawnerErr *SpawnerError
	if !As(err, &spawnerErr) {
		t.Error("expected As to match *SpawnerError")
	}
}

func TestSpawnerError_Unwrap(t *testing.T) {
	cause := New("boom")
	err := NewSpawnerError("start failed", cause)
	if Unwrap(err) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestProfileError_Format(t *testing.T) {
	err := NewProfileError("catalog rejected entry", ErrDuplicateProfile).WithKey("local")

	want := "profile error [key=local]: catalog rejected entry: duplicate profile key"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrDuplicateProfile) {
		t.Error("expected error to match ErrDuplicateProfile")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("profile", "gpu-large")

	want := "profile 'gpu-large' not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	withCause := NewNotFoundError("session", "s1").WithCause(ErrStateNotFound)
	if !Is(withCause, ErrStateNotFound) {
		t.Error("expected error to match ErrStateNotFound through cause")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("key cannot be empty").WithField("key").WithValue("")

	got := err.Error()
	want := "validation error [field=key]: key cannot be empty"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	base := New("boom")
	wrapped := Wrap(base, "loading state")
	if !Is(wrapped, base) {
		t.Error("wrapped error should match the base error")
	}
	if wrapped.Error() != "loading state: boom" {
		t.Errorf("Wrap message = %q", wrapped.Error())
	}

	wrappedf := Wrapf(base, "loading state for %s", "s1")
	if fmt.Sprintf("%v", wrappedf) != "loading state for s1: boom" {
		t.Errorf("Wrapf message = %q", wrappedf.Error())
	}
}
