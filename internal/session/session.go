// Package session persists per-user spawner sessions on the local
// filesystem: one directory per session holding a JSON record, written
// atomically, plus a pid-based lock guarding concurrent access.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/hubwrap/hubwrap/internal/spawner"
)

// Record is the persisted form of one user session.
type Record struct {
	// ID identifies the session across restarts.
	ID string `json:"id"`

	// User is the owning user's name.
	User string `json:"user"`

	// Profile is the profile key chosen for this session, if any.
	Profile string `json:"profile,omitempty"`

	// State is the supervisor's persisted state mapping.
	State spawner.State `json:"state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// NewRecord creates a Record for a user with a fresh ID.
func NewRecord(user string) *Record {
	now := time.Now()
	return &Record{
		ID:        NewID(),
		User:      user,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
