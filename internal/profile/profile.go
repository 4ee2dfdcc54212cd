// Package profile provides the administrator-curated catalog of spawner
// profiles and the selector layer that resolves a user's choice into a
// concrete child spawner type and configuration.
package profile

import (
	"github.com/gobwas/glob"

	"github.com/hubwrap/hubwrap/internal/errors"
)

// Profile is one catalog entry: a named pairing of a spawner type and the
// configuration overrides to apply to instances built for it. Entries are
// immutable; editing the catalog never affects an already-built child.
type Profile struct {
	// DisplayName is the human-readable label shown to users.
	DisplayName string `yaml:"display_name"`

	// Key uniquely identifies the profile and is stable across restarts.
	// It is the only part of a selection that gets persisted.
	Key string `yaml:"key"`

	// Description is human-readable text for the selection prompt.
	Description string `yaml:"description"`

	// TypeName names the spawner implementation, resolved through a
	// Registry at construction time.
	TypeName string `yaml:"type"`

	// Config holds configuration overrides applied only to instances of
	// TypeName constructed for this profile.
	Config map[string]any `yaml:"config"`
}

// Catalog is an ordered list of profiles. The first entry is the default
// when no choice is supplied.
type Catalog []Profile

// Validate checks catalog invariants: at least one entry, unique non-empty
// keys, and a type name on every entry.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return errors.NewProfileError("catalog must contain at least one profile", errors.ErrEmptyCatalog)
	}

	seen := make(map[string]bool, len(c))
	for i, p := range c {
		if p.Key == "" {
			return errors.NewValidationError("profile key cannot be empty").
				WithField("key").
				WithValue(i)
		}
		if p.TypeName == "" {
			return errors.NewValidationError("profile type cannot be empty").
				WithField("type").
				WithValue(p.Key)
		}
		if seen[p.Key] {
			return errors.NewProfileError("catalog rejected entry", errors.ErrDuplicateProfile).
				WithKey(p.Key)
		}
		seen[p.Key] = true
	}
	return nil
}

// Default returns the default profile: catalog entry 0.
// Callers must have validated the catalog first.
func (c Catalog) Default() Profile {
	return c[0]
}

// Find returns the profile with the given key.
func (c Catalog) Find(key string) (Profile, bool) {
	for _, p := range c {
		if p.Key == key {
			return p, true
		}
	}
	return Profile{}, false
}

// Filter returns the catalog entries whose key or type name matches the
// given glob pattern.
func (c Catalog) Filter(pattern string) (Catalog, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.NewValidationError("invalid filter pattern").
			WithField("pattern").
			WithValue(pattern).
			WithCause(err)
	}

	var out Catalog
	for _, p := range c {
		if g.Match(p.Key) || g.Match(p.TypeName) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Option is the structured presentation of one catalog entry, consumed by
// whatever renders the selection prompt.
type Option struct {
	DisplayName string `json:"display_name"`
	Key         string `json:"key"`
	Description string `json:"description"`
	TypeName    string `json:"type"`
	// Default marks the entry preselected when no choice is supplied.
	Default bool `json:"default"`
}

// Options returns the presentation of the whole catalog. Entry 0 is marked
// as the default selection.
func (c Catalog) Options() []Option {
	opts := make([]Option, 0, len(c))
	for i, p := range c {
		opts = append(opts, Option{
			DisplayName: p.DisplayName,
			Key:         p.Key,
			Description: p.Description,
			TypeName:    p.TypeName,
			Default:     i == 0,
		})
	}
	return opts
}
