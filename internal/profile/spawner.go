package profile

import (
	"github.com/hubwrap/hubwrap/internal/logging"
	"github.com/hubwrap/hubwrap/internal/spawner"
)

// FormKey is the field name under which the chosen profile key arrives in
// submitted form data.
const FormKey = "profile"

// ProfilesSpawner extends WrapSpawner with a profile catalog: the user picks
// a profile, the selection resolves to a spawner type plus configuration,
// and only the profile key is persisted — the type is re-derived from the
// live catalog on every construction.
type ProfilesSpawner struct {
	*spawner.WrapSpawner

	catalog  Catalog
	registry *Registry
	logger   *logging.Logger

	// childProfile is the profile key chosen for this session. Persisted
	// under the "profile" state key.
	childProfile string

	// appliedProfile tracks which profile's type/config are currently in
	// effect, so re-selecting the same key does not discard configuration
	// overrides merged from persisted state.
	appliedProfile string

	// userOptions is the session's recorded user choice, set by the
	// orchestrator before Start.
	userOptions map[string]any

	// sharedFields collects field declarations until the underlying
	// WrapSpawner exists.
	sharedFields []fieldDecl
}

type fieldDecl struct {
	name  string
	value any
}

// SpawnerOption configures a ProfilesSpawner.
type SpawnerOption func(*ProfilesSpawner)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) SpawnerOption {
	return func(p *ProfilesSpawner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSharedField declares a shared live field with its initial value on the
// underlying supervisor.
func WithSharedField(name string, value any) SpawnerOption {
	return func(p *ProfilesSpawner) {
		p.sharedFields = append(p.sharedFields, fieldDecl{name: name, value: value})
	}
}

// New creates a ProfilesSpawner for one user session. The catalog must pass
// validation; its first entry becomes the default selection.
func New(env spawner.Env, catalog Catalog, registry *Registry, opts ...SpawnerOption) (*ProfilesSpawner, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	p := &ProfilesSpawner{
		catalog:  catalog,
		registry: registry,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	wrapOpts := []spawner.WrapOption{
		spawner.WithLogger(p.logger),
		spawner.WithBeforeConstruct(p.resolveUserChoice),
		spawner.WithLoadChildClass(p.loadChildClass),
	}
	for _, f := range p.sharedFields {
		wrapOpts = append(wrapOpts, spawner.WithField(f.name, f.value))
	}

	p.WrapSpawner = spawner.NewWrapSpawner(env, registry.Lookup, wrapOpts...)

	// The first catalog entry is the default configuration until a
	// selection replaces it.
	def := catalog.Default()
	p.WrapSpawner.SetChildType(def.TypeName, def.Config)
	p.appliedProfile = def.Key

	return p, nil
}

// SelectProfile resolves a profile key to its type and configuration. A key
// missing from the catalog leaves the current configuration untouched — the
// prior or default selection silently stays in effect. This mirrors the
// behavior of the system this layer is compatible with; treat it as a
// compatibility constraint, not robustness to rely on.
func (p *ProfilesSpawner) SelectProfile(key string) {
	prof, ok := p.catalog.Find(key)
	if !ok {
		p.logger.Warn("profile not in catalog, keeping current configuration",
			"profile", key,
			"current_type", p.TypeName())
		return
	}
	if key == p.appliedProfile && p.TypeName() == prof.TypeName {
		return
	}

	p.WrapSpawner.SetChildType(prof.TypeName, prof.Config)
	p.appliedProfile = key

	p.logger.Debug("profile selected",
		"profile", key,
		"spawner_type", prof.TypeName)
}

// SetUserOptions records the user's submitted choice for this session,
// typically the mapping returned by ParseUserChoice.
func (p *ProfilesSpawner) SetUserOptions(options map[string]any) {
	p.userOptions = options
}

// resolveUserChoice couples the session's recorded user choice to what gets
// built. It runs immediately before child construction, so later catalog
// edits never retroactively affect an already-built child.
func (p *ProfilesSpawner) resolveUserChoice() error {
	if choice, ok := p.userOptions[FormKey].(string); ok {
		p.childProfile = choice
	}
	p.SelectProfile(p.childProfile)
	return nil
}

// loadChildClass re-derives the child type from persisted state: the stable
// profile key maps back to a concrete type through the live catalog.
func (p *ProfilesSpawner) loadChildClass(state spawner.State) error {
	p.childProfile = state.GetString(spawner.StateKeyProfile)
	p.SelectProfile(p.childProfile)
	return nil
}

// ChildProfile returns the profile key chosen for this session.
func (p *ProfilesSpawner) ChildProfile() string {
	return p.childProfile
}

// OptionsPresentation returns the catalog as structured data suitable for
// rendering a selection prompt. Entry 0 is the default selection.
func (p *ProfilesSpawner) OptionsPresentation() []Option {
	return p.catalog.Options()
}

// ParseUserChoice extracts the chosen profile key from raw form data
// (field name to list-of-values, the usual form submission encoding).
// Absent a submitted choice, the first catalog entry's key is used.
func (p *ProfilesSpawner) ParseUserChoice(formData map[string][]string) map[string]any {
	key := p.catalog.Default().Key
	if values, ok := formData[FormKey]; ok && len(values) > 0 {
		key = values[0]
	}
	return map[string]any{FormKey: key}
}

// GetState adds the selected profile key to the supervisor's persisted state.
func (p *ProfilesSpawner) GetState() spawner.State {
	state := p.WrapSpawner.GetState()
	state[spawner.StateKeyProfile] = p.childProfile
	return state
}

// ClearState resets the profile selection along with the supervisor's state.
// appliedProfile is reset too: the supervisor has dropped the child config, so
// a later selection of the same key must re-apply it from the catalog.
func (p *ProfilesSpawner) ClearState() {
	p.WrapSpawner.ClearState()
	p.childProfile = ""
	p.appliedProfile = ""
}
