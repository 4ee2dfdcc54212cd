package spawner

import (
	"context"
	"sort"

	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/logging"
)

// WrapSpawner delegates the Spawner lifecycle to a child whose concrete type
// is chosen at runtime. The child is constructed lazily — not until Start or
// LoadState — so the type and configuration may be changed at any earlier
// point (for example by profile selection).
//
// The child slot is exclusively owned: it is filled at most once per
// WrapSpawner lifetime and released only by ClearState. A WrapSpawner is
// driven by a single session context; callers serialize access.
type WrapSpawner struct {
	env    Env
	logger *logging.Logger

	// typeName and resolver identify the child's concrete type. The type is
	// runtime-resolved code, never persisted; subclass layers install a
	// loadChildClass hook that re-derives typeName from persisted state.
	typeName string
	resolver Resolver

	// childConfig holds per-child configuration overrides, applied at
	// construction. Keys present here are excluded from live field links.
	childConfig map[string]any

	// childState caches the child's last-known serialized state.
	childState State

	// child is the lazily-constructed delegate. nil until ConstructChild.
	child Spawner

	// fields are the supervisor's shared live fields. linked holds the
	// subset propagated into the child, computed at construction.
	fields map[string]any
	linked map[string]bool

	// beforeConstruct runs at the top of ConstructChild, before the child
	// exists. The profile layer uses it to resolve the session's recorded
	// user choice into typeName/childConfig.
	beforeConstruct func() error

	// loadChildClass re-derives typeName/childConfig from persisted state.
	// Mandatory for recovery: without it LoadState cannot reconstruct the
	// child after a process restart.
	loadChildClass func(State) error
}

// WrapOption configures a WrapSpawner.
type WrapOption func(*WrapSpawner)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) WrapOption {
	return func(w *WrapSpawner) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithField declares a shared live field with its initial value. Fields whose
// names also appear in the child's OptionNames — and are not overridden by
// child config — are pushed into the child on every SetField.
func WithField(name string, value any) WrapOption {
	return func(w *WrapSpawner) {
		w.fields[name] = value
	}
}

// WithBeforeConstruct installs the pre-construction hook.
func WithBeforeConstruct(hook func() error) WrapOption {
	return func(w *WrapSpawner) {
		w.beforeConstruct = hook
	}
}

// WithLoadChildClass installs the state re-derivation hook.
func WithLoadChildClass(hook func(State) error) WrapOption {
	return func(w *WrapSpawner) {
		w.loadChildClass = hook
	}
}

// NewWrapSpawner creates a WrapSpawner with no child type configured. The
// type is set later through SetChildType (directly, or by a hook immediately
// before construction).
func NewWrapSpawner(env Env, resolver Resolver, opts ...WrapOption) *WrapSpawner {
	w := &WrapSpawner{
		env:         env,
		logger:      logging.NopLogger(),
		resolver:    resolver,
		childConfig: map[string]any{},
		childState:  State{},
		fields:      map[string]any{},
		linked:      map[string]bool{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetChildType selects the child's type name and configuration overrides.
// Reconfiguring after the child has been constructed has no effect on the
// already-built instance; ConstructChild is idempotent.
func (w *WrapSpawner) SetChildType(typeName string, config map[string]any) {
	w.typeName = typeName
	w.childConfig = map[string]any{}
	for k, v := range config {
		w.childConfig[k] = v
	}
}

// TypeName returns the currently selected child type name.
func (w *WrapSpawner) TypeName() string {
	return w.typeName
}

// ChildConfig returns the current per-child configuration overrides.
func (w *WrapSpawner) ChildConfig() map[string]any {
	return w.childConfig
}

// Child returns the constructed child spawner, or nil before construction.
func (w *WrapSpawner) Child() Spawner {
	return w.child
}

// Env returns the construction-time context.
func (w *WrapSpawner) Env() Env {
	return w.env
}

// ConstructChild builds the child spawner if it does not exist yet and
// returns it. This is the single entry point for child creation; every
// lifecycle operation routes through it.
//
// Construction clears the new child's state first — state inherited from the
// supervisor's own storage would be wrong for a different instance — then
// restores the cached child state, if any, through the child's own LoadState.
// Finally it computes the shared-field links.
func (w *WrapSpawner) ConstructChild() (Spawner, error) {
	if w.child != nil {
		return w.child, nil
	}

	if w.beforeConstruct != nil {
		if err := w.beforeConstruct(); err != nil {
			return nil, err
		}
	}

	if w.typeName == "" {
		return nil, errors.NewSpawnerError("no child type selected", errors.ErrUnknownSpawnerType).
			WithSession(w.env.SessionID)
	}

	factory, err := w.resolver(w.typeName)
	if err != nil {
		return nil, errors.NewSpawnerError("failed to resolve child type", err).
			WithType(w.typeName).
			WithSession(w.env.SessionID)
	}

	child, err := factory(w.env, w.childConfig)
	if err != nil {
		return nil, errors.NewSpawnerError("child construction failed", err).
			WithType(w.typeName).
			WithSession(w.env.SessionID)
	}

	child.ClearState()
	if len(w.childState) > 0 {
		if err := child.LoadState(w.childState); err != nil {
			return nil, errors.NewSpawnerError("failed to restore child state", err).
				WithType(w.typeName).
				WithSession(w.env.SessionID)
		}
	}

	w.child = child
	w.linkSharedFields()

	w.logger.Info("child spawner constructed",
		"spawner_type", w.typeName,
		"session_id", w.env.SessionID,
		"linked_fields", w.linkedFieldNames())

	return w.child, nil
}

// linkSharedFields computes the one-directional links: field names common to
// the supervisor and the child, excluding any present in the child config
// (those are per-child overrides, not shared live fields). Current values
// are pushed once at link time, matching directional-link semantics.
func (w *WrapSpawner) linkSharedFields() {
	w.linked = map[string]bool{}

	childOptions := map[string]bool{}
	for _, name := range w.child.OptionNames() {
		childOptions[name] = true
	}

	for name, value := range w.fields {
		if !childOptions[name] {
			continue
		}
		if _, overridden := w.childConfig[name]; overridden {
			continue
		}
		w.linked[name] = true
		if err := w.child.SetOption(name, value); err != nil {
			w.logger.Warn("initial field link push failed",
				"field", name,
				"error", err.Error())
		}
	}
}

// linkedFieldNames returns the linked field names in stable order.
func (w *WrapSpawner) linkedFieldNames() []string {
	names := make([]string, 0, len(w.linked))
	for name := range w.linked {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetField updates a shared live field. If the field is linked, the new
// value is pushed into the child; the reverse direction never happens, and
// the child's own fields stay independently settable.
func (w *WrapSpawner) SetField(name string, value any) {
	w.fields[name] = value
	if w.child == nil || !w.linked[name] {
		return
	}
	if err := w.child.SetOption(name, value); err != nil {
		w.logger.Warn("field link push failed",
			"field", name,
			"error", err.Error())
	}
}

// Field returns the supervisor's current value for a shared field.
func (w *WrapSpawner) Field(name string) (any, bool) {
	v, ok := w.fields[name]
	return v, ok
}

// FieldNames returns the declared shared field names in stable order.
func (w *WrapSpawner) FieldNames() []string {
	names := make([]string, 0, len(w.fields))
	for name := range w.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start ensures the child exists, runs its pre-start hook if it defines one,
// and forwards Start. The child's Future is returned unchanged; construction
// and hook failures surface synchronously.
func (w *WrapSpawner) Start(ctx context.Context) (*Future[*ConnInfo], error) {
	child, err := w.ConstructChild()
	if err != nil {
		return nil, err
	}

	if hooker, ok := child.(PreStartHooker); ok {
		if err := hooker.RunPreStartHook(ctx); err != nil {
			return nil, err
		}
	}

	return child.Start(ctx)
}

// Stop forwards to the child, or resolves immediately when no child exists —
// there is nothing to stop.
func (w *WrapSpawner) Stop(ctx context.Context, force bool) *Future[struct{}] {
	if w.child == nil {
		return Resolved(struct{}{})
	}
	return w.child.Stop(ctx, force)
}

// Poll forwards to the child, or resolves to the not-running sentinel when
// no child exists — a server that was never constructed cannot be running.
func (w *WrapSpawner) Poll(ctx context.Context) *Future[*Status] {
	if w.child == nil {
		return Resolved(NotRunning())
	}
	return w.child.Poll(ctx)
}

// Progress forwards the child's progress stream. Progress before
// construction is an invalid-state error: there is nothing to report on.
// Children that do not implement ProgressReporter get the same error as an
// unsupported capability.
func (w *WrapSpawner) Progress(ctx context.Context) (<-chan ProgressEvent, error) {
	if w.child == nil {
		return nil, errors.ErrNoChildSpawner
	}
	reporter, ok := w.child.(ProgressReporter)
	if !ok {
		return nil, errors.NewSpawnerError("spawner does not report progress", nil).
			WithType(w.typeName)
	}
	return reporter.Progress(ctx)
}

// GetState returns the supervisor's persisted mapping: the child config
// overrides and, when a child exists, its freshly captured state. Capturing
// also refreshes the cached child state.
func (w *WrapSpawner) GetState() State {
	state := State{
		StateKeyChildConf: w.childConfig,
	}
	if w.child != nil {
		w.childState = w.child.GetState()
		state[StateKeyChildState] = w.childState
	}
	return state
}

// LoadState is the mandatory recovery path after a process restart. It
// re-derives the child type through the loadChildClass hook, merges persisted
// config overrides, restores the cached child state, and constructs the
// child immediately.
func (w *WrapSpawner) LoadState(state State) error {
	if w.loadChildClass != nil {
		if err := w.loadChildClass(state); err != nil {
			return err
		}
	}

	for k, v := range state.GetMap(StateKeyChildConf) {
		w.childConfig[k] = v
	}

	w.childState = State{}
	for k, v := range state.GetMap(StateKeyChildState) {
		w.childState[k] = v
	}

	_, err := w.ConstructChild()
	return err
}

// ClearState ends the child's lifetime: the clear propagates to the child,
// the cached state and overrides are discarded, and the child slot is
// released. The instance is never reused after this call.
func (w *WrapSpawner) ClearState() {
	if w.child != nil {
		w.child.ClearState()
	}
	w.childState = State{}
	w.childConfig = map[string]any{}
	w.child = nil
	w.linked = map[string]bool{}
}
