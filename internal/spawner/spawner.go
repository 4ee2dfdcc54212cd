// Package spawner provides the delegation core for single-user session
// backends. The Spawner interface abstracts the mechanism that starts, stops,
// and polls one user's server process; WrapSpawner owns a lazily-constructed
// child Spawner whose concrete type is chosen at runtime and forwards all
// lifecycle calls to it.
//
// Implementations must support state round-tripping: GetState returns a
// JSON-encodable mapping that, fed back through LoadState on a freshly
// constructed instance of the same type, reattaches it to the same underlying
// server.
package spawner

import (
	"context"
	"fmt"
)

// ConnInfo describes how to reach a started single-user server.
type ConnInfo struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
	URL  string `json:"url,omitempty"`
}

// Status reports the outcome of polling a spawner. By convention a nil
// *Status means the server is running; a non-nil Status carries the exit code
// of a server that is not running.
type Status struct {
	ExitCode int `json:"exit_code"`
}

// NotRunning is the sentinel poll result for a spawner that never started.
// The exit code matches the original delegation layer's convention.
func NotRunning() *Status {
	return &Status{ExitCode: 1}
}

// ProgressEvent is a single unit of incremental start progress.
type ProgressEvent struct {
	// Progress is a percentage in [0, 100].
	Progress int `json:"progress"`
	// Message is a human-readable description of the current phase.
	Message string `json:"message"`
}

// Spawner abstracts a backend that runs one user's server. The concrete
// implementation (local process, container, batch job) is chosen at runtime
// by the delegation layer.
//
// Lifecycle operations return Futures because they may take unbounded
// wall-clock time; a Spawner must not block the caller beyond what is needed
// to kick the work off. Errors from the underlying backend resolve the Future
// and are never translated.
type Spawner interface {
	// TypeName returns the registered type name of this spawner.
	TypeName() string

	// Start launches the user's server. A synchronous error indicates the
	// launch could not even begin (bad configuration, missing binary);
	// anything later resolves the Future.
	Start(ctx context.Context) (*Future[*ConnInfo], error)

	// Stop terminates the server. When force is true the spawner skips
	// graceful shutdown. Stop on a never-started spawner is a no-op.
	Stop(ctx context.Context, force bool) *Future[struct{}]

	// Poll checks whether the server is running. The Future resolves to nil
	// while running, or to a Status carrying the exit code otherwise.
	Poll(ctx context.Context) *Future[*Status]

	// OptionNames returns the configuration option names this spawner
	// accepts through SetOption. Used to compute shared-field links.
	OptionNames() []string

	// SetOption applies a single named configuration value. Returns an error
	// for unknown names or values of the wrong shape.
	SetOption(name string, value any) error

	// GetState returns the spawner's serialized state (for example a pid),
	// sufficient to reattach to the running server after a process restart.
	GetState() State

	// LoadState restores previously captured state.
	LoadState(state State) error

	// ClearState resets the spawner to its never-started condition.
	ClearState()
}

// PreStartHooker is an optional capability: a hook the delegation layer runs
// immediately before forwarding Start.
type PreStartHooker interface {
	RunPreStartHook(ctx context.Context) error
}

// ProgressReporter is an optional capability: incremental progress reporting
// during startup. Spawners that cannot report progress simply do not
// implement it.
type ProgressReporter interface {
	// Progress returns a channel of progress events. The channel is closed
	// when startup completes or fails.
	Progress(ctx context.Context) (<-chan ProgressEvent, error)
}

// StateStore is the persistence handle supplied by the orchestrator. The
// delegation layer never persists anything itself; it hands mappings to the
// store and receives them back verbatim on restart.
type StateStore interface {
	SaveState(ctx context.Context, sessionID string, state State) error
	LoadState(ctx context.Context, sessionID string) (State, error)
	ClearState(ctx context.Context, sessionID string) error
}

// Env carries the construction-time context the orchestrator supplies for
// every spawner: the owning user, the session identity, the persistence
// handle, and any authentication state the backend needs to inject into the
// user's server.
type Env struct {
	// User is the owning user's name.
	User string

	// SessionID identifies this user session across restarts.
	SessionID string

	// Store is the orchestrator's persistence handle. May be nil when the
	// orchestrator persists state itself.
	Store StateStore

	// AuthState holds session-authentication context (tokens, certificates)
	// passed through to the backend untouched.
	AuthState map[string]string

	// Extra holds arbitrary additional construction options.
	Extra map[string]any
}

// Factory constructs a concrete Spawner. The config mapping contains the
// per-profile overrides; its keys win over any live-linked shared field of
// the same name.
type Factory func(env Env, config map[string]any) (Spawner, error)

// Resolver maps a spawner type name to its Factory at construction time.
// The type itself is never persisted; only the name is, and the resolver
// re-derives the factory from whatever registry is live in this process.
type Resolver func(typeName string) (Factory, error)

// String implements fmt.Stringer for log output.
func (c *ConnInfo) String() string {
	if c == nil {
		return "<none>"
	}
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("%s:%d", c.IP, c.Port)
}
