// Package backend provides concrete Spawner implementations. The local
// spawner runs the user's server as a directly-managed OS process; it is the
// default catalog entry and the reference for what a Spawner implementation
// owes the delegation layer.
package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/logging"
	"github.com/hubwrap/hubwrap/internal/profile"
	"github.com/hubwrap/hubwrap/internal/spawner"
)

// TypeLocal is the registry name of the local process spawner.
const TypeLocal = "local"

// Register adds the built-in spawner types to a registry.
func Register(r *profile.Registry, logger *logging.Logger) error {
	return r.Register(TypeLocal, func(env spawner.Env, config map[string]any) (spawner.Spawner, error) {
		return NewLocal(env, config, logger)
	})
}

// LocalSpawner starts a single-user server as a child OS process. State is a
// pid plus connection details, enough to reattach after a restart of the
// supervising process.
type LocalSpawner struct {
	env    spawner.Env
	logger *logging.Logger

	mu sync.Mutex

	// options
	cmd          []string
	workdir      string
	ip           string
	port         int
	user         string
	startTimeout time.Duration
	httpTimeout  time.Duration

	// runtime state
	pid       int
	startedAt time.Time
	proc      *os.Process

	// exit tracking for processes started by this instance. Reattached
	// processes (LoadState) have no wait handle; Poll falls back to
	// signal 0 for those.
	exited   chan struct{}
	exitCode int

	progress chan spawner.ProgressEvent
}

// optionNames lists the configuration options a LocalSpawner accepts.
// start_timeout and http_timeout are given in seconds.
var optionNames = []string{
	"cmd", "workdir", "ip", "port", "user", "start_timeout", "http_timeout",
}

// NewLocal constructs a LocalSpawner with the given configuration overrides.
// Unknown option names are a construction failure.
func NewLocal(env spawner.Env, config map[string]any, logger *logging.Logger) (*LocalSpawner, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	s := &LocalSpawner{
		env:          env,
		logger:       logger.WithSpawner(TypeLocal).WithSession(env.SessionID),
		ip:           "127.0.0.1",
		user:         env.User,
		startTimeout: 60 * time.Second,
		httpTimeout:  30 * time.Second,
	}

	for name, value := range config {
		if err := s.SetOption(name, value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TypeName returns the registry name of this spawner.
func (s *LocalSpawner) TypeName() string { return TypeLocal }

// OptionNames returns the accepted configuration option names.
func (s *LocalSpawner) OptionNames() []string {
	names := make([]string, len(optionNames))
	copy(names, optionNames)
	return names
}

// SetOption applies a single named configuration value.
func (s *LocalSpawner) SetOption(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "cmd":
		cmd, err := toStringSlice(value)
		if err != nil {
			return errors.NewValidationError("cmd must be a list of strings").
				WithField(name).
				WithCause(err)
		}
		s.cmd = cmd
	case "workdir":
		str, ok := value.(string)
		if !ok {
			return errors.NewValidationError("workdir must be a string").WithField(name).WithValue(value)
		}
		s.workdir = str
	case "ip":
		str, ok := value.(string)
		if !ok {
			return errors.NewValidationError("ip must be a string").WithField(name).WithValue(value)
		}
		s.ip = str
	case "user":
		str, ok := value.(string)
		if !ok {
			return errors.NewValidationError("user must be a string").WithField(name).WithValue(value)
		}
		s.user = str
	case "port":
		n, ok := toInt(value)
		if !ok {
			return errors.NewValidationError("port must be an integer").WithField(name).WithValue(value)
		}
		s.port = n
	case "start_timeout":
		n, ok := toInt(value)
		if !ok {
			return errors.NewValidationError("start_timeout must be an integer").WithField(name).WithValue(value)
		}
		s.startTimeout = time.Duration(n) * time.Second
	case "http_timeout":
		n, ok := toInt(value)
		if !ok {
			return errors.NewValidationError("http_timeout must be an integer").WithField(name).WithValue(value)
		}
		s.httpTimeout = time.Duration(n) * time.Second
	default:
		return errors.NewValidationError("unknown option").WithField(name).WithValue(value)
	}
	return nil
}

// Option returns the current value of a named option. Used by tests and the
// CLI's state command.
func (s *LocalSpawner) Option(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "cmd":
		return s.cmd
	case "workdir":
		return s.workdir
	case "ip":
		return s.ip
	case "user":
		return s.user
	case "port":
		return s.port
	case "start_timeout":
		return int(s.startTimeout / time.Second)
	case "http_timeout":
		return int(s.httpTimeout / time.Second)
	default:
		return nil
	}
}

// RunPreStartHook prepares the process environment before Start: the working
// directory must exist.
func (s *LocalSpawner) RunPreStartHook(ctx context.Context) error {
	s.mu.Lock()
	workdir := s.workdir
	s.mu.Unlock()

	if workdir == "" {
		return nil
	}
	if err := os.MkdirAll(workdir, 0755); err != nil {
		return errors.Wrap(err, "failed to prepare working directory")
	}
	return nil
}

// Start launches the configured command. The synchronous error covers
// configuration problems and exec failure; the Future resolves once the
// process is up.
func (s *LocalSpawner) Start(ctx context.Context) (*spawner.Future[*spawner.ConnInfo], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pid != 0 {
		return nil, errors.Wrapf(errors.New("already started"), "pid %d", s.pid)
	}
	if len(s.cmd) == 0 {
		return nil, errors.NewValidationError("cmd is required").WithField("cmd")
	}

	cmd := exec.Command(s.cmd[0], s.cmd[1:]...)
	cmd.Dir = s.workdir
	cmd.Env = os.Environ()
	for k, v := range s.env.AuthState {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env,
		fmt.Sprintf("HUBWRAP_USER=%s", s.user),
		fmt.Sprintf("HUBWRAP_SESSION_ID=%s", s.env.SessionID),
	)

	s.emitProgress(10, "starting server process")

	if err := cmd.Start(); err != nil {
		s.emitProgress(100, "server failed to start")
		return nil, errors.NewSpawnerError("failed to start server process", err).
			WithType(TypeLocal).
			WithSession(s.env.SessionID)
	}

	s.proc = cmd.Process
	s.pid = cmd.Process.Pid
	s.startedAt = time.Now()
	s.exited = make(chan struct{})
	exited := s.exited

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		s.exitCode = exitCodeOf(err)
		s.mu.Unlock()
		close(exited)
	}()

	conn := &spawner.ConnInfo{IP: s.ip, Port: s.port}
	pid := s.pid
	progress := s.progress

	s.logger.Info("server process started", "pid", pid)
	s.emitProgress(50, "server process running")

	return spawner.Go(func() (*spawner.ConnInfo, error) {
		// The process counts as started once it survives its first moment;
		// an immediate exit is a start failure.
		select {
		case <-exited:
			s.mu.Lock()
			code := s.exitCode
			s.mu.Unlock()
			emitTo(progress, 100, "server exited during startup")
			return nil, errors.Wrapf(errors.ErrSpawnerNotRunning, "server exited immediately with code %d", code)
		case <-time.After(100 * time.Millisecond):
			emitTo(progress, 100, "server ready")
			return conn, nil
		}
	}), nil
}

// Stop terminates the server. Graceful stop sends SIGTERM and escalates to
// SIGKILL after http_timeout; force skips straight to SIGKILL. Stopping a
// never-started spawner resolves immediately.
func (s *LocalSpawner) Stop(ctx context.Context, force bool) *spawner.Future[struct{}] {
	s.mu.Lock()
	pid := s.pid
	proc := s.proc
	exited := s.exited
	grace := s.httpTimeout
	s.mu.Unlock()

	if pid == 0 {
		return spawner.Resolved(struct{}{})
	}

	return spawner.Go(func() (struct{}, error) {
		if proc == nil {
			// Reattached after restart: no wait handle, signal by pid.
			var err error
			proc, err = os.FindProcess(pid)
			if err != nil {
				return struct{}{}, err
			}
		}

		sig := syscall.SIGTERM
		if force {
			sig = syscall.SIGKILL
		}
		if err := proc.Signal(sig); err != nil {
			// Already gone counts as stopped.
			if !processAlive(pid) {
				s.finishStop()
				return struct{}{}, nil
			}
			return struct{}{}, errors.Wrap(err, "failed to signal server process")
		}

		if !force && exited != nil {
			select {
			case <-exited:
			case <-time.After(grace):
				_ = proc.Signal(syscall.SIGKILL)
				<-exited
			}
		} else {
			// Without a wait handle, poll for disappearance.
			deadline := time.Now().Add(grace)
			for processAlive(pid) && time.Now().Before(deadline) {
				time.Sleep(100 * time.Millisecond)
			}
			if processAlive(pid) {
				_ = proc.Signal(syscall.SIGKILL)
			}
		}

		s.finishStop()
		s.logger.Info("server process stopped", "pid", pid, "force", force)
		return struct{}{}, nil
	})
}

func (s *LocalSpawner) finishStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pid = 0
	s.proc = nil
}

// Poll reports whether the server process is running: nil while running, an
// exit Status otherwise. The check is cheap, so the Future resolves
// synchronously.
func (s *LocalSpawner) Poll(ctx context.Context) *spawner.Future[*spawner.Status] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pid == 0 {
		return spawner.Resolved(spawner.NotRunning())
	}

	if s.exited != nil {
		select {
		case <-s.exited:
			return spawner.Resolved(&spawner.Status{ExitCode: s.exitCode})
		default:
			return spawner.Resolved[*spawner.Status](nil)
		}
	}

	// Reattached process: liveness via signal 0.
	if processAlive(s.pid) {
		return spawner.Resolved[*spawner.Status](nil)
	}
	return spawner.Resolved(spawner.NotRunning())
}

// Progress returns the startup progress stream.
func (s *LocalSpawner) Progress(ctx context.Context) (<-chan spawner.ProgressEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.progress == nil {
		s.progress = make(chan spawner.ProgressEvent, 8)
	}
	return s.progress, nil
}

// emitProgress pushes an event to the subscriber, if any. Callers hold s.mu.
func (s *LocalSpawner) emitProgress(pct int, msg string) {
	emitTo(s.progress, pct, msg)
}

// emitTo sends without blocking; a slow consumer loses events rather than
// stalling the lifecycle.
func emitTo(ch chan spawner.ProgressEvent, pct int, msg string) {
	if ch == nil {
		return
	}
	select {
	case ch <- spawner.ProgressEvent{Progress: pct, Message: msg}:
	default:
	}
}

// GetState captures the pid and connection details needed to reattach.
func (s *LocalSpawner) GetState() spawner.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := spawner.State{}
	if s.pid != 0 {
		state["pid"] = s.pid
		state["ip"] = s.ip
		state["port"] = s.port
		state["started_at"] = s.startedAt.Format(time.RFC3339)
	}
	return state
}

// LoadState reattaches to a previously started process by pid. The process
// is not re-parented; Poll and Stop fall back to signal-based checks.
func (s *LocalSpawner) LoadState(state spawner.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pid, ok := state.GetInt("pid")
	if !ok {
		return nil
	}
	s.pid = pid
	if ip := state.GetString("ip"); ip != "" {
		s.ip = ip
	}
	if port, ok := state.GetInt("port"); ok {
		s.port = port
	}
	if raw := state.GetString("started_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			s.startedAt = t
		}
	}
	return nil
}

// ClearState resets the spawner to its never-started condition.
func (s *LocalSpawner) ClearState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pid = 0
	s.proc = nil
	s.exited = nil
	s.exitCode = 0
	s.startedAt = time.Time{}
}

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// exitCodeOf extracts an exit code from cmd.Wait's error.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// toStringSlice converts []string, []any (YAML/JSON decoding), or a single
// string into a command argv.
func toStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %v is not a string", item)
			}
			out = append(out, str)
		}
		return out, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}

// toInt accepts the integer encodings produced by YAML, JSON, and in-process
// configuration.
func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
