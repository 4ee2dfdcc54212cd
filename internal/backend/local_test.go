package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/profile"
	"github.com/hubwrap/hubwrap/internal/spawner"
)

func testEnv() spawner.Env {
	return spawner.Env{User: "alice", SessionID: "sess-1"}
}

func newLocal(t *testing.T, config map[string]any) *LocalSpawner {
	t.Helper()
	s, err := NewLocal(testEnv(), config, nil)
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	return s
}

func TestRegisterAddsLocalType(t *testing.T) {
	r := profile.NewRegistry()
	if err := Register(r, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	factory, err := r.Lookup(TypeLocal)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	s, err := factory(testEnv(), map[string]any{"start_timeout": 15})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if s.TypeName() != TypeLocal {
		t.Errorf("unexpected type name %s", s.TypeName())
	}
}

func TestConfigOverrides(t *testing.T) {
	s := newLocal(t, map[string]any{
		"cmd":           []any{"sleep", "60"},
		"start_timeout": float64(15), // JSON-decoded numbers arrive as float64
		"port":          9000,
		"ip":            "0.0.0.0",
	})

	if v := s.Option("start_timeout"); v != 15 {
		t.Errorf("start_timeout = %v", v)
	}
	if v := s.Option("port"); v != 9000 {
		t.Errorf("port = %v", v)
	}
	if v := s.Option("ip"); v != "0.0.0.0" {
		t.Errorf("ip = %v", v)
	}
	cmd, ok := s.Option("cmd").([]string)
	if !ok || len(cmd) != 2 || cmd[0] != "sleep" {
		t.Errorf("cmd = %v", s.Option("cmd"))
	}
}

func TestUnknownOptionIsConstructionFailure(t *testing.T) {
	_, err := NewLocal(testEnv(), map[string]any{"bogus": 1}, nil)
	var verr *errors.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestBadOptionTypes(t *testing.T) {
	for name, value := range map[string]any{
		"cmd":           42,
		"port":          "eighty",
		"start_timeout": "soon",
		"workdir":       7,
	} {
		if _, err := NewLocal(testEnv(), map[string]any{name: value}, nil); err == nil {
			t.Errorf("option %s should reject %v", name, value)
		}
	}
}

func TestCmdAcceptsSingleString(t *testing.T) {
	s := newLocal(t, map[string]any{"cmd": "sleep"})
	cmd, _ := s.Option("cmd").([]string)
	if len(cmd) != 1 || cmd[0] != "sleep" {
		t.Errorf("cmd = %v", cmd)
	}
}

func TestPollBeforeStart(t *testing.T) {
	s := newLocal(t, nil)
	status, err := s.Poll(context.Background()).Await(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status == nil || status.ExitCode != 1 {
		t.Errorf("expected not-running sentinel, got %+v", status)
	}
}

func TestStopBeforeStart(t *testing.T) {
	s := newLocal(t, nil)
	f := s.Stop(context.Background(), false)
	if !f.IsResolved() {
		t.Error("Stop with nothing running should resolve immediately")
	}
}

func TestStartRequiresCmd(t *testing.T) {
	s := newLocal(t, nil)
	if _, err := s.Start(context.Background()); err == nil {
		t.Error("Start without cmd should fail synchronously")
	}
}

func TestStartPollStopLifecycle(t *testing.T) {
	s := newLocal(t, map[string]any{
		"cmd":           []string{"sleep", "60"},
		"start_timeout": 15,
		"port":          8080,
	})
	ctx := context.Background()

	events, err := s.Progress(ctx)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}

	fut, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn, err := fut.Await(ctx)
	if err != nil {
		t.Fatalf("start future failed: %v", err)
	}
	if conn.Port != 8080 {
		t.Errorf("unexpected conn: %+v", conn)
	}

	select {
	case ev := <-events:
		if ev.Progress <= 0 {
			t.Errorf("unexpected progress event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Error("no progress events emitted")
	}

	status, err := s.Poll(ctx).Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status != nil {
		t.Errorf("running process should poll nil, got %+v", status)
	}

	state := s.GetState()
	if pid, ok := state.GetInt("pid"); !ok || pid <= 0 {
		t.Errorf("state missing pid: %v", state)
	}

	if _, err := s.Stop(ctx, false).Await(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	status, err = s.Poll(ctx).Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status == nil {
		t.Error("stopped process should not poll as running")
	}
}

func TestStartRejectsSecondStart(t *testing.T) {
	s := newLocal(t, map[string]any{"cmd": []string{"sleep", "60"}})
	ctx := context.Background()

	fut, err := s.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fut.Await(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _, _ = s.Stop(ctx, true).Await(ctx) }()

	if _, err := s.Start(ctx); err == nil {
		t.Error("second Start must fail")
	}
}

func TestImmediateExitIsStartFailure(t *testing.T) {
	s := newLocal(t, map[string]any{"cmd": []string{"false"}})
	ctx := context.Background()

	fut, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("exec itself should succeed: %v", err)
	}
	if _, err := fut.Await(ctx); !errors.Is(err, errors.ErrSpawnerNotRunning) {
		t.Errorf("expected ErrSpawnerNotRunning, got %v", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := newLocal(t, map[string]any{"cmd": []string{"sleep", "60"}, "port": 9001})
	ctx := context.Background()

	fut, err := s.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fut.Await(ctx); err != nil {
		t.Fatal(err)
	}
	state := s.GetState()

	restored := newLocal(t, nil)
	if err := restored.LoadState(state); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	// The reattached instance has no wait handle; liveness comes from
	// signal 0 against the recorded pid.
	status, err := restored.Poll(ctx).Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status != nil {
		t.Errorf("reattached live process should poll nil, got %+v", status)
	}
	if restored.Option("port") != 9001 {
		t.Errorf("port not restored: %v", restored.Option("port"))
	}

	if _, err := restored.Stop(ctx, true).Await(ctx); err != nil {
		t.Fatalf("Stop via reattach failed: %v", err)
	}
	_, _ = s.Stop(ctx, true).Await(ctx)
}

func TestClearStateResets(t *testing.T) {
	s := newLocal(t, nil)
	if err := s.LoadState(spawner.State{"pid": 12345, "port": 80}); err != nil {
		t.Fatal(err)
	}
	s.ClearState()
	if len(s.GetState()) != 0 {
		t.Errorf("state survived clear: %v", s.GetState())
	}
}

func TestLoadStateWithoutPidIsNoop(t *testing.T) {
	s := newLocal(t, nil)
	if err := s.LoadState(spawner.State{"port": 80}); err != nil {
		t.Fatal(err)
	}
	if len(s.GetState()) != 0 {
		t.Errorf("pid-less state should leave spawner unstarted: %v", s.GetState())
	}
}

func TestPreStartHookCreatesWorkdir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "workdir")
	s := newLocal(t, map[string]any{"workdir": dir})

	if err := s.RunPreStartHook(context.Background()); err != nil {
		t.Fatalf("RunPreStartHook failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("workdir not created: %v", err)
	}
}
