package profile

import (
	"reflect"
	"testing"

	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/spawner"
)

func nopFactory(env spawner.Env, config map[string]any) (spawner.Spawner, error) {
	return nil, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("local", nopFactory); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	factory, err := r.Lookup("local")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if factory == nil {
		t.Fatal("Lookup returned nil factory")
	}
}

func TestLookupUnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nope")
	if !errors.Is(err, errors.ErrUnknownSpawnerType) {
		t.Errorf("expected ErrUnknownSpawnerType, got %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("local", nopFactory); err != nil {
		t.Fatal(err)
	}
	err := r.Register("local", nopFactory)
	var verr *errors.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError on duplicate, got %v", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("", nopFactory); err == nil {
		t.Error("empty type name should be rejected")
	}
	if err := r.Register("local", nil); err == nil {
		t.Error("nil factory should be rejected")
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(name, nopFactory); err != nil {
			t.Fatal(err)
		}
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("Names not sorted: %v", got)
	}
}
