package spawner

import (
	"encoding/json"

	"github.com/hubwrap/hubwrap/internal/errors"
)

// State is the serialized form of a spawner or supervisor: a JSON-encodable
// mapping the orchestrator stores verbatim and supplies back on restart.
type State map[string]any

// Keys used by the delegation layer inside persisted state. They match the
// original wire schema so stored blobs stay readable across implementations.
const (
	// StateKeyProfile holds the selected profile key.
	StateKeyProfile = "profile"
	// StateKeyChildConf holds the per-child configuration overrides.
	StateKeyChildConf = "child_conf"
	// StateKeyChildState holds the child spawner's own serialized state.
	StateKeyChildState = "child_state"
)

// Clone returns a shallow copy of the state. A nil State clones to an empty
// one so callers can mutate the result freely.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// GetString returns the string stored under key, or empty when absent or of
// another type.
func (s State) GetString(key string) string {
	v, ok := s[key].(string)
	if !ok {
		return ""
	}
	return v
}

// GetMap returns the nested mapping stored under key. JSON decoding produces
// map[string]any; a State value stored in-process is accepted too. Returns
// nil when absent.
func (s State) GetMap(key string) map[string]any {
	switch v := s[key].(type) {
	case map[string]any:
		return v
	case State:
		return v
	default:
		return nil
	}
}

// GetInt returns the integer stored under key. JSON decoding produces
// float64 for all numbers, so both forms are accepted. The second return
// value reports presence.
func (s State) GetInt(key string) (int, bool) {
	switch v := s[key].(type) {
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

// Encode serializes the state to JSON.
func (s State) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode state")
	}
	return data, nil
}

// DecodeState parses a JSON state blob. Invalid JSON maps to
// errors.ErrStateCorrupted so callers can match on it.
func DecodeState(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(errors.ErrStateCorrupted, "invalid state JSON: %v", err)
	}
	if s == nil {
		s = State{}
	}
	return s, nil
}
