package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hubwrap/hubwrap/internal/errors"
)

// lockFileName is the lock file within a session directory.
const lockFileName = "session.lock"

// ErrAlreadyLocked indicates another live process holds the session lock.
var ErrAlreadyLocked = errors.New("session is locked by another process")

// Lock records who holds a session lock.
type Lock struct {
	SessionID  string    `json:"session_id"`
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Handle is a held session lock. Release it when done.
type Handle struct {
	lock *Lock
	path string
}

// AcquireLock takes an exclusive lock on a session. A lock left behind by a
// dead process is treated as stale and replaced.
func (fs *FileStore) AcquireLock(sessionID string) (*Handle, error) {
	dir := fs.SessionDir(sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create session directory")
	}

	path := filepath.Join(dir, lockFileName)

	if existing, err := readLock(path); err == nil {
		if processAlive(existing.PID) {
			return nil, errors.Wrapf(ErrAlreadyLocked, "held by pid %d on %s", existing.PID, existing.Hostname)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to remove stale lock")
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	lock := &Lock{
		SessionID:  sessionID,
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal lock")
	}

	// O_EXCL closes the race between the stale check and our write.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrAlreadyLocked
		}
		return nil, errors.Wrap(err, "failed to create lock file")
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "failed to write lock file")
	}

	return &Handle{lock: lock, path: path}, nil
}

// Release drops the lock. Releasing a lock no longer held is not an error.
func (h *Handle) Release() error {
	existing, err := readLock(h.path)
	if err != nil {
		return nil
	}
	if existing.PID != h.lock.PID {
		return nil
	}
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to release lock")
	}
	return nil
}

// Info returns the lock's holder details.
func (h *Handle) Info() *Lock { return h.lock }

func readLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(err, "failed to parse lock file")
	}
	return &lock, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
