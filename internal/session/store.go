package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/spawner"
)

// recordFileName is the session record file within a session directory.
const recordFileName = "session.json"

// FileStore stores session records as JSON files, one directory per session.
// It implements spawner.StateStore, so a supervisor's persisted state rides
// inside the session record.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a FileStore rooted at baseDir, creating the directory
// if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create sessions directory")
	}
	return &FileStore{baseDir: baseDir}, nil
}

// BaseDir returns the root directory of this store.
func (fs *FileStore) BaseDir() string { return fs.baseDir }

// SessionDir returns the storage directory for a session.
func (fs *FileStore) SessionDir(sessionID string) string {
	return filepath.Join(fs.baseDir, sessionID)
}

func (fs *FileStore) recordPath(sessionID string) string {
	return filepath.Join(fs.SessionDir(sessionID), recordFileName)
}

// SaveRecord persists a session record atomically.
func (fs *FileStore) SaveRecord(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return errors.NewValidationError("session ID cannot be empty").WithField("id")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal session record")
	}

	dir := fs.SessionDir(rec.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}
	return atomicWriteFile(fs.recordPath(rec.ID), data, 0644)
}

// LoadRecord retrieves a session record by ID.
func (fs *FileStore) LoadRecord(ctx context.Context, sessionID string) (*Record, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.loadRecordLocked(sessionID)
}

func (fs *FileStore) loadRecordLocked(sessionID string) (*Record, error) {
	data, err := os.ReadFile(fs.recordPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("session", sessionID).WithCause(errors.ErrStateNotFound)
		}
		return nil, errors.Wrap(err, "failed to read session record")
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(errors.ErrStateCorrupted, "session %s: %v", sessionID, err)
	}
	if rec.ID != "" && rec.ID != sessionID {
		return nil, errors.Wrapf(errors.ErrStateCorrupted, "session ID mismatch: file says %s, expected %s", rec.ID, sessionID)
	}
	return &rec, nil
}

// DeleteRecord removes a session and everything stored under it.
func (fs *FileStore) DeleteRecord(ctx context.Context, sessionID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.SessionDir(sessionID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("session", sessionID)
		}
		return errors.Wrap(err, "failed to check session directory")
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(err, "failed to delete session directory")
	}
	return nil
}

// List returns all session records, sorted by creation time.
func (fs *FileStore) List(ctx context.Context) ([]*Record, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read sessions directory")
	}

	var records []*Record
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := fs.loadRecordLocked(entry.Name())
		if err != nil {
			// Corrupt or partial entries are skipped, not fatal.
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// SaveState implements spawner.StateStore. A record is created on first save
// if the session does not exist yet.
func (fs *FileStore) SaveState(ctx context.Context, sessionID string, state spawner.State) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, err := fs.loadRecordLocked(sessionID)
	if err != nil {
		if !errors.Is(err, errors.ErrStateNotFound) {
			return err
		}
		now := time.Now()
		rec = &Record{ID: sessionID, CreatedAt: now, UpdatedAt: now}
	}

	rec.State = state.Clone()
	if key := state.GetString(spawner.StateKeyProfile); key != "" {
		rec.Profile = key
	}
	rec.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal session record")
	}
	if err := os.MkdirAll(fs.SessionDir(sessionID), 0755); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}
	return atomicWriteFile(fs.recordPath(sessionID), data, 0644)
}

// LoadState implements spawner.StateStore.
func (fs *FileStore) LoadState(ctx context.Context, sessionID string) (spawner.State, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	rec, err := fs.loadRecordLocked(sessionID)
	if err != nil {
		return nil, err
	}
	if rec.State == nil {
		return spawner.State{}, nil
	}
	return rec.State.Clone(), nil
}

// ClearState implements spawner.StateStore. The session record survives with
// an empty state mapping.
func (fs *FileStore) ClearState(ctx context.Context, sessionID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, err := fs.loadRecordLocked(sessionID)
	if err != nil {
		if errors.Is(err, errors.ErrStateNotFound) {
			return nil
		}
		return err
	}

	rec.State = nil
	rec.Profile = ""
	rec.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal session record")
	}
	return atomicWriteFile(fs.recordPath(sessionID), data, 0644)
}

// atomicWriteFile writes data through a temp file and rename, so the target
// is never observed half-written.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return errors.Wrap(err, "failed to sync temp file")
	}
	if err := tmpFile.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return errors.Wrap(err, "failed to set permissions")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "failed to rename temp file")
	}

	success = true
	return nil
}
