package profile

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/logging"
)

// catalogFile is the on-disk schema of a profiles file.
type catalogFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadCatalogFile reads and validates a catalog from a YAML profiles file.
func LoadCatalogFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewProfileError("failed to read profiles file", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewProfileError("failed to parse profiles file", err)
	}

	catalog := Catalog(f.Profiles)
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Watcher hot-reloads a profiles file: on every change the file is re-parsed
// and, if valid, swapped in atomically. Invalid edits are logged and the
// previous catalog stays in effect. Already-built children are never
// affected — profile resolution is construct-time only.
type Watcher struct {
	path     string
	logger   *logging.Logger
	onChange func(Catalog)

	mu      sync.RWMutex
	catalog Catalog

	fw     *fsnotify.Watcher
	done   chan struct{}
	closed sync.Once
}

// NewWatcher loads the catalog from path and begins watching for changes.
// onChange, if non-nil, runs after every successful reload.
func NewWatcher(path string, logger *logging.Logger, onChange func(Catalog)) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	catalog, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create profiles watcher")
	}

	// Watch the directory, not the file: editors typically replace the file
	// by rename, which drops a direct file watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, errors.Wrap(err, "failed to watch profiles directory")
	}

	w := &Watcher{
		path:     path,
		logger:   logger,
		onChange: onChange,
		catalog:  catalog,
		fw:       fw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Catalog returns the current catalog snapshot.
func (w *Watcher) Catalog() Catalog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.catalog
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closed.Do(func() {
		close(w.done)
		err = w.fw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("profiles watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) reload() {
	catalog, err := LoadCatalogFile(w.path)
	if err != nil {
		w.logger.Warn("profiles file changed but failed to load, keeping previous catalog",
			"path", w.path,
			"error", err.Error())
		return
	}

	w.mu.Lock()
	w.catalog = catalog
	w.mu.Unlock()

	w.logger.Info("profiles catalog reloaded",
		"path", w.path,
		"profiles", len(catalog))

	if w.onChange != nil {
		w.onChange(catalog)
	}
}
