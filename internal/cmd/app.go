package cmd

import (
	"context"
	"os"

	"github.com/spf13/viper"

	"github.com/hubwrap/hubwrap/internal/backend"
	"github.com/hubwrap/hubwrap/internal/config"
	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/logging"
	"github.com/hubwrap/hubwrap/internal/profile"
	"github.com/hubwrap/hubwrap/internal/session"
	"github.com/hubwrap/hubwrap/internal/spawner"
)

// app bundles the pieces every subcommand needs: loaded configuration, the
// logger, the session store, and the spawner type registry.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    *session.FileStore
	registry *profile.Registry
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(cfg.Paths.LogDir, cfg.Logging.Level)
		if err != nil {
			return nil, errors.Wrap(err, "failed to set up logging")
		}
	}

	store, err := session.NewFileStore(cfg.Paths.SessionsDir())
	if err != nil {
		logger.Close()
		return nil, err
	}

	registry := profile.NewRegistry()
	if err := backend.Register(registry, logger); err != nil {
		logger.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, store: store, registry: registry}, nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

// user resolves the owning user name: --user flag, then $USER.
func (a *app) user() string {
	if u := viper.GetString("user"); u != "" {
		return u
	}
	return os.Getenv("USER")
}

// loadCatalog reads and validates the profiles file.
func (a *app) loadCatalog() (profile.Catalog, error) {
	return profile.LoadCatalogFile(a.cfg.Profiles.ResolveProfilesFile())
}

// supervisor builds a ProfilesSpawner for a session, with the configured
// spawner defaults linked as live shared fields.
func (a *app) supervisor(sessionID string, catalog profile.Catalog) (*profile.ProfilesSpawner, error) {
	env := spawner.Env{
		User:      a.user(),
		SessionID: sessionID,
		Store:     a.store,
	}
	return profile.New(env, catalog, a.registry,
		profile.WithLogger(a.logger),
		profile.WithSharedField("ip", a.cfg.Spawner.IP),
		profile.WithSharedField("port", a.cfg.Spawner.Port),
		profile.WithSharedField("start_timeout", a.cfg.Spawner.StartTimeoutSeconds),
		profile.WithSharedField("http_timeout", a.cfg.Spawner.HTTPTimeoutSeconds),
	)
}

// restoreSupervisor builds a supervisor and replays a session's persisted
// state into it, reconstructing the child it was running.
func (a *app) restoreSupervisor(sessionID string, catalog profile.Catalog) (*profile.ProfilesSpawner, error) {
	sup, err := a.supervisor(sessionID, catalog)
	if err != nil {
		return nil, err
	}

	rec, err := a.store.LoadRecord(context.Background(), sessionID)
	if err != nil {
		return nil, err
	}
	if len(rec.State) == 0 {
		return nil, errors.Wrapf(errors.ErrStateNotFound, "session %s has no spawner state", sessionID)
	}
	if err := sup.LoadState(rec.State); err != nil {
		return nil, err
	}
	return sup, nil
}
