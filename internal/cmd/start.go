package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/profile"
	"github.com/hubwrap/hubwrap/internal/session"
	"github.com/hubwrap/hubwrap/internal/spawner"
	"github.com/hubwrap/hubwrap/internal/tui"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a server for a profile",
	Long: `Start a single-user server. The profile determines the spawner type
and configuration; without --profile, the catalog's first entry is used.

A new session is created unless --session names an existing one, in which
case its persisted state is restored first. If that session's server is
still running its connection details are printed; otherwise the stale
state is cleared and a fresh server is started.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().String("profile", "", "profile key to start")
	startCmd.Flags().String("session", "", "existing session ID to resume")
	startCmd.Flags().Bool("pick", false, "pick the profile interactively")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	catalog, catalogClose, err := a.startCatalog()
	if err != nil {
		return err
	}
	defer catalogClose()

	profileKey, _ := cmd.Flags().GetString("profile")
	if pick, _ := cmd.Flags().GetBool("pick"); pick {
		profileKey, err = tui.Pick(catalog.Options(), a.cfg.TUI.Theme)
		if err != nil {
			return err
		}
	}

	sessionID, _ := cmd.Flags().GetString("session")
	resume := sessionID != ""
	if !resume {
		sessionID = session.NewID()
	}

	lock, err := a.store.AcquireLock(sessionID)
	if err != nil {
		return err
	}
	defer lock.Release()

	var sup *profile.ProfilesSpawner
	if resume {
		sup, err = a.restoreSupervisor(sessionID, catalog)
		if err != nil {
			return err
		}

		// A live server cannot be started twice; report it instead. A dead
		// one needs its state cleared before a fresh start.
		status, perr := sup.Poll(ctx).Await(ctx)
		if perr != nil {
			return perr
		}
		if status == nil {
			child := spawner.State(sup.GetState().GetMap(spawner.StateKeyChildState))
			port, _ := child.GetInt("port")
			fmt.Fprintf(cmd.OutOrStdout(), "session: %s\nprofile: %s\nurl:     http://%s:%d\n",
				sessionID, sup.ChildProfile(), child.GetString("ip"), port)
			return nil
		}
		if profileKey == "" {
			profileKey = sup.ChildProfile()
		}
		sup.ClearState()
		if err := a.store.ClearState(ctx, sessionID); err != nil {
			return err
		}
	} else {
		sup, err = a.supervisor(sessionID, catalog)
		if err != nil {
			return err
		}
	}

	// The recorded user choice is resolved when the child is built, not
	// when the flag was parsed.
	var formData map[string][]string
	if profileKey != "" {
		formData = map[string][]string{profile.FormKey: {profileKey}}
	}
	sup.SetUserOptions(sup.ParseUserChoice(formData))

	if _, err := sup.ConstructChild(); err != nil {
		return err
	}

	if events, perr := sup.Progress(ctx); perr == nil {
		go func() {
			for ev := range events {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", ev.Progress, ev.Message)
			}
		}()
	}

	fut, err := sup.Start(ctx)
	if err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, a.cfg.Spawner.StartTimeout())
	defer cancel()
	conn, err := fut.Await(startCtx)
	if err != nil {
		return errors.Wrap(err, "server failed to start")
	}

	rec, lerr := a.store.LoadRecord(ctx, sessionID)
	if lerr != nil {
		rec = session.NewRecord(a.user())
		rec.ID = sessionID
	}
	rec.Profile = sup.ChildProfile()
	if err := a.store.SaveRecord(ctx, rec); err != nil {
		return err
	}
	if err := a.store.SaveState(ctx, sessionID, sup.GetState()); err != nil {
		return err
	}

	url := conn.URL
	if url == "" {
		url = fmt.Sprintf("http://%s:%d", conn.IP, conn.Port)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session: %s\nprofile: %s\nurl:     %s\n",
		sessionID, sup.ChildProfile(), url)
	return nil
}

// startCatalog loads the profile catalog, through the hot-reloading watcher
// when enabled. The returned func releases the watcher.
func (a *app) startCatalog() (profile.Catalog, func(), error) {
	path := a.cfg.Profiles.ResolveProfilesFile()
	if !a.cfg.Profiles.Watch {
		catalog, err := profile.LoadCatalogFile(path)
		return catalog, func() {}, err
	}

	watcher, err := profile.NewWatcher(path, a.logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return watcher.Catalog(), func() { _ = watcher.Close() }, nil
}
