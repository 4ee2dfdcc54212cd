package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hubwrap/hubwrap/internal/errors"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a session's server",
	Long: `Stop the server belonging to a session. The child spawner is
reconstructed from persisted state, told to stop, and the session's spawner
state is cleared once the server is down.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().String("session", "", "session ID (required)")
	stopCmd.Flags().Bool("force", false, "kill immediately instead of stopping gracefully")
	_ = stopCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	sessionID, _ := cmd.Flags().GetString("session")
	force, _ := cmd.Flags().GetBool("force")

	catalog, err := a.loadCatalog()
	if err != nil {
		return err
	}
	sup, err := a.restoreSupervisor(sessionID, catalog)
	if err != nil {
		return err
	}

	// Allow the graceful window plus escalation to finish.
	stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Spawner.HTTPTimeout()+30*time.Second)
	defer cancel()
	if _, err := sup.Stop(ctx, force).Await(stopCtx); err != nil {
		return errors.Wrap(err, "failed to stop server")
	}

	sup.ClearState()
	if err := a.store.ClearState(ctx, sessionID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "session %s stopped\n", sessionID)
	return nil
}
