package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Check whether a session's server is running",
	RunE:  runPoll,
}

func init() {
	pollCmd.Flags().String("session", "", "session ID (required)")
	_ = pollCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	sessionID, _ := cmd.Flags().GetString("session")

	catalog, err := a.loadCatalog()
	if err != nil {
		return err
	}
	sup, err := a.restoreSupervisor(sessionID, catalog)
	if err != nil {
		return err
	}

	status, err := sup.Poll(ctx).Await(ctx)
	if err != nil {
		return err
	}
	if status == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "running")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "not running (exit code %d)\n", status.ExitCode)
	return nil
}
