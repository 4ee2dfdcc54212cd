package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show persisted session state",
	Long: `Without --session, list all known sessions. With --session, print
the full session record as JSON, including the supervisor's persisted state
mapping.`,
	RunE: runState,
}

func init() {
	stateCmd.Flags().String("session", "", "session ID to inspect")
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID != "" {
		rec, err := a.store.LoadRecord(ctx, sessionID)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	records, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tUSER\tPROFILE\tUPDATED")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.ID, rec.User, rec.Profile, rec.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
