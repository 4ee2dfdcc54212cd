package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hubwrap/hubwrap/internal/tui"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List available spawner profiles",
	Long: `List the profiles from the catalog file. The first entry is the
default used when no profile is chosen explicitly.

With --match, only profiles whose key or spawner type matches the glob
pattern are shown. With --pick, an interactive picker is shown instead and
the chosen profile key is printed to stdout.`,
	RunE: runProfiles,
}

func init() {
	profilesCmd.Flags().String("match", "", "glob pattern filtering by profile key or spawner type")
	profilesCmd.Flags().Bool("pick", false, "pick a profile interactively")
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	catalog, err := a.loadCatalog()
	if err != nil {
		return err
	}

	if pattern, _ := cmd.Flags().GetString("match"); pattern != "" {
		catalog, err = catalog.Filter(pattern)
		if err != nil {
			return err
		}
		if len(catalog) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "no profiles match %q\n", pattern)
			return nil
		}
	}

	if pick, _ := cmd.Flags().GetBool("pick"); pick {
		key, err := tui.Pick(catalog.Options(), a.cfg.TUI.Theme)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tTYPE\tDESCRIPTION")
	for i, p := range catalog {
		key := p.Key
		if i == 0 {
			key += " (default)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", key, p.DisplayName, p.TypeName, p.Description)
	}
	return w.Flush()
}
