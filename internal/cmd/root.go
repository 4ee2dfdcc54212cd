// Package cmd implements the hubwrap command line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hubwrap/hubwrap/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "hubwrap",
	Short: "Profile-based spawner supervisor",
	Long: `Hubwrap supervises single-user servers behind a stable lifecycle
interface. Administrators publish a catalog of named profiles, each mapping
to a spawner type plus configuration overrides; users pick a profile and
hubwrap builds, starts, and tracks the matching server.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/hubwrap/config.yaml)")
	rootCmd.PersistentFlags().String("user", "", "owning user name (default is $USER)")
	rootCmd.PersistentFlags().String("profiles-file", "", "profiles catalog file (overrides profiles.file)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("profiles.file", rootCmd.PersistentFlags().Lookup("profiles-file"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/hubwrap")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("HUBWRAP")
	// Replace dots with underscores for nested keys in env vars
	// e.g., HUBWRAP_SPAWNER_START_TIMEOUT_SECONDS for spawner.start_timeout_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
