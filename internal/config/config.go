package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete hubwrap configuration
type Config struct {
	Profiles ProfilesConfig `mapstructure:"profiles"`
	Spawner  SpawnerConfig  `mapstructure:"spawner"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Paths    PathsConfig    `mapstructure:"paths"`
	TUI      TUIConfig      `mapstructure:"tui"`
}

// ProfilesConfig controls the profile catalog
type ProfilesConfig struct {
	// File is the path to the YAML profiles catalog.
	// If empty, defaults to "profiles.yaml" in the config directory.
	File string `mapstructure:"file"`
	// Watch enables hot-reloading of the profiles file (default: true).
	// Reloads never affect already-built children.
	Watch bool `mapstructure:"watch"`
}

// SpawnerConfig controls spawner behavior
type SpawnerConfig struct {
	// StartTimeoutSeconds is the default time allowed for a server to come up
	StartTimeoutSeconds int `mapstructure:"start_timeout_seconds"`
	// HTTPTimeoutSeconds is the default graceful-stop window before SIGKILL
	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds"`
	// IP is the default address servers bind to
	IP string `mapstructure:"ip"`
	// Port is the default server port (0 = let the server choose)
	Port int `mapstructure:"port"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// PathsConfig controls where hubwrap stores data
type PathsConfig struct {
	// DataDir is where session records are stored.
	// If empty, defaults to ~/.local/share/hubwrap.
	// Supports ~ for home directory expansion.
	DataDir string `mapstructure:"data_dir"`
	// LogDir is where log files are written. Empty means log to stderr.
	LogDir string `mapstructure:"log_dir"`
}

// TUIConfig controls the profile picker appearance
type TUIConfig struct {
	// Theme is the color theme: "default", "monokai", "dracula", "nord"
	Theme string `mapstructure:"theme"`
}

// StartTimeout returns the default start timeout as a time.Duration
func (c *SpawnerConfig) StartTimeout() time.Duration {
	return time.Duration(c.StartTimeoutSeconds) * time.Second
}

// HTTPTimeout returns the default graceful-stop window as a time.Duration
func (c *SpawnerConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// ResolveDataDir returns the resolved session data directory.
// If DataDir starts with ~, it expands to the user's home directory.
func (p *PathsConfig) ResolveDataDir() string {
	if p.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ".hubwrap"
		}
		return filepath.Join(home, ".local", "share", "hubwrap")
	}
	return expandHome(p.DataDir)
}

// SessionsDir returns the directory where session records live.
func (p *PathsConfig) SessionsDir() string {
	return filepath.Join(p.ResolveDataDir(), "sessions")
}

// ResolveProfilesFile returns the path to the profiles catalog file.
func (c *ProfilesConfig) ResolveProfilesFile() string {
	if c.File == "" {
		return filepath.Join(ConfigDir(), "profiles.yaml")
	}
	return expandHome(c.File)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Profiles: ProfilesConfig{
			File:  "", // Empty means use default: <config dir>/profiles.yaml
			Watch: true,
		},
		Spawner: SpawnerConfig{
			StartTimeoutSeconds: 60,
			HTTPTimeoutSeconds:  30,
			IP:                  "127.0.0.1",
			Port:                0,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Paths: PathsConfig{
			DataDir: "", // Empty means use default: ~/.local/share/hubwrap
			LogDir:  "",
		},
		TUI: TUIConfig{
			Theme: "default",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Profiles defaults
	viper.SetDefault("profiles.file", defaults.Profiles.File)
	viper.SetDefault("profiles.watch", defaults.Profiles.Watch)

	// Spawner defaults
	viper.SetDefault("spawner.start_timeout_seconds", defaults.Spawner.StartTimeoutSeconds)
	viper.SetDefault("spawner.http_timeout_seconds", defaults.Spawner.HTTPTimeoutSeconds)
	viper.SetDefault("spawner.ip", defaults.Spawner.IP)
	viper.SetDefault("spawner.port", defaults.Spawner.Port)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// Paths defaults
	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
	viper.SetDefault("paths.log_dir", defaults.Paths.LogDir)

	// TUI defaults
	viper.SetDefault("tui.theme", defaults.TUI.Theme)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hubwrap")
	}
	// Fall back to ~/.config/hubwrap
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hubwrap"
	}
	return filepath.Join(home, ".config", "hubwrap")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
