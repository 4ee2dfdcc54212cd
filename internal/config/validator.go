package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "spawner.start_timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidThemes returns the list of valid TUI themes
func ValidThemes() []string {
	return []string{"default", "monokai", "dracula", "nord"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSpawner()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateTUI()...)

	return errors
}

// validateSpawner validates the SpawnerConfig
func (c *Config) validateSpawner() []ValidationError {
	var errors []ValidationError

	if c.Spawner.StartTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "spawner.start_timeout_seconds",
			Value:   c.Spawner.StartTimeoutSeconds,
			Message: "must be positive",
		})
	}

	// A server that takes longer than an hour to come up is a configuration mistake
	const maxStartTimeout = 3600
	if c.Spawner.StartTimeoutSeconds > maxStartTimeout {
		errors = append(errors, ValidationError{
			Field:   "spawner.start_timeout_seconds",
			Value:   c.Spawner.StartTimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxStartTimeout),
		})
	}

	if c.Spawner.HTTPTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "spawner.http_timeout_seconds",
			Value:   c.Spawner.HTTPTimeoutSeconds,
			Message: "must be positive",
		})
	}

	if c.Spawner.IP != "" && net.ParseIP(c.Spawner.IP) == nil {
		errors = append(errors, ValidationError{
			Field:   "spawner.ip",
			Value:   c.Spawner.IP,
			Message: "must be a valid IP address",
		})
	}

	if c.Spawner.Port < 0 || c.Spawner.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "spawner.port",
			Value:   c.Spawner.Port,
			Message: "must be between 0 and 65535 (0 = auto)",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	// Most filesystems cap paths around 4096
	const maxPathLength = 4096

	for _, p := range []struct {
		field string
		value string
	}{
		{"paths.data_dir", c.Paths.DataDir},
		{"paths.log_dir", c.Paths.LogDir},
		{"profiles.file", c.Profiles.File},
	} {
		if p.value == "" {
			continue
		}
		if strings.ContainsRune(p.value, '\x00') {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "path contains invalid null character",
			})
		}
		if len(p.value) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.Theme != "" && !slices.Contains(ValidThemes(), c.TUI.Theme) {
		errors = append(errors, ValidationError{
			Field:   "tui.theme",
			Value:   c.TUI.Theme,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidThemes(), ", ")),
		})
	}

	return errors
}
