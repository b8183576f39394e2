// Package config resolves the sorter's configuration from command-line
// flags, SORTER_* environment variables and defaults, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/koloyyee/java-sorter/internal/errors"
	"github.com/koloyyee/java-sorter/internal/validation"
)

// envPrefix namespaces every environment variable the sorter reads.
const envPrefix = "SORTER_"

// Defaults used when neither a flag nor an environment variable is set.
const (
	DefaultSource     = "~/Downloads"
	DefaultDesktop    = "~/Desktop"
	DefaultEnv        = "development"
	DefaultLogLevel   = "info"
	DefaultBackend    = "auto"
	DefaultClassifier = "chain"
	imagesDirName     = "images"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Watch   WatchConfig
	Routing RoutingConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `flag:"env" validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `flag:"log-level" validate:"required,oneof=debug info warn error"`
	// Format is json or pretty; empty picks one from the environment.
	Format string `flag:"log-format" validate:"omitempty,oneof=json pretty"`
}

// WatchConfig holds what is watched and how.
type WatchConfig struct {
	Source  string `flag:"source" validate:"required"`
	Backend string `flag:"backend" validate:"required,oneof=auto inotify fsnotify"`
	// LockDir holds the instance lock; empty means the user cache directory.
	LockDir string `flag:"lock-dir"`

	// IgnorePartial skips hidden entries and in-progress downloads.
	IgnorePartial bool `flag:"ignore-partial"`
}

// RoutingConfig holds the destination rules.
type RoutingConfig struct {
	// Destination is empty when no destination argument was given.
	Destination string `flag:"destination" validate:"required_with=Keyword"`
	Keyword     string `flag:"keyword" validate:"omitempty,excludes=/,ne=.,ne=.."`
	DesktopDir  string `flag:"desktop" validate:"required"`
	// ImagesDir is always DesktopDir/images.
	ImagesDir  string `flag:"-"`
	Classifier string `flag:"classifier" validate:"required,oneof=chain magic extension"`
}

// Flags carries raw command-line values. Empty strings mean "not given".
type Flags struct {
	Source        string
	Destination   string
	Keyword       string
	Env           string
	LogLevel      string
	LogFormat     string
	Backend       string
	Classifier    string
	Desktop       string
	LockDir       string
	IgnorePartial string
}

// Load builds a validated Config with precedence:
// 1. Command-line flags (highest priority).
// 2. SORTER_* environment variables.
// 3. Default values (lowest priority).
//
// Source, destination and keyword only come from the command line.
func Load(flags Flags) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(flags.Env, "ENV", DefaultEnv),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getConfigValue(flags.LogLevel, "LOG_LEVEL", DefaultLogLevel)),
			Format: getConfigValue(flags.LogFormat, "LOG_FORMAT", ""),
		},
		Watch: WatchConfig{
			Source:  getConfigValue(flags.Source, "", DefaultSource),
			Backend: getConfigValue(flags.Backend, "BACKEND", DefaultBackend),
			LockDir: getConfigValue(flags.LockDir, "LOCK_DIR", ""),

			IgnorePartial: getBoolConfigValue(flags.IgnorePartial, "IGNORE_PARTIAL", false),
		},
		Routing: RoutingConfig{
			Destination: flags.Destination,
			Keyword:     flags.Keyword,
			DesktopDir:  getConfigValue(flags.Desktop, "DESKTOP", DefaultDesktop),
			Classifier:  getConfigValue(flags.Classifier, "CLASSIFIER", DefaultClassifier),
		},
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, errors.Wrap(err, errors.CodeStartup, "invalid path")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every field against its rules.
func (c *Config) Validate() error {
	return validation.New().Validate(c)
}

// expandPaths expands ~ and makes every configured path absolute.
func (c *Config) expandPaths() error {
	var err error
	if c.Watch.Source, err = expandPath(c.Watch.Source, ""); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if c.Routing.Destination, err = expandPath(c.Routing.Destination, ""); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if c.Watch.LockDir, err = expandPath(c.Watch.LockDir, ""); err != nil {
		return fmt.Errorf("lock dir: %w", err)
	}
	if c.Routing.DesktopDir, err = expandPath(c.Routing.DesktopDir, ""); err != nil {
		return fmt.Errorf("desktop: %w", err)
	}
	if c.Routing.DesktopDir != "" {
		c.Routing.ImagesDir = filepath.Join(c.Routing.DesktopDir, imagesDirName)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or
// default. An empty envKey skips the environment.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envKey != "" {
		if envValue := os.Getenv(envPrefix + envKey); envValue != "" {
			return envValue
		}
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}
