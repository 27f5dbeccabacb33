// Package config provides configuration management for unitframe.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (UNITFRAME_ prefix)
//  3. Config file (.unitframe.yaml)
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Policies for tracked files that disappear while watching.
const (
	MissingFilesSkip  = "skip"
	MissingFilesAbort = "abort"
)

// DefaultPollInterval is the pause between two modification checks.
const DefaultPollInterval = 500 * time.Millisecond

// Config represents the global configuration for unitframe and gate.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// PollInterval is the sleep between two checks of the watched files.
	PollInterval time.Duration `mapstructure:"poll-interval" json:"pollInterval"`

	// MissingFiles decides what happens when a watched file vanishes.
	// Valid values: skip, abort.
	MissingFiles string `mapstructure:"missing-files" json:"missingFiles"`

	// Compiler is the C++ compiler executable.
	Compiler string `mapstructure:"compiler" json:"compiler"`

	// CppStandard is the language standard flag passed to the compiler.
	CppStandard string `mapstructure:"cpp-standard" json:"cppStandard"`

	// LintCommand is run against python projects before the tests.
	LintCommand string `mapstructure:"lint-command" json:"lintCommand"`

	// Python is the interpreter used where scripts cannot run directly.
	Python string `mapstructure:"python" json:"python"`

	// ScratchDir receives compiled binaries. Empty means os.TempDir().
	ScratchDir string `mapstructure:"scratch-dir" json:"scratchDir"`

	// TerminalOptions are passed to the terminal opened in edit mode.
	TerminalOptions string `mapstructure:"terminal-options" json:"terminalOptions"`

	// TemplatesDir overrides the embedded project templates.
	TemplatesDir string `mapstructure:"templates-dir" json:"templatesDir"`

	// TypesFile replaces the built-in project type table (YAML or TOML).
	TypesFile string `mapstructure:"types-file" json:"typesFile"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:        LogLevelInfo,
		LogFormat:       LogFormatText,
		Quiet:           false,
		PollInterval:    DefaultPollInterval,
		MissingFiles:    MissingFilesSkip,
		Compiler:        "g++",
		CppStandard:     "-std=c++11",
		LintCommand:     "pycodestyle",
		Python:          "python",
		TerminalOptions: "+aw -bg darkgreen -fg white -geometry 70x20+0+200",
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	switch c.MissingFiles {
	case MissingFilesSkip, MissingFilesAbort:
		// valid
	default:
		return fmt.Errorf("invalid missing-files policy %q: must be one of skip, abort", c.MissingFiles)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval %s: must be positive", c.PollInterval)
	}

	if c.Compiler == "" {
		return errors.New("compiler must not be empty")
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// EffectiveScratchDir returns ScratchDir, or the system temp dir when unset.
func (c *Config) EffectiveScratchDir() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}

	return os.TempDir()
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("poll-interval", d.PollInterval)
	v.SetDefault("missing-files", d.MissingFiles)
	v.SetDefault("compiler", d.Compiler)
	v.SetDefault("cpp-standard", d.CppStandard)
	v.SetDefault("lint-command", d.LintCommand)
	v.SetDefault("python", d.Python)
	v.SetDefault("scratch-dir", d.ScratchDir)
	v.SetDefault("terminal-options", d.TerminalOptions)
	v.SetDefault("templates-dir", d.TemplatesDir)
	v.SetDefault("types-file", d.TypesFile)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("UNITFRAME")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".unitframe")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "unitframe"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
