// Package config holds the Chervil configuration: cache location,
// CmdStan installation, run defaults, and logging.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the complete Chervil configuration.
type Config struct {
	BaseDir     string        `yaml:"-"`            // directory containing the config file, for resolving relative paths
	CacheDir    string        `yaml:"cache_dir"`    // content-addressed cache for data, models, and chain outputs
	CmdStanHome string        `yaml:"cmdstan_home"` // CmdStan installation; defaults to $CMDSTAN
	History     string        `yaml:"history"`      // SQLite run-history path; empty disables the registry
	Run         RunConfig     `yaml:"run"`
	Logging     LoggingConfig `yaml:"logging"`
}

// RunConfig holds the defaults applied when a run request leaves a field
// unset.
type RunConfig struct {
	Chains      int  `yaml:"chains"`       // default chain count (default: 4)
	Cache       bool `yaml:"cache"`        // reuse cached chain outputs (default: true)
	MaxParallel int  `yaml:"max_parallel"` // concurrent chains; 0 means unbounded
	Compress    bool `yaml:"compress"`     // gzip cached chain outputs
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or a file path
}

// Defaults returns the configuration used when no config file is given.
func Defaults() *Config {
	return &Config{
		CacheDir:    ".chervil/cache",
		CmdStanHome: os.Getenv("CMDSTAN"),
		Run: RunConfig{
			Chains: 4,
			Cache:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads a YAML config file over the defaults. Relative paths in the
// file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	cfg.BaseDir = filepath.Dir(abs)
	cfg.CacheDir = cfg.resolve(cfg.CacheDir)
	cfg.History = cfg.resolve(cfg.History)
	return cfg, nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// NewLogger builds a zerolog logger from the logging settings.
func (lc LoggingConfig) NewLogger() (zerolog.Logger, error) {
	var out io.Writer
	switch lc.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(lc.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("config: open log output: %w", err)
		}
		out = f
	}
	if strings.EqualFold(lc.Format, "text") || lc.Format == "" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
