// Package config loads citetrace settings from flags, environment and YAML
// files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/citetrace/citetrace/internal/logging"
	"github.com/citetrace/citetrace/internal/tracing"
	"github.com/spf13/viper"
)

// FileName is the project config file looked up in the working directory.
const FileName = ".citetrace.yaml"

// EnvPrefix prefixes environment overrides, e.g. CITETRACE_DOI_ENDPOINT.
const EnvPrefix = "CITETRACE"

// Config holds every setting a command may read.
type Config struct {
	Format    string          `mapstructure:"format"`
	Encoding  string          `mapstructure:"encoding"`
	Output    string          `mapstructure:"output"`
	Debug     bool            `mapstructure:"debug"`
	LogFormat string          `mapstructure:"log_format"`
	Ignore    []string        `mapstructure:"ignore"`
	Sources   []SourceBinding `mapstructure:"sources"`
	DOI       DOIConfig       `mapstructure:"doi"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Terminal  TerminalConfig  `mapstructure:"terminal"`
	Tracing   tracing.Config  `mapstructure:"tracing"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// SourceBinding binds a package to its bibliography file. Relative paths are
// resolved against the directory of the config file.
type SourceBinding struct {
	Package string `mapstructure:"package"`
	Path    string `mapstructure:"path"`
}

type DOIConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	// TTL bounds how long resolved references are reused; zero keeps them
	// for the whole run.
	TTL time.Duration `mapstructure:"ttl"`
}

type TerminalConfig struct {
	// Color is "auto", "always" or "never".
	Color string `mapstructure:"color"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Format:    "terminal",
		Encoding:  "utf-8",
		LogFormat: "text",
		DOI: DOIConfig{
			Endpoint: "https://doi.org",
			Timeout:  10 * time.Second,
		},
		Terminal: TerminalConfig{Color: "auto"},
		Tracing:  tracing.DefaultConfig(),
	}
}

// SetDefaults registers Defaults on v so environment variables and flags can
// override every key.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("format", d.Format)
	v.SetDefault("encoding", d.Encoding)
	v.SetDefault("output", d.Output)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("ignore", []string{})
	v.SetDefault("doi.endpoint", d.DOI.Endpoint)
	v.SetDefault("doi.timeout", d.DOI.Timeout)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("terminal.color", d.Terminal.Color)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load reads configuration into v and decodes it. Lookup order:
//  1. explicitPath, when set (it must exist)
//  2. ./.citetrace.yaml
//  3. ~/.config/citetrace/config.yaml
//
// Environment variables prefixed CITETRACE_ and any flags bound to v take
// precedence over file values.
func Load(v *viper.Viper, explicitPath string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else if _, err := os.Stat(FileName); err == nil {
		v.SetConfigFile(FileName)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "citetrace"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.File != "" {
		base := filepath.Dir(cfg.File)
		for i, source := range cfg.Sources {
			if source.Path != "" && !filepath.IsAbs(source.Path) {
				cfg.Sources[i].Path = filepath.Join(base, source.Path)
			}
		}
	}
	return cfg, nil
}

// Validate checks values that do not depend on the command being run.
func (c Config) Validate() error {
	if err := logging.ValidateFormat(c.LogFormat); err != nil {
		return err
	}
	switch c.Terminal.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("terminal.color must be \"auto\", \"always\" or \"never\", got %q", c.Terminal.Color)
	}
	if c.DOI.Timeout < 0 {
		return fmt.Errorf("doi.timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, source := range c.Sources {
		if strings.TrimSpace(source.Package) == "" {
			return fmt.Errorf("sources[%d]: package is required", i)
		}
		if strings.TrimSpace(source.Path) == "" {
			return fmt.Errorf("sources[%d]: path is required", i)
		}
		if seen[source.Package] {
			return fmt.Errorf("sources[%d]: package %q is bound twice", i, source.Package)
		}
		seen[source.Package] = true
	}
	return c.Tracing.Validate()
}

// DefaultConfigTemplate returns a commented starter config.
func DefaultConfigTemplate() string {
	return `# citetrace configuration

# Report format: terminal, markdown, jsonl, yaml or bibtex
format: terminal

# Encoding of scanned sources (WHATWG label)
encoding: utf-8

# Report path without extension (default: <target dir>/references)
# output: docs/references

# Extra ignore rules, same syntax as .citetraceignore
# ignore:
#   - testdata/

# Bibliography files per package, used to resolve bibtex keys and to store
# entries fetched for DOIs.
# sources:
#   - package: example.com/kitchen
#     path: docs/kitchen.bib

doi:
  endpoint: https://doi.org
  timeout: 10s

terminal:
  color: auto   # auto, always or never

tracing:
  enabled: false
  exporter: file
  # file_path: .citetrace/traces.json
`
}

// WriteDefaultConfig creates path with the starter config unless it exists.
// It reports whether the file was written.
func WriteDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultConfigTemplate()), 0o644); err != nil {
		return false, fmt.Errorf("writing config file: %w", err)
	}
	return true, nil
}
