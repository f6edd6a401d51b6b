// Package config loads the YAML run configuration of the gohnm command.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gohnm/hnm"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel converts l to a slog level. Unknown levels map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the top-level run configuration.
type Config struct {
	// Synthesis holds the synthesizer settings.
	Synthesis hnm.Config `yaml:"synthesis"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// Output controls what is written next to the synthesized file.
	Output OutputConfig `yaml:"output"`
}

// OutputConfig describes the written audio and diagnostics.
type OutputConfig struct {
	// BitDepth of written files when no reference recording is given.
	BitDepth int `yaml:"bit_depth"`

	// Normalize scales every written file to full scale.
	Normalize bool `yaml:"normalize"`

	// WriteComponents writes the _harmonic, _noise and _transient files.
	WriteComponents bool `yaml:"write_components"`

	// Chart writes an HTML plot of the components next to the output.
	Chart bool `yaml:"chart"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Synthesis: hnm.DefaultConfig(),
		LogLevel:  LogInfo,
		Output: OutputConfig{
			BitDepth: 16,
		},
	}
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// An empty path returns [Default].
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Omitted keys keep their defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	switch cfg.Output.BitDepth {
	case 8, 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("output.bit_depth %d is invalid; valid values: 8, 16, 24, 32", cfg.Output.BitDepth))
	}

	if err := cfg.Synthesis.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("synthesis: %w", err))
	}

	if cfg.Output.Normalize && cfg.Output.WriteComponents {
		slog.Warn("output.normalize scales each component file independently; their sum will not match the output")
	}

	return errors.Join(errs...)
}
