// Package config loads the host configuration from YAML, applies
// VST3HOST_* environment overrides and watches the file for changes.
//
//	host:
//	  name: vst3host
//	  search_paths: [/usr/lib/vst3]
//	engine:
//	  sample_rate: 48000
//	  max_block_size: 512
//	  max_events: 512
//	  split_at_events: false
//	logging:
//	  level: info
//	presets:
//	  dir: ~/.config/vst3host/presets
//	telemetry:
//	  enabled: true
//	  interval: 10s
package config

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/justyntemme/vst3host/pkg/engine"
	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/host"
	"github.com/justyntemme/vst3host/pkg/preset"
)

// Config is the complete host configuration.
type Config struct {
	Host      HostConfig      `yaml:"host"`
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
	Presets   PresetConfig    `yaml:"presets"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// HostConfig identifies the host and where modules are searched.
type HostConfig struct {
	Name        string   `yaml:"name"`
	SearchPaths []string `yaml:"search_paths"`
}

// EngineConfig sets up the processing engine.
type EngineConfig struct {
	SampleRate    float64 `yaml:"sample_rate"`
	MaxBlockSize  int32   `yaml:"max_block_size"`
	MaxEvents     int     `yaml:"max_events"`
	SplitAtEvents bool    `yaml:"split_at_events"`
}

// LoggingConfig controls the host logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Timestamps bool   `yaml:"timestamps"`
}

// PresetConfig locates preset files.
type PresetConfig struct {
	Dir string `yaml:"dir"`
}

// TelemetryConfig controls metric export.
type TelemetryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host: HostConfig{Name: host.DefaultName},
		Engine: EngineConfig{
			SampleRate:   48000,
			MaxBlockSize: 512,
			MaxEvents:    engine.DefaultMaxEvents,
		},
		Logging:   LoggingConfig{Level: "info", Timestamps: true},
		Telemetry: TelemetryConfig{Interval: 10 * time.Second},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, readFailed(path, err)
	}
	cfg := Default()
	if err := cfg.decode(bytes.NewReader(data)); err != nil {
		return nil, parseFailed(path, err)
	}
	return cfg, nil
}

// Parse reads YAML from r over the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, parseFailed("", err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case strings.TrimSpace(c.Host.Name) == "":
		return invalidValue("host.name", c.Host.Name, "Host name must not be empty")
	case !(e.SampleRate > 0) || math.IsInf(e.SampleRate, 0):
		return invalidValue("engine.sample_rate", e.SampleRate, "Sample rate must be positive")
	case e.SampleRate > 768000:
		return invalidValue("engine.sample_rate", e.SampleRate, "Sample rate is above 768 kHz")
	case e.MaxBlockSize <= 0:
		return invalidValue("engine.max_block_size", e.MaxBlockSize, "Block size must be positive")
	case e.MaxBlockSize > 1<<16:
		return invalidValue("engine.max_block_size", e.MaxBlockSize, "Block size is above 65536 samples")
	case e.MaxEvents <= 0:
		return invalidValue("engine.max_events", e.MaxEvents, "Event capacity must be positive")
	case c.Telemetry.Enabled && c.Telemetry.Interval <= 0:
		return invalidValue("telemetry.interval", c.Telemetry.Interval, "Export interval must be positive")
	}
	if _, err := debug.ParseLevel(c.Logging.Level); err != nil {
		return invalidValue("logging.level", c.Logging.Level, "Log level must be debug, info, warn, error or off")
	}
	for _, p := range c.Host.SearchPaths {
		if strings.TrimSpace(p) == "" {
			return invalidValue("host.search_paths", p, "Search paths must not be empty")
		}
	}
	return nil
}

// LogLevel returns the configured level. Validate reports bad names.
func (c LoggingConfig) LogLevel() debug.LogLevel {
	level, _ := debug.ParseLevel(c.Level)
	return level
}

// Logger builds the host logger.
func (c LoggingConfig) Logger(w io.Writer) *debug.Logger {
	flags := debug.FlagLevel | debug.FlagPrefix
	if c.Timestamps {
		flags |= debug.FlagTime
	}
	log := debug.New(w, "", flags)
	log.SetLevel(c.LogLevel())
	return log
}

// HostOptions maps the configuration onto host options.
func (c *Config) HostOptions(log *debug.Logger) host.Options {
	return host.Options{
		Name:          c.Host.Name,
		Logger:        log,
		MaxEvents:     c.Engine.MaxEvents,
		SplitAtEvents: c.Engine.SplitAtEvents,
	}
}

// PresetPath returns where a preset with the given name is stored.
func (c PresetConfig) PresetPath(name string) string {
	if filepath.Ext(name) != preset.Extension {
		name += preset.Extension
	}
	if c.Dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(expandHome(c.Dir), name)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
