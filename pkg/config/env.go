package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "VST3HOST_"

type override struct {
	name  string
	apply func(c *Config, v string) error
}

var overrides = []override{
	{"HOST_NAME", func(c *Config, v string) error { c.Host.Name = v; return nil }},
	{"SEARCH_PATHS", func(c *Config, v string) error {
		c.Host.SearchPaths = filepath.SplitList(v)
		return nil
	}},
	{"SAMPLE_RATE", func(c *Config, v string) (err error) {
		c.Engine.SampleRate, err = strconv.ParseFloat(v, 64)
		return err
	}},
	{"MAX_BLOCK_SIZE", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 32)
		c.Engine.MaxBlockSize = int32(n)
		return err
	}},
	{"MAX_EVENTS", func(c *Config, v string) (err error) {
		c.Engine.MaxEvents, err = strconv.Atoi(v)
		return err
	}},
	{"SPLIT_AT_EVENTS", func(c *Config, v string) (err error) {
		c.Engine.SplitAtEvents, err = strconv.ParseBool(v)
		return err
	}},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"PRESET_DIR", func(c *Config, v string) error { c.Presets.Dir = v; return nil }},
	{"TELEMETRY_ENABLED", func(c *Config, v string) (err error) {
		c.Telemetry.Enabled, err = strconv.ParseBool(v)
		return err
	}},
	{"TELEMETRY_INTERVAL", func(c *Config, v string) (err error) {
		c.Telemetry.Interval, err = time.ParseDuration(v)
		return err
	}},
}

// ApplyEnv overrides fields from VST3HOST_* variables, for example
// VST3HOST_SAMPLE_RATE=44100. Empty variables are ignored.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, o := range overrides {
		name := EnvPrefix + o.name
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := o.apply(c, strings.TrimSpace(v)); err != nil {
			return invalidEnv(name, v, err)
		}
	}
	return nil
}
