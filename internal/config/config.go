// Package config loads analyst.yml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileNames are the config file names Load looks for, in order.
var FileNames = []string{"analyst.yml", "analyst.yaml"}

// DefaultAddr is the console listen address.
const DefaultAddr = "127.0.0.1:8080"

// Config holds settings loaded from analyst.yml.
type Config struct {
	Addr    string        `yaml:"addr,omitempty"`
	Logging Logging       `yaml:"logging,omitempty"`
	Latency LatencyConfig `yaml:"latency,omitempty"`
	History History       `yaml:"history,omitempty"`

	// Path is the file the config was read from; empty for defaults.
	Path string `yaml:"-"`
}

// Logging selects the logger level and encoding.
type Logging struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // json or console
	File   string `yaml:"file,omitempty"`
}

// Latency is a simulated delay: Min plus up to Jitter.
type Latency struct {
	Min    Duration `yaml:"min"`
	Jitter Duration `yaml:"jitter"`
}

// LatencyConfig holds one delay per pipeline stage.
type LatencyConfig struct {
	Intent Latency `yaml:"intent"`
	Query  Latency `yaml:"query"`
	Fetch  Latency `yaml:"fetch"`
}

// History bounds the in-memory run history.
type History struct {
	Limit int `yaml:"limit,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("1.5s") or
// as an integer number of milliseconds.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var ms int64
	if err := node.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string or milliseconds", node.Line)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:    DefaultAddr,
		Logging: Logging{Level: "info", Format: "console"},
		Latency: LatencyConfig{
			Intent: Latency{Min: Duration(1500 * time.Millisecond), Jitter: Duration(500 * time.Millisecond)},
			Query:  Latency{Min: Duration(2000 * time.Millisecond), Jitter: Duration(700 * time.Millisecond)},
			Fetch:  Latency{Min: Duration(2500 * time.Millisecond), Jitter: Duration(800 * time.Millisecond)},
		},
		History: History{Limit: 50},
	}
}

// Load attempts to read analyst.yml or analyst.yaml from the given
// directory. Values absent from the file keep their defaults. Returns the
// defaults (not an error) if no config file exists.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		cfg := Defaults()
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Path = path
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		return &cfg, nil
	}
	cfg := Defaults()
	return &cfg, nil
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	for name, l := range map[string]Latency{
		"intent": c.Latency.Intent,
		"query":  c.Latency.Query,
		"fetch":  c.Latency.Fetch,
	} {
		if l.Min < 0 || l.Jitter < 0 {
			errs = append(errs, fmt.Errorf("latency.%s must not be negative", name))
		}
	}
	if c.History.Limit < 0 {
		errs = append(errs, errors.New("history.limit must not be negative"))
	}
	return errors.Join(errs...)
}

// NoLatency zeroes every stage delay.
func (c *Config) NoLatency() {
	c.Latency = LatencyConfig{}
}
