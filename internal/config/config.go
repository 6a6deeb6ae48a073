// Package config loads recordcache settings from YAML and the environment.
//
// The cache itself never validates its Config; this package is where bad
// values are rejected before a cache is built.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"recordcache/internal/cache"
	"recordcache/internal/logging"
)

// Environment variables that override file settings.
const (
	EnvIndexField  = "RECORDCACHE_INDEX_FIELD"
	EnvIndexFields = "RECORDCACHE_INDEX_FIELDS"
	EnvCapacity    = "RECORDCACHE_CAPACITY"
	EnvMaxAge      = "RECORDCACHE_MAX_AGE_SECONDS"
	EnvLogLevel    = "RECORDCACHE_LOG_LEVEL"
	EnvLogFormat   = "RECORDCACHE_LOG_FORMAT"
)

// Validation errors.
var (
	ErrInvalidCapacity   = errors.New("capacity must be positive")
	ErrInvalidMaxAge     = errors.New("max age must not be negative")
	ErrInvalidIndexField = errors.New("invalid index field")
)

// Config is the on-disk shape of the cache settings.
type Config struct {
	IndexField    string        `yaml:"index_field"`
	IndexFields   []string      `yaml:"index_fields"`
	Capacity      int           `yaml:"capacity"`
	MaxAgeSeconds int           `yaml:"max_age_seconds"`
	Logging       LoggingConfig `yaml:"logging"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		IndexField: cache.DefaultIndexField,
		Capacity:   cache.DefaultCapacity,
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}
}

// Override adjusts a loaded Config before validation, e.g. from CLI flags.
type Override func(*Config)

// Load reads path (if non-empty) over the defaults, applies environment
// overrides, then each override in order, and validates the result.
func Load(path string, overrides ...Override) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv; tests pass a map-backed function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvIndexField); ok {
		c.IndexField = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvIndexFields); ok {
		c.IndexFields = splitList(v)
	}
	if v, ok := lookup(EnvCapacity); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCapacity, err)
		}
		c.Capacity = n
	}
	if v, ok := lookup(EnvMaxAge); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxAge, err)
		}
		c.MaxAgeSeconds = n
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		c.Logging.Format = v
	}
	return nil
}

// Validate checks the settings the cache would otherwise accept silently.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, c.Capacity)
	}
	if c.MaxAgeSeconds < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxAge, c.MaxAgeSeconds)
	}
	if c.IndexField == "" {
		return fmt.Errorf("%w: primary field name is empty", ErrInvalidIndexField)
	}

	seen := make(map[string]bool, len(c.IndexFields))
	for _, f := range c.IndexFields {
		switch {
		case f == "":
			return fmt.Errorf("%w: empty secondary field name", ErrInvalidIndexField)
		case f == c.IndexField:
			return fmt.Errorf("%w: %q is already the primary field", ErrInvalidIndexField, f)
		case seen[f]:
			return fmt.Errorf("%w: %q listed twice", ErrInvalidIndexField, f)
		}
		seen[f] = true
	}
	return nil
}

// MaxAge returns the max age as a duration; zero means disabled.
func (c Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeSeconds) * time.Second
}

// ToCacheConfig converts the settings into a cache.Config. logger may be nil.
func (c Config) ToCacheConfig(logger *zerolog.Logger) cache.Config {
	return cache.Config{
		IndexField:  c.IndexField,
		IndexFields: append([]string(nil), c.IndexFields...),
		Capacity:    c.Capacity,
		MaxAge:      c.MaxAge(),
		Logger:      logger,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
