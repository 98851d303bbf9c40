package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "SHAPE_MAPPER_"

// Load reads the configuration at path, applies defaults and environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides overrides fields from SHAPE_MAPPER_SECTION_FIELD
// variables. Malformed booleans are reported rather than ignored.
func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_LEVEL":         &cfg.Log.Level,
		"LOG_FORMAT":        &cfg.Log.Format,
		"OUTPUT_FORMAT":     &cfg.Output.Format,
		"OUTPUT_DIR":        &cfg.Output.Dir,
		"METRICS_NAMESPACE": &cfg.Metrics.Namespace,
	}

	for name, field := range strs {
		if val, ok := lookup(EnvPrefix + name); ok && val != "" {
			*field = val
		}
	}

	bools := map[string]*bool{
		"OUTPUT_PRETTY":     &cfg.Output.Pretty,
		"METRICS_ENABLED":   &cfg.Metrics.Enabled,
		"VALIDATION_STRICT": &cfg.Validation.Strict,
	}

	for name, field := range bools {
		val, ok := lookup(EnvPrefix + name)
		if !ok || val == "" {
			continue
		}

		b, err := cast.ToBoolE(val)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s%s: %w", val, EnvPrefix, name, err)
		}

		*field = b
	}

	return nil
}
