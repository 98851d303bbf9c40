// Package config holds the settings of the shape-mapper command line tool.
//
// Settings are read from an optional YAML file, completed with defaults and
// then overridden by SHAPE_MAPPER_* environment variables:
//
//	log:
//	  level: info        # debug | info | warn | error
//	  format: text       # text | json
//	output:
//	  format: json       # json | yaml | csv | xml; a rule file's output wins
//	  pretty: false
//	  dir: ""            # empty writes to stdout
//	metrics:
//	  enabled: false
//	  namespace: shape_mapper
//	validation:
//	  strict: false      # warnings fail validation
package config

// Config is the root configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Output     OutputConfig     `yaml:"output"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Validation ValidationConfig `yaml:"validation"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OutputConfig configures how mapped documents are written.
type OutputConfig struct {
	// Format is used when the rule file names no output format.
	Format string `yaml:"format"`
	// Pretty indents JSON output.
	Pretty bool `yaml:"pretty"`
	// Dir receives one file per input; empty means stdout.
	Dir string `yaml:"dir"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// ValidationConfig configures rule file validation.
type ValidationConfig struct {
	// Strict treats warnings as errors.
	Strict bool `yaml:"strict"`
}
