package config

import (
	"fmt"
	"slices"
	"strings"

	"shape-mapper/codec"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path of the field, e.g. "log.level".
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every invalid field.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "configuration validation failed: " + e.Errors[0].Error()
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "configuration validation failed with %d errors:", len(e.Errors))

	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}

	return sb.String()
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate returns a ValidationError listing every invalid field, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	if !slices.Contains(logLevels, cfg.Log.Level) {
		errs = append(errs, FieldError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level %q, must be one of %s", cfg.Log.Level, strings.Join(logLevels, ", ")),
		})
	}

	if !slices.Contains(logFormats, cfg.Log.Format) {
		errs = append(errs, FieldError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format %q, must be text or json", cfg.Log.Format),
		})
	}

	if _, err := codec.ParseFormat(cfg.Output.Format); err != nil {
		errs = append(errs, FieldError{Field: "output.format", Message: err.Error()})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		errs = append(errs, FieldError{
			Field:   "metrics.namespace",
			Message: "namespace is required when metrics are enabled",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}
