package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig marks errors caused by how a mapping was set up rather than
	// by the data it processed.
	ErrConfig = errors.New("mapping configuration error")

	ErrUnsupportedInput = fmt.Errorf("%w: unsupported input type", ErrConfig)
	ErrNoParser         = fmt.Errorf("%w: raw input requires a parser", ErrConfig)
	ErrNoSerializer     = fmt.Errorf("%w: no serializer configured", ErrConfig)

	// ErrPanic wraps values recovered from panicking rules or callbacks.
	ErrPanic = errors.New("panic during rule application")
)

// ExecutionError reports a failure while applying a rule.
type ExecutionError struct {
	// Mapping is the name of the executed mapping.
	Mapping string
	// Rule is the kind of the rule that failed.
	Rule string
	// Index is the position of the top-level rule being applied, or -1.
	Index int
	// Path is the source or target path involved, if known.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *ExecutionError) Error() string {
	var sb strings.Builder

	sb.WriteString("execution failed")

	if e.Mapping != "" {
		fmt.Fprintf(&sb, " in mapping %q", e.Mapping)
	}

	if e.Index >= 0 {
		fmt.Fprintf(&sb, " at rule %d", e.Index)
	}

	if e.Rule != "" {
		fmt.Fprintf(&sb, " (%s)", e.Rule)
	}

	if e.Path != "" {
		fmt.Fprintf(&sb, " on %q", e.Path)
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// failure wraps err for the rule of the given kind. Configuration errors
// and errors that already carry rule context pass through unchanged.
func failure(kind, path string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrConfig) {
		return err
	}

	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}

	return &ExecutionError{Rule: kind, Index: -1, Path: path, Err: err}
}
