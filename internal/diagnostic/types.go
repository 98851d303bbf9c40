package diagnostic

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by the error returned from Diagnostics.Err.
var ErrInvalid = errors.New("invalid mapping")

// Codes used by mapping validation.
const (
	CodeParse           = "parse"
	CodeNoRules         = "no-rules"
	CodeUnknownKind     = "unknown-kind"
	CodeAmbiguousKind   = "ambiguous-kind"
	CodeMissingField    = "missing-field"
	CodeUnknownField    = "unknown-field"
	CodeInvalidPath     = "invalid-path"
	CodeUnknownFunction = "unknown-function"
	CodeArity           = "arity"
	CodeInvalidValue    = "invalid-value"
	CodeShadowedVar     = "shadowed-variable"
	CodeUnusedDefault   = "unused-default"
	CodeFormat          = "format"
)

// Diagnostics holds every finding of a validation run.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Diagnostic is a single finding.
type Diagnostic struct {
	// Severity of the finding.
	Severity Severity
	// Code identifies the kind of finding.
	Code string
	// Message is the human-readable description.
	Message string
	// Rule locates the rule, e.g. "rules[2].forEach.rules[0]".
	Rule string
	// Path is the offending path expression, if any.
	Path string
	// Suggestions are likely fixes.
	Suggestions []string
}

// Severity orders diagnostics from informational to fatal.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// AddError records an error.
func (d *Diagnostics) AddError(code, message, rule, path string, suggestions ...string) {
	d.Errors = append(d.Errors, newDiagnostic(SeverityError, code, message, rule, path, suggestions))
}

// AddWarning records a warning.
func (d *Diagnostics) AddWarning(code, message, rule, path string, suggestions ...string) {
	d.Warnings = append(d.Warnings, newDiagnostic(SeverityWarning, code, message, rule, path, suggestions))
}

// AddInfo records a note.
func (d *Diagnostics) AddInfo(code, message, rule, path string) {
	d.Infos = append(d.Infos, newDiagnostic(SeverityInfo, code, message, rule, path, nil))
}

func newDiagnostic(sev Severity, code, message, rule, path string, suggestions []string) Diagnostic {
	return Diagnostic{
		Severity:    sev,
		Code:        code,
		Message:     message,
		Rule:        rule,
		Path:        path,
		Suggestions: suggestions,
	}
}

// HasErrors reports whether any error was recorded.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// IsValid reports whether no error was recorded.
func (d *Diagnostics) IsValid() bool {
	return !d.HasErrors()
}

// Merge appends every finding of other.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// All returns errors, then warnings, then notes.
func (d *Diagnostics) All() []Diagnostic {
	out := make([]Diagnostic, 0, len(d.Errors)+len(d.Warnings)+len(d.Infos))
	out = append(out, d.Errors...)
	out = append(out, d.Warnings...)

	return append(out, d.Infos...)
}

// String renders every finding on its own line, prefixed with its
// severity. It returns "" when nothing was recorded.
func (d *Diagnostics) String() string {
	all := d.All()
	lines := make([]string, 0, len(all))

	for _, f := range all {
		lines = append(lines, f.Severity.String()+": "+f.String())
	}

	return strings.Join(lines, "\n")
}

// Err joins all errors into one error wrapping ErrInvalid, or returns nil.
func (d *Diagnostics) Err() error {
	if d.IsValid() {
		return nil
	}

	parts := make([]string, 0, len(d.Errors))
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(parts, "; "))
}

// String renders the finding as "rule path: [code] message (did you mean ...?)".
func (d Diagnostic) String() string {
	var prefix []string
	if d.Rule != "" {
		prefix = append(prefix, d.Rule)
	}

	if d.Path != "" {
		prefix = append(prefix, fmt.Sprintf("%q", d.Path))
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(d.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(d.Suggestions, ", ") + "?)"
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}
