// Package engine applies ordered lists of mapping rules to a source tree and
// builds a new target tree.
//
// # Rules
//
// Every rule implements Rule. The closed set of variants is:
//
//   - Simple:  copy one value, optionally transformed, conditional or defaulted
//   - Combine: merge several source values into one target field
//   - Branch:  apply the rules of the first case whose condition holds
//   - Bulk:    copy every match of a wildcard pattern, filtered
//   - Flatten: turn a nested object into underscore-joined leaf keys
//   - Nest:    fold pattern matches into an object or an array of objects
//   - ForEach: apply nested rules once per element of a collection
//   - Collect: build a new array with one object per collection element
//   - Log:     log a message and selected values through the context's logger
//
// Rules are plain values configured at construction time. All per-run state
// lives in the Context, so a Mapping can be executed concurrently.
//
// # Paths
//
// Source paths passed to Context.Resolve take one of three forms:
//
//	'literal'      the quoted text itself
//	$item.sku      a scoped variable, optionally followed by a path into it
//	order.lines[0] a dotted path into the source tree
//
// A missing value is never an error: rules simply skip their effect.
//
// # Errors
//
// Misconfiguration (unknown functions, wrong argument counts, unsupported
// input) is reported as an error wrapping ErrConfig. Every other failure is
// reported as an *ExecutionError. A failing rule aborts the whole run and no
// partial tree is returned.
package engine
