package engine

import (
	"fmt"

	"shape-mapper/internal/pathexpr"
	"shape-mapper/tree"
)

// Rule is one transformation step. Apply reads through ctx and writes into
// target, which is always an object.
type Rule interface {
	Apply(ctx *Context, target *tree.Node) error
	Kind() string
}

// Condition decides whether a rule or branch applies. An error aborts the
// mapping like any other rule failure.
type Condition func(ctx *Context) (bool, error)

// Otherwise is the condition that always holds.
func Otherwise(*Context) (bool, error) { return true, nil }

// Transform converts a single value. Returning a nil node skips the write.
type Transform func(v *tree.Node) (*tree.Node, error)

// FieldTransform converts a value found under the given field name.
// Returning a nil node skips the write.
type FieldTransform func(field string, v *tree.Node) (*tree.Node, error)

// CombineFunc merges several values into one. Absent sources are passed as
// nil entries.
type CombineFunc func(values []*tree.Node) (*tree.Node, error)

// Rule kinds.
const (
	KindSimple  = "simple"
	KindCombine = "combine"
	KindBranch  = "branch"
	KindBulk    = "bulk"
	KindFlatten = "flatten"
	KindNest    = "nest"
	KindForEach = "forEach"
	KindCollect = "collect"
	KindLog     = "log"
)

// ApplyAll applies rules in order, stopping at the first error.
func ApplyAll(ctx *Context, target *tree.Node, rules []Rule) error {
	for _, r := range rules {
		if err := r.Apply(ctx, target); err != nil {
			return err
		}
	}

	return nil
}

// holds evaluates an optional condition for the rule of the given kind.
func holds(kind string, c Condition, ctx *Context) (bool, error) {
	if c == nil {
		return true, nil
	}

	ok, err := c(ctx)
	if err != nil {
		return false, failure(kind, "", fmt.Errorf("condition: %w", err))
	}

	return ok, nil
}

// write stores a copy of v at path inside target.
func write(kind string, target *tree.Node, path string, v *tree.Node) error {
	return failure(kind, path, pathexpr.Set(target, path, v.Clone()))
}

// objectAt returns the object at path inside target, creating it when it is
// missing or holds something else. The empty path is target itself.
func objectAt(kind string, target *tree.Node, path string) (*tree.Node, error) {
	if path == "" {
		return target, nil
	}

	if v, ok := pathexpr.Get(target, path); ok && v.IsObject() {
		return v, nil
	}

	obj := tree.NewObject()
	if err := pathexpr.Set(target, path, obj); err != nil {
		return nil, failure(kind, path, err)
	}

	return obj, nil
}
