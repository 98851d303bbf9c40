package engine

import (
	"log/slog"
	"strings"

	"shape-mapper/internal/pathexpr"
	"shape-mapper/tree"
)

// Context carries the source tree, the variables bound by enclosing
// iterations and the logger Log rules write to. A Context is never
// modified: With returns a child.
type Context struct {
	source *tree.Node
	scope  *binding
	logger *slog.Logger
}

// binding is one link of the persistent variable scope.
type binding struct {
	name   string
	value  *tree.Node
	parent *binding
}

// NewContext returns a root context over source with no variables.
func NewContext(source *tree.Node) *Context {
	if source == nil {
		source = tree.Null()
	}

	return &Context{source: source}
}

// Source returns the root source tree.
func (c *Context) Source() *tree.Node {
	return c.source
}

// With returns a child context that additionally binds name to value.
// The receiver is left untouched, so bindings never leak to siblings.
func (c *Context) With(name string, value *tree.Node) *Context {
	return &Context{
		source: c.source,
		scope:  &binding{name: name, value: value, parent: c.scope},
		logger: c.logger,
	}
}

// WithLogger returns a copy of the context that logs to l.
func (c *Context) WithLogger(l *slog.Logger) *Context {
	return &Context{source: c.source, scope: c.scope, logger: l}
}

// Logger returns the context's logger, which discards everything unless
// one was set.
func (c *Context) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return c.logger
}

// Var looks up a variable, innermost binding first.
func (c *Context) Var(name string) (*tree.Node, bool) {
	for b := c.scope; b != nil; b = b.parent {
		if b.name == name {
			return b.value, true
		}
	}

	return nil, false
}

// Vars returns the visible bindings. Shadowed bindings are omitted.
func (c *Context) Vars() map[string]*tree.Node {
	out := make(map[string]*tree.Node)

	for b := c.scope; b != nil; b = b.parent {
		if _, ok := out[b.name]; !ok {
			out[b.name] = b.value
		}
	}

	return out
}

// Resolve evaluates a source path: a quoted literal, a variable reference
// or a dotted path into the source tree. It returns false when nothing is
// found.
func (c *Context) Resolve(path string) (*tree.Node, bool) {
	if lit, ok := literal(path); ok {
		return tree.String(lit), true
	}

	root, rest, ok := c.Root(path)
	if !ok {
		return nil, false
	}

	return pathexpr.Get(root, rest)
}

// Root splits a path or pattern into the tree it addresses and the
// remainder to evaluate inside that tree. Variable references select the
// bound value and a bare "$" the source itself, so "$" and "$[0].id"
// reach a source that is an array. Everything else addresses the source.
func (c *Context) Root(path string) (*tree.Node, string, bool) {
	name, rest, isVar := SplitRef(path)
	if !isVar {
		return c.source, path, true
	}

	if name == "" {
		return c.source, rest, true
	}

	v, ok := c.Var(name)
	if !ok {
		return nil, "", false
	}

	return v, rest, true
}

// SplitRef splits a variable reference "$name.rest" into the variable name
// and the remaining path. For other paths it returns false and the path
// unchanged as rest.
func SplitRef(path string) (name, rest string, ok bool) {
	if !strings.HasPrefix(path, "$") {
		return "", path, false
	}

	name, rest = splitVar(path[1:])

	return name, rest, true
}

// IsLiteral reports whether path is a quoted literal such as 'n/a'.
func IsLiteral(path string) bool {
	_, ok := literal(path)
	return ok
}

// splitVar separates "$name.rest" or "$name[0].rest" after the dollar sign.
func splitVar(ref string) (name, rest string) {
	i := strings.IndexAny(ref, ".[")
	if i < 0 {
		return ref, ""
	}

	if ref[i] == '.' {
		return ref[:i], ref[i+1:]
	}

	return ref[:i], ref[i:]
}

func literal(path string) (string, bool) {
	if len(path) >= 2 && path[0] == '\'' && path[len(path)-1] == '\'' {
		return path[1 : len(path)-1], true
	}

	return "", false
}
