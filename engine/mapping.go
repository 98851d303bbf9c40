package engine

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"shape-mapper/tree"
)

// Parser turns a raw document into a tree.
type Parser interface {
	Parse(data []byte) (*tree.Node, error)
}

// Serializer renders a tree in the named format.
type Serializer interface {
	Serialize(n *tree.Node, format string) ([]byte, error)
}

// Observer is notified about rule applications and whole executions.
// Implementations must be safe for concurrent use.
type Observer interface {
	RuleApplied(mapping, kind string, elapsed time.Duration, err error)
	ExecutionFinished(mapping string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) RuleApplied(string, string, time.Duration, error) {}
func (nopObserver) ExecutionFinished(string, time.Duration, error)   {}

// Option configures a Mapping.
type Option func(*Mapping)

// WithParser sets the parser used for raw string, byte and reader input.
func WithParser(p Parser) Option {
	return func(m *Mapping) { m.parser = p }
}

// WithSerializer sets the serializer used by ExecuteTo.
func WithSerializer(s Serializer) Option {
	return func(m *Mapping) { m.serializer = s }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapping) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers an observer for execution metrics.
func WithObserver(o Observer) Option {
	return func(m *Mapping) {
		if o != nil {
			m.observer = o
		}
	}
}

// Mapping is a named, ordered rule list. It is immutable once built and
// safe for concurrent use.
type Mapping struct {
	name       string
	rules      []Rule
	parser     Parser
	serializer Serializer
	logger     *slog.Logger
	observer   Observer
}

// New builds a mapping over a copy of rules.
func New(name string, rules []Rule, opts ...Option) *Mapping {
	m := &Mapping{
		name:     name,
		rules:    slices.Clone(rules),
		logger:   slog.New(slog.DiscardHandler),
		observer: nopObserver{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Name returns the mapping name.
func (m *Mapping) Name() string { return m.name }

// Rules returns a copy of the rule list.
func (m *Mapping) Rules() []Rule { return slices.Clone(m.rules) }

// Execute maps input into a new tree. Input may be a *tree.Node or a raw
// document given as string, []byte or io.Reader; raw input requires a
// parser. On error no tree is returned.
func (m *Mapping) Execute(input any) (*tree.Node, error) {
	start := time.Now()

	out, err := m.execute(input)

	elapsed := time.Since(start)
	m.observer.ExecutionFinished(m.name, elapsed, err)

	if err != nil {
		m.logger.Error("mapping failed", "mapping", m.name, "elapsed", elapsed, "error", err)
		return nil, err
	}

	m.logger.Info("mapping executed", "mapping", m.name, "rules", len(m.rules), "elapsed", elapsed)

	return out, nil
}

// ExecuteValue converts an arbitrary Go value into a tree and maps it.
func (m *Mapping) ExecuteValue(v any) (*tree.Node, error) {
	return m.Execute(tree.From(v))
}

// ExecuteTo maps input and serializes the result in format.
func (m *Mapping) ExecuteTo(input any, format string) ([]byte, error) {
	if m.serializer == nil {
		return nil, ErrNoSerializer
	}

	out, err := m.Execute(input)
	if err != nil {
		return nil, err
	}

	data, err := m.serializer.Serialize(out, format)
	if err != nil {
		return nil, &ExecutionError{Mapping: m.name, Rule: "serialize", Index: -1, Err: err}
	}

	return data, nil
}

func (m *Mapping) execute(input any) (*tree.Node, error) {
	source, err := m.source(input)
	if err != nil {
		return nil, err
	}

	ctx := NewContext(source).WithLogger(m.logger.With("mapping", m.name))
	target := tree.NewObject()

	for i, r := range m.rules {
		if err := m.apply(ctx, target, i, r); err != nil {
			return nil, err
		}
	}

	return target, nil
}

// apply runs one top-level rule, recovering panics and attaching the rule
// position to failures.
func (m *Mapping) apply(ctx *Context, target *tree.Node, i int, r Rule) (err error) {
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = &ExecutionError{Rule: r.Kind(), Index: i, Err: panicError(p)}
		}

		err = m.annotate(err, i, r)

		m.observer.RuleApplied(m.name, r.Kind(), time.Since(start), err)
		m.logger.Debug("rule applied", "mapping", m.name, "index", i, "kind", r.Kind(), "error", err)
	}()

	return r.Apply(ctx, target)
}

func (m *Mapping) annotate(err error, i int, r Rule) error {
	if err == nil {
		return nil
	}

	err = failure(r.Kind(), "", err)

	ee, ok := err.(*ExecutionError)
	if !ok {
		return err
	}

	annotated := *ee
	annotated.Mapping = m.name
	annotated.Index = i

	return &annotated
}

func (m *Mapping) source(input any) (*tree.Node, error) {
	var raw []byte

	switch v := input.(type) {
	case *tree.Node:
		if v == nil {
			return tree.Null(), nil
		}

		return v, nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case io.Reader:
		if m.parser == nil {
			return nil, ErrNoParser
		}

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(v); err != nil {
			return nil, &ExecutionError{Mapping: m.name, Rule: "read", Index: -1, Err: err}
		}

		raw = buf.Bytes()
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedInput, input)
	}

	if m.parser == nil {
		return nil, ErrNoParser
	}

	n, err := m.parser.Parse(raw)
	if err != nil {
		return nil, &ExecutionError{Mapping: m.name, Rule: "parse", Index: -1, Err: err}
	}

	return n, nil
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}

	return fmt.Errorf("%w: %v", ErrPanic, p)
}
