package mapping

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"shape-mapper/codec"
	"shape-mapper/engine"
	"shape-mapper/functions"
	"shape-mapper/internal/telemetry"
	"shape-mapper/tree"
)

// Compile validates mf and turns it into an executable mapping. Parser and
// serializer default to a codec.Service reading mf.Input; opts are applied
// after them and may replace them. Validation errors are returned wrapped
// in engine.ErrConfig.
func Compile(mf *MappingFile, reg *functions.Registry, opts ...engine.Option) (*engine.Mapping, error) {
	if reg == nil {
		reg = functions.Builtins()
	}

	if err := Validate(mf, reg).Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrConfig, err)
	}

	svc, err := Codec(mf, false)
	if err != nil {
		return nil, err
	}

	c := &compiler{reg: reg}

	rules, err := c.rules(mf.Rules)
	if err != nil {
		return nil, err
	}

	all := append([]engine.Option{engine.WithParser(svc), engine.WithSerializer(svc)}, opts...)

	return engine.New(mf.Name, rules, all...), nil
}

// Codec returns the codec service matching the file's input format.
func Codec(mf *MappingFile, pretty bool) (*codec.Service, error) {
	opts := []codec.ServiceOption{codec.WithPretty(pretty)}

	if mf.Input != "" {
		f, err := codec.ParseFormat(mf.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", engine.ErrConfig, err)
		}

		opts = append(opts, codec.WithInputFormat(f))
	}

	return codec.NewService(opts...), nil
}

// OutputFormat returns the file's output format, json when unset.
func (mf *MappingFile) OutputFormat() codec.Format {
	f, err := codec.ParseFormat(mf.Output)
	if err != nil {
		return codec.FormatJSON
	}

	return f
}

type compiler struct {
	reg *functions.Registry
}

func (c *compiler) rules(defs []RuleDef) ([]engine.Rule, error) {
	out := make([]engine.Rule, 0, len(defs))

	for _, d := range defs {
		r, err := c.rule(d)
		if err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, nil
}

func (c *compiler) rule(r RuleDef) (engine.Rule, error) {
	switch {
	case r.Map != nil:
		d := r.Map

		rule := engine.Simple{
			Source:    d.Source,
			Target:    d.Target,
			Transform: c.transform(d.Transform),
			When:      c.condition(d.When),
		}

		if d.HasDefault {
			rule.Default = tree.From(d.Default)
		}

		return rule, nil

	case r.Combine != nil:
		d := r.Combine

		rule := engine.Combine{Sources: d.Sources, Target: d.Target, When: c.condition(d.When)}

		switch {
		case d.Transform != nil:
			rule.Combine = c.reg.Combiner(d.Transform.Func, d.Transform.Args...)
		case d.Separator != nil:
			rule.Combine = joinWith(*d.Separator)
		}

		return rule, nil

	case r.Bulk != nil:
		d := r.Bulk

		return engine.Bulk{
			Pattern:   d.Pattern,
			Target:    d.Target,
			Include:   d.Include,
			Exclude:   d.Exclude,
			Flat:      d.Flat,
			Transform: c.fieldTransform(d.Transform),
		}, nil

	case r.Flatten != nil:
		d := r.Flatten

		return engine.Flatten{
			Source:    d.Source,
			Target:    d.Target,
			Prefix:    d.Prefix,
			Include:   d.Include,
			Exclude:   d.Exclude,
			Transform: c.fieldTransform(d.Transform),
		}, nil

	case r.Nest != nil:
		d := r.Nest

		mode, err := parseNestMode(d.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", engine.ErrConfig, err)
		}

		return engine.Nest{
			Pattern:    d.Pattern,
			Target:     d.Target,
			Mode:       mode,
			KeyField:   d.Key,
			ValueField: d.Value,
			SkipNulls:  d.SkipNulls,
			Transform:  c.fieldTransform(d.Transform),
		}, nil

	case r.ForEach != nil:
		d := r.ForEach

		nested, err := c.rules(d.Rules)
		if err != nil {
			return nil, err
		}

		return engine.ForEach{Collection: d.Collection, Item: d.Item, Index: d.Index, Into: d.Into, Rules: nested}, nil

	case r.Collect != nil:
		d := r.Collect

		nested, err := c.rules(d.Rules)
		if err != nil {
			return nil, err
		}

		return engine.Collect{Collection: d.Collection, Item: d.Item, Index: d.Index, Target: d.Target, Rules: nested}, nil

	case r.Log != nil:
		d := r.Log

		level, err := logLevel(d.Level)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", engine.ErrConfig, err)
		}

		return engine.Log{Message: d.Message, Level: level, Paths: d.Paths, When: c.condition(d.When)}, nil

	case r.Branch != nil:
		cases := make([]engine.Case, 0, len(r.Branch.Cases))

		for _, cd := range r.Branch.Cases {
			then, err := c.rules(cd.Rules)
			if err != nil {
				return nil, err
			}

			when := engine.Condition(engine.Otherwise)
			if !cd.Otherwise && cd.When != nil {
				when = c.condition(cd.When)
			}

			cases = append(cases, engine.Case{When: when, Then: then})
		}

		return engine.Branch{Cases: cases}, nil
	}

	return nil, fmt.Errorf("%w: rule of unknown kind %q", engine.ErrConfig, r.Kind)
}

func (c *compiler) transform(t *TransformRef) engine.Transform {
	if t == nil {
		return nil
	}

	return c.reg.Transform(t.Func, t.Args...)
}

func (c *compiler) fieldTransform(t *TransformRef) engine.FieldTransform {
	if t == nil {
		return nil
	}

	return c.reg.FieldTransform(t.Func, t.Args...)
}

// joinWith joins the text of present, non-null values with sep. Nothing
// is written when every value is missing.
func joinWith(sep string) engine.CombineFunc {
	return func(values []*tree.Node) (*tree.Node, error) {
		var parts []string

		for _, v := range values {
			if v == nil || v.IsNull() {
				continue
			}

			parts = append(parts, v.Text())
		}

		if len(parts) == 0 {
			return nil, nil
		}

		return tree.String(strings.Join(parts, sep)), nil
	}
}

func parseNestMode(s string) (engine.NestMode, error) {
	switch s {
	case "", "object":
		return engine.NestObject, nil
	case "collection":
		return engine.NestCollection, nil
	case "grouped":
		return engine.NestGrouped, nil
	default:
		return 0, fmt.Errorf("unknown nest mode %q, expected one of %s", s, strings.Join(nestModes(), ", "))
	}
}

func nestModes() []string {
	return []string{
		engine.NestObject.String(),
		engine.NestCollection.String(),
		engine.NestGrouped.String(),
	}
}

// condition compiles a declarative condition. Values that cannot be
// compared make the condition false. Errors from condition functions are
// returned.
func (c *compiler) condition(def *ConditionDef) engine.Condition {
	if def == nil {
		return nil
	}

	var checks []engine.Condition

	if def.Path != "" {
		checks = append(checks, c.valueChecks(def)...)
	} else if def.Func != "" {
		name, args := def.Func, def.Args
		checks = append(checks, func(*engine.Context) (bool, error) {
			return c.reg.Predicate(name, args...)
		})
	}

	for i := range def.All {
		checks = append(checks, c.condition(&def.All[i]))
	}

	if len(def.Any) > 0 {
		anyOf := make([]engine.Condition, len(def.Any))
		for i := range def.Any {
			anyOf[i] = c.condition(&def.Any[i])
		}

		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			for _, cond := range anyOf {
				if ok, err := cond(ctx); ok || err != nil {
					return ok, err
				}
			}

			return false, nil
		})
	}

	if def.Not != nil {
		inner := c.condition(def.Not)
		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			ok, err := inner(ctx)
			return !ok && err == nil, err
		})
	}

	return func(ctx *engine.Context) (bool, error) {
		for _, check := range checks {
			if ok, err := check(ctx); !ok {
				return false, err
			}
		}

		return true, nil
	}
}

// valueChecks compiles the operators applied to the value at def.Path. A
// path without operators tests existence.
func (c *compiler) valueChecks(def *ConditionDef) []engine.Condition {
	path := def.Path
	at := func(ctx *engine.Context) (*tree.Node, bool) { return ctx.Resolve(path) }

	var checks []engine.Condition

	if def.Exists != nil || (!def.hasOperator() && def.Func == "") {
		want := def.Exists == nil || *def.Exists
		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			_, ok := at(ctx)
			return ok == want, nil
		})
	}

	if def.HasEquals {
		want := tree.From(def.Equals)
		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			v, ok := at(ctx)
			return ok && tree.Equal(v, want), nil
		})
	}

	if def.HasNotEquals {
		unwanted := tree.From(def.NotEquals)
		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			v, ok := at(ctx)
			return !ok || !tree.Equal(v, unwanted), nil
		})
	}

	if def.In != nil {
		set := make([]*tree.Node, len(def.In))
		for i, e := range def.In {
			set[i] = tree.From(e)
		}

		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			v, ok := at(ctx)
			if !ok {
				return false, nil
			}

			for _, e := range set {
				if tree.Equal(v, e) {
					return true, nil
				}
			}

			return false, nil
		})
	}

	if def.Matches != "" {
		re := regexp.MustCompile(def.Matches)
		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			v, ok := at(ctx)
			return ok && !v.IsObject() && !v.IsArray() && !v.IsNull() && re.MatchString(v.Text()), nil
		})
	}

	if def.Gt != nil {
		bound := *def.Gt
		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			f, ok := number(at(ctx))
			return ok && f > bound, nil
		})
	}

	if def.Lt != nil {
		bound := *def.Lt
		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			f, ok := number(at(ctx))
			return ok && f < bound, nil
		})
	}

	if def.Func != "" {
		name, args := def.Func, def.Args
		checks = append(checks, func(ctx *engine.Context) (bool, error) {
			v, ok := at(ctx)
			if !ok {
				v = tree.Null()
			}

			return c.reg.Predicate(name, append([]any{v}, args...)...)
		})
	}

	return checks
}

// number reads numbers and numeric strings.
func number(v *tree.Node, ok bool) (float64, bool) {
	if !ok || v.IsNull() || v.IsObject() || v.IsArray() {
		return 0, false
	}

	if f, isNum := v.AsNumber(); isNum {
		return f, true
	}

	f, err := cast.ToFloat64E(strings.TrimSpace(v.Text()))

	return f, err == nil
}

var logLevels = []string{"debug", "info", "warn", "error"}

func logLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}

	return telemetry.ParseLevel(name)
}
