package mapping

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"shape-mapper/codec"
	"shape-mapper/engine"
	"shape-mapper/functions"
	"shape-mapper/internal/diagnostic"
	"shape-mapper/internal/match"
	"shape-mapper/internal/pathexpr"
)

// Validate checks a mapping file for everything that would make Compile
// fail, plus likely mistakes reported as warnings. Function references are
// only checked when reg is not nil.
func Validate(mf *MappingFile, reg *functions.Registry) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	if mf == nil {
		res.AddError(diagnostic.CodeParse, "mapping file is nil", "", "")
		return res
	}

	for _, f := range []struct{ field, value string }{{"input", mf.Input}, {"output", mf.Output}} {
		if f.value == "" {
			continue
		}

		if _, err := codec.ParseFormat(f.value); err != nil {
			res.AddError(diagnostic.CodeFormat, fmt.Sprintf("unknown %s format %q", f.field, f.value), "", "",
				match.Suggest(f.value, formatNames(), 1)...)
		}
	}

	if len(mf.Rules) == 0 {
		res.AddWarning(diagnostic.CodeNoRules, "mapping has no rules and always produces an empty object", "", "")
	}

	v := &validator{res: res, reg: reg}
	v.rules(mf.Rules, "rules", nil)

	return res
}

func formatNames() []string {
	var names []string
	for _, f := range codec.Formats() {
		names = append(names, string(f))
	}

	return names
}

type validator struct {
	res *diagnostic.Diagnostics
	reg *functions.Registry
}

func (v *validator) rules(rules []RuleDef, parent string, scope []string) {
	for i, r := range rules {
		v.rule(r, fmt.Sprintf("%s[%d]", parent, i), scope)
	}
}

func (v *validator) rule(r RuleDef, at string, scope []string) {
	base := at
	if r.Kind != "" {
		base += "." + r.Kind
	}

	loc := base
	if r.Line > 0 {
		loc += fmt.Sprintf(" (line %d)", r.Line)
	}

	if r.Kind == "" {
		var suggestions []string
		for _, k := range r.Unused {
			suggestions = append(suggestions, match.Suggest(k, Kinds, 1)...)
		}

		v.res.AddError(diagnostic.CodeUnknownKind,
			fmt.Sprintf("rule has none of the keys %s", strings.Join(Kinds, ", ")), loc, "", suggestions...)

		return
	}

	if len(r.Conflicts) > 0 {
		v.res.AddError(diagnostic.CodeAmbiguousKind,
			fmt.Sprintf("rule has several kind keys: %s and %s", r.Kind, strings.Join(r.Conflicts, ", ")), loc, "")
	}

	for _, k := range r.Unused {
		v.res.AddWarning(diagnostic.CodeUnknownField, fmt.Sprintf("unknown key %q is ignored", k), loc, "",
			match.Suggest(k, ruleFields[r.Kind], 1)...)
	}

	switch {
	case r.Map != nil:
		d := r.Map
		v.source(d.Source, loc, scope)
		v.target(d.Target, loc, true)
		v.transform(d.Transform, 1, loc)
		v.condition(d.When, loc, scope)

	case r.Combine != nil:
		d := r.Combine
		if len(d.Sources) == 0 {
			v.res.AddError(diagnostic.CodeMissingField, "combine needs at least one source", loc, "")
		}

		for _, s := range d.Sources {
			v.source(s, loc, scope)
		}

		v.target(d.Target, loc, true)
		v.transform(d.Transform, len(d.Sources), loc)
		v.condition(d.When, loc, scope)

		if d.Transform != nil && d.Separator != nil {
			v.res.AddWarning(diagnostic.CodeInvalidValue, "separator is ignored when a transform is set", loc, "")
		}

	case r.Bulk != nil:
		d := r.Bulk
		v.pattern(d.Pattern, loc, scope)
		v.target(d.Target, loc, false)
		v.transform(d.Transform, 1, loc)

		if d.Pattern != "" && !pathexpr.HasWildcard(d.Pattern) {
			v.res.AddInfo(diagnostic.CodeInvalidValue, "pattern has no wildcard and matches at most one path", loc, d.Pattern)
		}

	case r.Flatten != nil:
		d := r.Flatten
		v.source(d.Source, loc, scope)
		v.target(d.Target, loc, false)
		v.transform(d.Transform, 1, loc)

	case r.Nest != nil:
		d := r.Nest
		v.pattern(d.Pattern, loc, scope)
		v.target(d.Target, loc, true)
		v.transform(d.Transform, 1, loc)

		mode, err := parseNestMode(d.Mode)
		if err != nil {
			v.res.AddError(diagnostic.CodeInvalidValue, err.Error(), loc, "",
				match.Suggest(d.Mode, nestModes(), 1)...)
		} else if mode == engine.NestGrouped && !pathexpr.HasWildcard(d.Pattern) {
			v.res.AddError(diagnostic.CodeInvalidValue, "grouped mode needs a wildcard to group by", loc, d.Pattern)
		}

	case r.ForEach != nil:
		d := r.ForEach
		v.source(d.Collection, loc, scope)

		if d.Into != "" {
			v.target(d.Into, loc, true)
		}

		v.rules(d.Rules, base+".rules", v.bind(scope, d.Item, d.Index, loc))

	case r.Collect != nil:
		d := r.Collect
		v.source(d.Collection, loc, scope)
		v.target(d.Target, loc, true)
		v.rules(d.Rules, base+".rules", v.bind(scope, d.Item, d.Index, loc))

	case r.Branch != nil:
		v.branch(r.Branch, base, scope)

	case r.Log != nil:
		d := r.Log
		if strings.TrimSpace(d.Message) == "" {
			v.res.AddError(diagnostic.CodeMissingField, "log needs a message", loc, "")
		}

		if _, err := logLevel(d.Level); err != nil {
			v.res.AddError(diagnostic.CodeInvalidValue, err.Error(), loc, "",
				match.Suggest(d.Level, logLevels, 1)...)
		}

		for _, p := range d.Paths {
			v.source(p, loc, scope)
		}

		v.condition(d.When, loc, scope)
	}
}

func (v *validator) branch(d *BranchDef, loc string, scope []string) {
	if len(d.Cases) == 0 {
		v.res.AddWarning(diagnostic.CodeMissingField, "branch has no cases", loc, "")
	}

	for i, c := range d.Cases {
		at := fmt.Sprintf("%s[%d]", loc, i)

		always := c.Otherwise || c.When == nil
		if always && i < len(d.Cases)-1 {
			v.res.AddWarning(diagnostic.CodeInvalidValue,
				fmt.Sprintf("case always holds, the %d case(s) after it never run", len(d.Cases)-1-i), at, "")
		}

		if c.Otherwise && c.When != nil {
			v.res.AddWarning(diagnostic.CodeInvalidValue, "when is ignored on an otherwise case", at, "")
		}

		v.condition(c.When, at, scope)
		v.rules(c.Rules, at+".rules", scope)
	}
}

// bind returns scope extended with the loop variables of an iteration.
func (v *validator) bind(scope []string, item, index, loc string) []string {
	if item == "" {
		item = engine.DefaultItemName
	}

	names := []string{item}
	if index != "" {
		names = append(names, index)
	}

	for _, name := range names {
		if strings.ContainsAny(name, "$.[] ") {
			v.res.AddError(diagnostic.CodeInvalidValue, fmt.Sprintf("variable name %q must be a plain identifier", name), loc, "")
		}

		if slices.Contains(scope, name) {
			v.res.AddWarning(diagnostic.CodeShadowedVar, fmt.Sprintf("variable %s shadows an outer one", name), loc, "")
		}
	}

	return append(slices.Clone(scope), names...)
}

func (v *validator) source(path, loc string, scope []string) {
	if path == "" {
		v.res.AddError(diagnostic.CodeMissingField, "source path is required", loc, "")
		return
	}

	if engine.IsLiteral(path) {
		return
	}

	rest := v.variable(path, loc, scope)
	if rest == "" {
		return
	}

	if err := pathexpr.Validate(rest); err != nil {
		v.res.AddError(diagnostic.CodeInvalidPath, err.Error(), loc, path)
	}
}

func (v *validator) pattern(pattern, loc string, scope []string) {
	if pattern == "" {
		v.res.AddError(diagnostic.CodeMissingField, "pattern is required", loc, "")
		return
	}

	rest := v.variable(pattern, loc, scope)
	if rest == "" {
		return
	}

	if err := pathexpr.ValidatePattern(rest); err != nil {
		v.res.AddError(diagnostic.CodeInvalidPath, err.Error(), loc, pattern)
	}
}

// variable checks the variable a path starts with, if any, and returns the
// part of the path still to validate.
func (v *validator) variable(path, loc string, scope []string) string {
	name, rest, isVar := engine.SplitRef(path)
	if !isVar || name == "" {
		return rest
	}

	if !slices.Contains(scope, name) {
		v.res.AddWarning(diagnostic.CodeInvalidPath, fmt.Sprintf("variable $%s is not bound here", name), loc, path,
			match.Suggest(name, scope, 1)...)
	}

	return rest
}

func (v *validator) target(path, loc string, required bool) {
	if path == "" {
		if required {
			v.res.AddError(diagnostic.CodeMissingField, "target path is required", loc, "")
		}

		return
	}

	if strings.HasPrefix(path, "$") || engine.IsLiteral(path) {
		v.res.AddError(diagnostic.CodeInvalidPath, "target must be a path into the result", loc, path)
		return
	}

	if err := pathexpr.Validate(path); err != nil {
		v.res.AddError(diagnostic.CodeInvalidPath, err.Error(), loc, path)
	}
}

// transform checks that t names a known function accepting values plus
// its extra arguments.
func (v *validator) transform(t *TransformRef, values int, loc string) {
	if t == nil {
		return
	}

	if t.Func == "" {
		v.res.AddError(diagnostic.CodeMissingField, "transform needs a function name", loc, "")
		return
	}

	v.function(t.Func, values+len(t.Args), loc)
}

func (v *validator) function(name string, args int, loc string) {
	if v.reg == nil {
		return
	}

	if !v.reg.Has(name) {
		v.res.AddError(diagnostic.CodeUnknownFunction, fmt.Sprintf("unknown function %s", name), loc, "",
			match.Suggest(name, v.reg.Names(), 3)...)

		return
	}

	if err := v.reg.CheckArity(name, args); err != nil {
		v.res.AddError(diagnostic.CodeArity, err.Error(), loc, "")
	}
}

func (v *validator) condition(c *ConditionDef, loc string, scope []string) {
	if c == nil {
		return
	}

	for _, k := range c.Unknown {
		v.res.AddError(diagnostic.CodeUnknownField, fmt.Sprintf("unknown condition key %q", k), loc, "",
			match.Suggest(k, conditionFields, 1)...)
	}

	combinators := len(c.All) + len(c.Any)
	if c.Not != nil {
		combinators++
	}

	if c.Path == "" && combinators == 0 && c.Func == "" {
		v.res.AddError(diagnostic.CodeMissingField, "condition needs a path, a function or all/any/not", loc, "")
	}

	if c.Path != "" {
		v.source(c.Path, loc, scope)
	} else if c.hasOperator() {
		v.res.AddError(diagnostic.CodeMissingField, "condition operators need a path", loc, "")
	}

	if c.Matches != "" {
		if _, err := regexp.Compile(c.Matches); err != nil {
			v.res.AddError(diagnostic.CodeInvalidValue, fmt.Sprintf("invalid regular expression: %v", err), loc, c.Path)
		}
	}

	if c.Func != "" {
		args := len(c.Args)
		if c.Path != "" {
			args++
		}

		v.function(c.Func, args, loc)
	}

	for i := range c.All {
		v.condition(&c.All[i], loc, scope)
	}

	for i := range c.Any {
		v.condition(&c.Any[i], loc, scope)
	}

	v.condition(c.Not, loc, scope)
}

func (c *ConditionDef) hasOperator() bool {
	return c.Exists != nil || c.HasEquals || c.HasNotEquals || c.In != nil ||
		c.Matches != "" || c.Gt != nil || c.Lt != nil
}
