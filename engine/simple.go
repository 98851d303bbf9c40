package engine

import (
	"strings"

	"shape-mapper/tree"
)

// Simple copies the value at Source to Target.
//
// When is checked first. A missing source writes Default when one is set
// and is skipped otherwise. Transform, when set, is applied to found values
// but not to Default.
type Simple struct {
	Source    string
	Target    string
	Transform Transform
	When      Condition
	Default   *tree.Node
}

func (r Simple) Kind() string { return KindSimple }

func (r Simple) Apply(ctx *Context, target *tree.Node) error {
	if ok, err := holds(KindSimple, r.When, ctx); !ok {
		return err
	}

	v, ok := ctx.Resolve(r.Source)
	if !ok {
		if r.Default == nil {
			return nil
		}

		return write(KindSimple, target, r.Target, r.Default)
	}

	if r.Transform != nil {
		out, err := r.Transform(v)
		if err != nil {
			return failure(KindSimple, r.Source, err)
		}

		if out == nil {
			return nil
		}

		v = out
	}

	return write(KindSimple, target, r.Target, v)
}

// Combine merges the values of several sources into Target.
//
// Missing sources are passed to Combine as nil entries. Without Combine the
// text of every present, non-null value is joined with a single space. A nil
// result is not written.
type Combine struct {
	Sources []string
	Target  string
	Combine CombineFunc
	When    Condition
}

func (r Combine) Kind() string { return KindCombine }

func (r Combine) Apply(ctx *Context, target *tree.Node) error {
	if ok, err := holds(KindCombine, r.When, ctx); !ok {
		return err
	}

	values := make([]*tree.Node, len(r.Sources))
	for i, src := range r.Sources {
		if v, ok := ctx.Resolve(src); ok {
			values[i] = v
		}
	}

	fn := r.Combine
	if fn == nil {
		fn = joinText
	}

	out, err := fn(values)
	if err != nil {
		return failure(KindCombine, r.Target, err)
	}

	if out == nil {
		return nil
	}

	return write(KindCombine, target, r.Target, out)
}

func joinText(values []*tree.Node) (*tree.Node, error) {
	parts := make([]string, 0, len(values))

	for _, v := range values {
		if v == nil || v.IsNull() {
			continue
		}

		parts = append(parts, v.Text())
	}

	if len(parts) == 0 {
		return nil, nil
	}

	return tree.String(strings.Join(parts, " ")), nil
}

// Case is one alternative of a Branch. A nil When always holds.
type Case struct {
	When Condition
	Then []Rule
}

// Branch applies the rules of the first case whose condition holds. Later
// cases are skipped; when none holds nothing is written.
type Branch struct {
	Cases []Case
}

func (r Branch) Kind() string { return KindBranch }

func (r Branch) Apply(ctx *Context, target *tree.Node) error {
	for _, c := range r.Cases {
		ok, err := holds(KindBranch, c.When, ctx)
		if err != nil {
			return err
		}

		if ok {
			return ApplyAll(ctx, target, c.Then)
		}
	}

	return nil
}
