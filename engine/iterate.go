package engine

import (
	"shape-mapper/internal/pathexpr"
	"shape-mapper/tree"
)

// DefaultItemName is the variable an iteration binds when no name is set.
const DefaultItemName = "item"

// ForEach applies Rules once per element of the array at Collection. Each
// iteration binds the element as $Item, and its position as $Index when
// Index is set.
//
// Without Into the nested rules write into the shared target, so writes
// accumulate across iterations. With Into every iteration writes into a
// fresh object that is appended, if not empty, to the array at Into.
//
// A missing or non-array collection is skipped.
type ForEach struct {
	Collection string
	Item       string
	Index      string
	Into       string
	Rules      []Rule
}

func (r ForEach) Kind() string { return KindForEach }

func (r ForEach) Apply(ctx *Context, target *tree.Node) error {
	coll, ok := ctx.Resolve(r.Collection)
	if !ok || !coll.IsArray() {
		return nil
	}

	var produced []*tree.Node

	for i, elem := range coll.Elements() {
		child := bindItem(ctx, r.Item, r.Index, i, elem)

		if r.Into == "" {
			if err := ApplyAll(child, target, r.Rules); err != nil {
				return err
			}

			continue
		}

		out := tree.NewObject()
		if err := ApplyAll(child, out, r.Rules); err != nil {
			return err
		}

		if out.Len() > 0 {
			produced = append(produced, out)
		}
	}

	if len(produced) == 0 {
		return nil
	}

	if existing, ok := pathexpr.Get(target, r.Into); ok && existing.IsArray() {
		existing.Append(produced...)
		return nil
	}

	return failure(KindForEach, r.Into, pathexpr.Set(target, r.Into, tree.NewArray(produced...)))
}

// Collect builds a new array at Target holding one object per element of
// the array at Collection. Each object is produced by applying Rules with
// the element bound as $Item.
//
// A missing, non-array or empty collection is skipped.
type Collect struct {
	Collection string
	Item       string
	Index      string
	Target     string
	Rules      []Rule
}

func (r Collect) Kind() string { return KindCollect }

func (r Collect) Apply(ctx *Context, target *tree.Node) error {
	coll, ok := ctx.Resolve(r.Collection)
	if !ok || !coll.IsArray() || coll.Len() == 0 {
		return nil
	}

	out := tree.NewArray()

	for i, elem := range coll.Elements() {
		obj := tree.NewObject()
		if err := ApplyAll(bindItem(ctx, r.Item, r.Index, i, elem), obj, r.Rules); err != nil {
			return err
		}

		out.Append(obj)
	}

	return failure(KindCollect, r.Target, pathexpr.Set(target, r.Target, out))
}

func bindItem(ctx *Context, item, index string, i int, elem *tree.Node) *Context {
	if item == "" {
		item = DefaultItemName
	}

	child := ctx.With(item, elem)
	if index != "" {
		child = child.With(index, tree.Number(float64(i)))
	}

	return child
}
