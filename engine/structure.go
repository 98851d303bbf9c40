package engine

import (
	"strings"

	"shape-mapper/internal/pathexpr"
	"shape-mapper/tree"
)

// Bulk copies every match of Pattern into the target.
//
// Matches are filtered with Exclude and then Include globs. By default the
// structure below the pattern's fixed prefix is preserved under Target;
// with Flat every match is written as Target.<field name>.
type Bulk struct {
	Pattern   string
	Target    string
	Include   []string
	Exclude   []string
	Flat      bool
	Transform FieldTransform
}

func (r Bulk) Kind() string { return KindBulk }

func (r Bulk) Apply(ctx *Context, target *tree.Node) error {
	root, pattern, ok := ctx.Root(r.Pattern)
	if !ok {
		return nil
	}

	filter := pathexpr.NewFilter(r.Include, r.Exclude)
	prefix := pathexpr.FixedPrefix(pattern)

	for _, m := range pathexpr.FindMatches(root, pattern) {
		if !filter.Allows(m.Path) {
			continue
		}

		field := m.FieldName()

		var dest string
		if r.Flat {
			dest = pathexpr.Join(r.Target, field)
		} else {
			rel, ok := pathexpr.Relative(m.Path, prefix)
			if !ok {
				rel = field
			}

			dest = pathexpr.Join(r.Target, rel)
		}

		if dest == "" {
			continue
		}

		v := m.Value
		if r.Transform != nil {
			out, err := r.Transform(field, v)
			if err != nil {
				return failure(KindBulk, m.Path, err)
			}

			if out == nil {
				continue
			}

			v = out
		}

		if err := write(KindBulk, target, dest, v); err != nil {
			return err
		}
	}

	return nil
}

// Flatten writes every leaf of the object at Source into the object at
// Target. Keys are Prefix followed by the leaf's relative path with dots
// replaced by underscores.
//
// Filters see both the relative and the absolute source path. An excluded
// object is skipped with everything below it; inclusions apply to leaves.
type Flatten struct {
	Source    string
	Target    string
	Prefix    string
	Include   []string
	Exclude   []string
	Transform FieldTransform
}

func (r Flatten) Kind() string { return KindFlatten }

func (r Flatten) Apply(ctx *Context, target *tree.Node) error {
	src, ok := ctx.Resolve(r.Source)
	if !ok || !src.IsObject() {
		return nil
	}

	dest, err := objectAt(KindFlatten, target, r.Target)
	if err != nil {
		return err
	}

	f := flattener{rule: r, filter: pathexpr.NewFilter(r.Include, r.Exclude), dest: dest}

	return f.walk(src, "")
}

type flattener struct {
	rule   Flatten
	filter pathexpr.Filter
	dest   *tree.Node
}

func (f flattener) walk(n *tree.Node, rel string) error {
	for k, child := range n.Fields() {
		relPath := pathexpr.Join(rel, k)
		absPath := pathexpr.Join(f.rule.Source, relPath)

		if f.filter.Excluded(relPath, absPath) {
			continue
		}

		if child.IsObject() {
			if err := f.walk(child, relPath); err != nil {
				return err
			}

			continue
		}

		if !f.filter.Included(relPath, absPath) {
			continue
		}

		key := f.rule.Prefix + strings.ReplaceAll(relPath, ".", "_")

		v := child
		if f.rule.Transform != nil {
			out, err := f.rule.Transform(key, v)
			if err != nil {
				return failure(KindFlatten, absPath, err)
			}

			if out == nil {
				continue
			}

			v = out
		}

		f.dest.Set(key, v.Clone())
	}

	return nil
}

// NestMode selects the shape Nest builds.
type NestMode int

const (
	// NestObject builds one object mapping field names to values.
	NestObject NestMode = iota
	// NestCollection builds an array with one small object per match.
	NestCollection
	// NestGrouped groups matches by the path segment at the pattern's first
	// wildcard and builds one object per group.
	NestGrouped
)

func (m NestMode) String() string {
	switch m {
	case NestObject:
		return "object"
	case NestCollection:
		return "collection"
	case NestGrouped:
		return "grouped"
	default:
		return "unknown"
	}
}

// DefaultValueField is the value key used by NestCollection when
// ValueField is empty.
const DefaultValueField = "value"

// Nest folds the matches of Pattern into a new structure written at Target.
// Without matches nothing is written.
//
// In collection mode each element is {KeyField: field, ValueField: value},
// the key entry being omitted when KeyField is empty. In grouped mode
// KeyField, when set, receives the group identifier.
type Nest struct {
	Pattern    string
	Target     string
	Mode       NestMode
	KeyField   string
	ValueField string
	Transform  FieldTransform
	SkipNulls  bool
}

func (r Nest) Kind() string { return KindNest }

func (r Nest) Apply(ctx *Context, target *tree.Node) error {
	root, pattern, ok := ctx.Root(r.Pattern)
	if !ok {
		return nil
	}

	matches := pathexpr.FindMatches(root, pattern)
	if len(matches) == 0 {
		return nil
	}

	var (
		out *tree.Node
		err error
	)

	switch r.Mode {
	case NestCollection:
		out, err = r.collection(matches)
	case NestGrouped:
		out, err = r.grouped(pattern, matches)
	default:
		out, err = r.object(matches)
	}

	if err != nil {
		return err
	}

	return failure(KindNest, r.Target, pathexpr.Set(target, r.Target, out))
}

// value applies the transform and null filtering. A nil result means skip.
func (r Nest) value(m pathexpr.Match) (*tree.Node, error) {
	v := m.Value

	if r.Transform != nil {
		out, err := r.Transform(m.FieldName(), v)
		if err != nil {
			return nil, failure(KindNest, m.Path, err)
		}

		v = out
	}

	if v == nil || (r.SkipNulls && v.IsNull()) {
		return nil, nil
	}

	return v.Clone(), nil
}

func (r Nest) object(matches []pathexpr.Match) (*tree.Node, error) {
	obj := tree.NewObject()

	for _, m := range matches {
		v, err := r.value(m)
		if err != nil {
			return nil, err
		}

		if v != nil {
			obj.Set(m.FieldName(), v)
		}
	}

	return obj, nil
}

func (r Nest) collection(matches []pathexpr.Match) (*tree.Node, error) {
	valueField := r.ValueField
	if valueField == "" {
		valueField = DefaultValueField
	}

	arr := tree.NewArray()

	for _, m := range matches {
		v, err := r.value(m)
		if err != nil {
			return nil, err
		}

		if v == nil {
			continue
		}

		elem := tree.NewObject()
		if r.KeyField != "" {
			elem.Set(r.KeyField, tree.String(m.FieldName()))
		}

		elem.Set(valueField, v)
		arr.Append(elem)
	}

	return arr, nil
}

func (r Nest) grouped(pattern string, matches []pathexpr.Match) (*tree.Node, error) {
	at := wildcardIndex(pattern)

	var (
		order  []string
		groups = make(map[string]*tree.Node)
	)

	for _, m := range matches {
		v, err := r.value(m)
		if err != nil {
			return nil, err
		}

		if v == nil {
			continue
		}

		id := groupID(m.Path, at)

		group, ok := groups[id]
		if !ok {
			group = tree.NewObject()
			if r.KeyField != "" {
				group.Set(r.KeyField, tree.String(id))
			}

			groups[id] = group
			order = append(order, id)
		}

		group.Set(m.FieldName(), v)
	}

	arr := tree.NewArray()
	for _, id := range order {
		arr.Append(groups[id])
	}

	return arr, nil
}

// wildcardIndex returns the position of the first dotted segment holding a
// wildcard, or -1.
func wildcardIndex(pattern string) int {
	for i, seg := range strings.Split(pattern, ".") {
		if strings.Contains(seg, "*") {
			return i
		}
	}

	return -1
}

func groupID(path string, at int) string {
	segs := strings.Split(path, ".")
	if at < 0 || at >= len(segs) {
		return ""
	}

	return segs[at]
}
