// Package pathexpr resolves, writes and matches dotted paths over trees.
//
// A path is a sequence of dot-separated segments. Each segment is an object
// key optionally followed by one or more array indexes:
//
//	user.name
//	items[0].price
//	matrix[1][2]
//
// Patterns used by FindMatches may also contain the wildcards "*" (exactly
// one object key) and "**" (any depth). Include/exclude filters use a
// separate glob syntax, see Filter.
package pathexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shape-mapper/tree"
)

var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("invalid path")
)

// Segment is one dotted part of a path: a key plus optional indexes.
type Segment struct {
	Key     string
	Indexes []int
}

// String renders the segment back into path notation.
func (s Segment) String() string {
	var sb strings.Builder

	sb.WriteString(s.Key)

	for _, i := range s.Indexes {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte(']')
	}

	return sb.String()
}

// Path is a parsed path.
type Path []Segment

// String renders the path back into dotted notation.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}

	return strings.Join(parts, ".")
}

// Parse parses a dotted path. The empty string parses to an empty Path,
// which addresses the root.
func Parse(path string) (Path, error) {
	if path == "" {
		return Path{}, nil
	}

	var segments Path

	for part := range strings.SplitSeq(path, ".") {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPath, path, err)
		}

		segments = append(segments, seg)
	}

	return segments, nil
}

func parseSegment(part string) (Segment, error) {
	if part == "" {
		return Segment{}, errors.New("empty segment")
	}

	open := strings.IndexByte(part, '[')
	if open < 0 {
		if strings.IndexByte(part, ']') >= 0 {
			return Segment{}, fmt.Errorf("unexpected ']' in %q", part)
		}

		return Segment{Key: part}, nil
	}

	seg := Segment{Key: part[:open]}
	rest := part[open:]

	for rest != "" {
		if rest[0] != '[' {
			return Segment{}, fmt.Errorf("unexpected %q after index in %q", rest, part)
		}

		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Segment{}, fmt.Errorf("unterminated index in %q", part)
		}

		idx, err := strconv.Atoi(rest[1:end])
		if err != nil || idx < 0 {
			return Segment{}, fmt.Errorf("index %q in %q is not a non-negative integer", rest[1:end], part)
		}

		seg.Indexes = append(seg.Indexes, idx)
		rest = rest[end+1:]
	}

	return seg, nil
}

// Validate reports whether path is syntactically valid.
func Validate(path string) error {
	_, err := Parse(path)
	return err
}

// Get resolves path against root. A missing segment, an index out of range
// or a malformed path all yield (nil, false). A present null is returned as
// a value.
func Get(root *tree.Node, path string) (*tree.Node, bool) {
	p, err := Parse(path)
	if err != nil {
		return nil, false
	}

	return p.Get(root)
}

// Get resolves the parsed path against root.
func (p Path) Get(root *tree.Node) (*tree.Node, bool) {
	if root == nil {
		return nil, false
	}

	cur := root

	for _, seg := range p {
		next, ok := cur, true
		if seg.Key != "" {
			next, ok = cur.Get(seg.Key)
		}

		if !ok {
			return nil, false
		}

		for _, i := range seg.Indexes {
			next, ok = next.Index(i)
			if !ok {
				return nil, false
			}
		}

		cur = next
	}

	return cur, true
}

// Set writes v at path inside root, creating intermediate objects as needed.
// An intermediate that is not an object is replaced by a new object. Indexed
// segments create or extend arrays, padding with nulls.
//
// The value is stored as is; callers copying nodes out of another tree must
// Clone them first.
func Set(root *tree.Node, path string, v *tree.Node) error {
	p, err := Parse(path)
	if err != nil {
		return err
	}

	return p.Set(root, v)
}

// Set writes v at the parsed path inside root.
func (p Path) Set(root *tree.Node, v *tree.Node) error {
	if len(p) == 0 {
		return ErrEmptyPath
	}

	if !root.IsObject() {
		return fmt.Errorf("%w: cannot write %q into a %s", ErrInvalidPath, p.String(), root.Kind())
	}

	cur := root

	for i, seg := range p {
		last := i == len(p)-1

		if seg.Key == "" {
			return fmt.Errorf("%w: %q has a segment without a key", ErrInvalidPath, p.String())
		}

		if len(seg.Indexes) == 0 {
			if last {
				cur.Set(seg.Key, v)
				return nil
			}

			cur = childObject(cur, seg.Key)

			continue
		}

		arr, ok := cur.Get(seg.Key)
		if !ok || !arr.IsArray() {
			arr = tree.NewArray()
			cur.Set(seg.Key, arr)
		}

		for j, idx := range seg.Indexes {
			innermost := j == len(seg.Indexes)-1

			switch {
			case innermost && last:
				arr.SetIndex(idx, v)
				return nil
			case innermost:
				elem, _ := arr.Index(idx)
				if !elem.IsObject() {
					elem = tree.NewObject()
					arr.SetIndex(idx, elem)
				}

				cur = elem
			default:
				elem, _ := arr.Index(idx)
				if !elem.IsArray() {
					elem = tree.NewArray()
					arr.SetIndex(idx, elem)
				}

				arr = elem
			}
		}
	}

	return nil
}

// childObject returns the object stored under key, replacing whatever else
// is there with a fresh object.
func childObject(parent *tree.Node, key string) *tree.Node {
	child, ok := parent.Get(key)
	if ok && child.IsObject() {
		return child
	}

	child = tree.NewObject()
	parent.Set(key, child)

	return child
}

// Join appends key to a dotted base path.
func Join(base, key string) string {
	if base == "" {
		return key
	}

	if key == "" {
		return base
	}

	return base + "." + key
}

// LastSegment returns the part of path after its final dot.
func LastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}

	return path
}
