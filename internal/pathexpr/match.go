package pathexpr

import (
	"fmt"
	"strconv"
	"strings"

	"shape-mapper/tree"
)

// Match is one location found by FindMatches.
type Match struct {
	// Path is the concrete dotted path of the matched node.
	Path string
	// Value is the matched node inside the searched tree.
	Value *tree.Node
	// Pattern is the pattern that produced the match.
	Pattern string
}

// FieldName returns the last dotted segment of the match path.
func (m Match) FieldName() string {
	return LastSegment(m.Path)
}

// HasWildcard reports whether pattern contains "*" or "**".
func HasWildcard(pattern string) bool {
	return strings.Contains(pattern, "*")
}

// ValidatePattern reports whether pattern is well formed. Segments may be
// or contain "*" and "**", and indexes may be "[*]"; everything else follows
// Parse.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return ErrEmptyPath
	}

	for part := range strings.SplitSeq(strings.ReplaceAll(pattern, "[*]", "[0]"), ".") {
		if _, err := parseSegment(part); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidPath, pattern, err)
		}
	}

	return nil
}

// FixedPrefix returns the segments of pattern that precede the first
// wildcard segment, joined with dots.
func FixedPrefix(pattern string) string {
	if !HasWildcard(pattern) {
		return pattern
	}

	var fixed []string

	for seg := range strings.SplitSeq(pattern, ".") {
		if strings.Contains(seg, "*") {
			break
		}

		fixed = append(fixed, seg)
	}

	return strings.Join(fixed, ".")
}

// Relative strips prefix from path on a segment boundary. It returns false
// when path neither equals nor descends from prefix.
func Relative(path, prefix string) (string, bool) {
	switch {
	case prefix == "":
		return path, true
	case path == prefix:
		return "", true
	case strings.HasPrefix(path, prefix+"."):
		return path[len(prefix)+1:], true
	default:
		return "", false
	}
}

// FindMatches returns every location in root that pattern selects, in
// depth-first pre-order.
//
// Without wildcards the pattern is a literal path and yields one match iff
// it exists. A "*" segment stands for exactly one object key; matches have
// the same number of dotted segments as the pattern. "**" splits the pattern
// into a prefix and a suffix: every node at or below prefix is considered,
// and when a suffix is given only nodes whose path equals it or ends with
// "."+suffix are kept.
func FindMatches(root *tree.Node, pattern string) []Match {
	if root == nil {
		return nil
	}

	if !HasWildcard(pattern) {
		v, ok := Get(root, pattern)
		if !ok {
			return nil
		}

		return []Match{{Path: pattern, Value: v, Pattern: pattern}}
	}

	if idx := strings.Index(pattern, "**"); idx >= 0 {
		return matchDeep(root, pattern, idx)
	}

	return matchShallow(root, pattern)
}

func matchDeep(root *tree.Node, pattern string, idx int) []Match {
	prefix := strings.Trim(pattern[:idx], ".")
	suffix := strings.Trim(pattern[idx+2:], ".")

	var prefixSegs []string
	if prefix != "" {
		prefixSegs = strings.Split(prefix, ".")
	}

	var out []Match

	walk(root, "", false, func(path string, n *tree.Node, _ bool) bool {
		if !underPrefix(path, prefixSegs) {
			// Keep descending while the path can still reach the prefix.
			return couldReach(path, prefixSegs)
		}

		if suffix == "" || path == suffix || strings.HasSuffix(path, "."+suffix) {
			out = append(out, Match{Path: path, Value: n, Pattern: pattern})
		}

		return true
	})

	return out
}

func matchShallow(root *tree.Node, pattern string) []Match {
	segs := strings.Split(pattern, ".")

	var out []Match

	walk(root, "", false, func(path string, n *tree.Node, isProperty bool) bool {
		if path == "" {
			return true
		}

		pathSegs := strings.Split(path, ".")
		if len(pathSegs) > len(segs) {
			return false
		}

		if isProperty && len(pathSegs) == len(segs) && segmentsMatch(pathSegs, segs) {
			out = append(out, Match{Path: path, Value: n, Pattern: pattern})
		}

		return true
	})

	return out
}

func segmentsMatch(path, pattern []string) bool {
	for i, p := range pattern {
		switch {
		case p == "*", p == path[i]:
		case strings.Contains(p, "*") && GlobMatch(p, path[i]):
		default:
			return false
		}
	}

	return true
}

// underPrefix reports whether path equals or descends from the prefix
// segments. A prefix segment also accepts its indexed forms, so "items"
// covers "items[0]". "*" in the prefix accepts any single segment.
func underPrefix(path string, prefix []string) bool {
	if len(prefix) == 0 {
		return true
	}

	if path == "" {
		return false
	}

	segs := strings.Split(path, ".")
	if len(segs) < len(prefix) {
		return false
	}

	for i, p := range prefix {
		if !segmentCovers(p, segs[i]) {
			return false
		}
	}

	return true
}

func segmentCovers(pattern, seg string) bool {
	if pattern == "*" || pattern == seg {
		return true
	}

	return strings.HasPrefix(seg, pattern+"[")
}

// couldReach reports whether descendants of path may still fall under the
// prefix.
func couldReach(path string, prefix []string) bool {
	if path == "" {
		return true
	}

	segs := strings.Split(path, ".")
	if len(segs) >= len(prefix) {
		return false
	}

	for i, s := range segs {
		if !segmentCovers(prefix[i], s) {
			return false
		}
	}

	return true
}

// walk visits n and its descendants in pre-order. visit receives the dotted
// path, the node and whether the node is an object property; returning false
// skips the node's children.
func walk(n *tree.Node, path string, isProperty bool, visit func(string, *tree.Node, bool) bool) {
	if !visit(path, n, isProperty) {
		return
	}

	switch n.Kind() {
	case tree.KindObject:
		for k, v := range n.Fields() {
			walk(v, Join(path, k), true, visit)
		}
	case tree.KindArray:
		for i, e := range n.Elements() {
			walk(e, path+"["+strconv.Itoa(i)+"]", false, visit)
		}
	default:
	}
}
