// Package tree provides the in-memory value model shared by source and target
// documents: a tagged union of null, string, number, bool, object and array.
//
// Objects keep key insertion order. Every container exclusively owns its
// children; values crossing from one tree into another are cloned.
package tree

import (
	"iter"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node is a single value of a tree.
// The zero value is a null node.
type Node struct {
	kind KindEnum
	str  string
	num  float64
	flag bool
	obj  *orderedmap.OrderedMap[string, *Node]
	arr  []*Node
}

// Null returns a new null node.
func Null() *Node {
	return &Node{kind: KindNull}
}

// String returns a new string node.
func String(s string) *Node {
	return &Node{kind: KindString, str: s}
}

// Number returns a new number node.
func Number(f float64) *Node {
	return &Node{kind: KindNumber, num: f}
}

// Bool returns a new boolean node.
func Bool(b bool) *Node {
	return &Node{kind: KindBool, flag: b}
}

// NewObject returns a new empty object node.
func NewObject() *Node {
	return &Node{kind: KindObject, obj: orderedmap.New[string, *Node]()}
}

// NewArray returns a new array node holding the given elements.
func NewArray(elems ...*Node) *Node {
	arr := make([]*Node, 0, len(elems))
	for _, e := range elems {
		arr = append(arr, orNull(e))
	}

	return &Node{kind: KindArray, arr: arr}
}

// Kind returns the variant held by the node. A nil node is reported as null.
func (n *Node) Kind() KindEnum {
	if n == nil {
		return KindNull
	}

	return n.kind
}

func (n *Node) IsNull() bool   { return n.Kind() == KindNull }
func (n *Node) IsObject() bool { return n.Kind() == KindObject }
func (n *Node) IsArray() bool  { return n.Kind() == KindArray }

// AsString returns the string payload and true for string nodes.
func (n *Node) AsString() (string, bool) {
	if n.Kind() != KindString {
		return "", false
	}

	return n.str, true
}

// AsNumber returns the numeric payload and true for number nodes.
func (n *Node) AsNumber() (float64, bool) {
	if n.Kind() != KindNumber {
		return 0, false
	}

	return n.num, true
}

// AsBool returns the boolean payload and true for bool nodes.
func (n *Node) AsBool() (bool, bool) {
	if n.Kind() != KindBool {
		return false, false
	}

	return n.flag, true
}

// Text returns the textual form of a scalar node: strings as is, numbers in
// their shortest form, booleans as true/false and null as an empty string.
// Containers are rendered in a compact JSON-like notation.
func (n *Node) Text() string {
	switch n.Kind() {
	case KindString:
		return n.str
	case KindNumber:
		return FormatNumber(n.num)
	case KindBool:
		return strconv.FormatBool(n.flag)
	case KindNull:
		return ""
	default:
		var sb strings.Builder
		writeCompact(&sb, n)

		return sb.String()
	}
}

// FormatNumber renders a float without a trailing fractional part when it
// holds an integral value.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// --- object access ---

// Get returns the property stored under key. It returns false for missing
// keys and for non-object nodes.
func (n *Node) Get(key string) (*Node, bool) {
	if n.Kind() != KindObject {
		return nil, false
	}

	return n.obj.Get(key)
}

// Set stores v under key, keeping the position of an existing key.
// Set on a non-object node is a no-op.
func (n *Node) Set(key string, v *Node) {
	if n.Kind() != KindObject {
		return
	}

	n.obj.Set(key, orNull(v))
}

// Delete removes key from an object node.
func (n *Node) Delete(key string) {
	if n.Kind() != KindObject {
		return
	}

	n.obj.Delete(key)
}

// Has reports whether an object node holds key.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Keys returns the object keys in insertion order.
func (n *Node) Keys() []string {
	if n.Kind() != KindObject {
		return nil
	}

	keys := make([]string, 0, n.obj.Len())
	for pair := n.obj.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	return keys
}

// Fields iterates over object properties in insertion order.
func (n *Node) Fields() iter.Seq2[string, *Node] {
	return func(yield func(string, *Node) bool) {
		if n.Kind() != KindObject {
			return
		}

		for pair := n.obj.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// --- array access ---

// Index returns the i-th array element.
func (n *Node) Index(i int) (*Node, bool) {
	if n.Kind() != KindArray || i < 0 || i >= len(n.arr) {
		return nil, false
	}

	return n.arr[i], true
}

// SetIndex stores v at position i, growing the array with nulls as needed.
func (n *Node) SetIndex(i int, v *Node) {
	if n.Kind() != KindArray || i < 0 {
		return
	}

	for len(n.arr) <= i {
		n.arr = append(n.arr, Null())
	}

	n.arr[i] = orNull(v)
}

// Append adds elements at the end of an array node.
func (n *Node) Append(elems ...*Node) {
	if n.Kind() != KindArray {
		return
	}

	for _, e := range elems {
		n.arr = append(n.arr, orNull(e))
	}
}

// Elements iterates over array elements in order.
func (n *Node) Elements() iter.Seq2[int, *Node] {
	return func(yield func(int, *Node) bool) {
		if n.Kind() != KindArray {
			return
		}

		for i, e := range n.arr {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Len returns the number of children for containers, the length in bytes
// for strings and zero otherwise.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindObject:
		return n.obj.Len()
	case KindArray:
		return len(n.arr)
	case KindString:
		return len(n.str)
	default:
		return 0
	}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	switch n.Kind() {
	case KindObject:
		out := NewObject()
		for k, v := range n.Fields() {
			out.obj.Set(k, v.Clone())
		}

		return out
	case KindArray:
		out := &Node{kind: KindArray, arr: make([]*Node, len(n.arr))}
		for i, e := range n.arr {
			out.arr[i] = e.Clone()
		}

		return out
	case KindNull:
		return Null()
	default:
		c := *n
		return &c
	}
}

// Equal reports whether two trees are structurally equal. Object key order
// is not significant.
func Equal(a, b *Node) bool {
	if a.Kind() != b.Kind() {
		return false
	}

	switch a.Kind() {
	case KindNull:
		return true
	case KindString:
		return a.str == b.str
	case KindNumber:
		return a.num == b.num
	case KindBool:
		return a.flag == b.flag
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}

		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}

		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}

		for k, av := range a.Fields() {
			bv, ok := b.obj.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

func orNull(n *Node) *Node {
	if n == nil {
		return Null()
	}

	return n
}

func writeCompact(sb *strings.Builder, n *Node) {
	switch n.Kind() {
	case KindString:
		sb.WriteString(strconv.Quote(n.str))
	case KindNumber, KindBool:
		sb.WriteString(n.Text())
	case KindNull:
		sb.WriteString("null")
	case KindArray:
		sb.WriteByte('[')

		for i, e := range n.arr {
			if i > 0 {
				sb.WriteByte(',')
			}

			writeCompact(sb, e)
		}

		sb.WriteByte(']')
	case KindObject:
		sb.WriteByte('{')

		first := true
		for k, v := range n.Fields() {
			if !first {
				sb.WriteByte(',')
			}

			first = false

			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			writeCompact(sb, v)
		}

		sb.WriteByte('}')
	}
}
