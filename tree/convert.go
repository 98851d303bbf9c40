package tree

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// From converts an arbitrary host value into a tree. The conversion is total:
// values of unrecognized types are stored as their fmt string form.
//
// Existing nodes are returned as is; callers writing them into another tree
// are expected to Clone them.
func From(v any) *Node {
	switch val := v.(type) {
	case nil:
		return Null()
	case *Node:
		return orNull(val)
	case Node:
		return val.Clone()
	case string:
		return String(val)
	case []byte:
		return String(string(val))
	case bool:
		return Bool(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return Number(f)
		}

		return String(val.String())
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return Number(cast.ToFloat64(val))
	case time.Time:
		return String(val.Format(time.RFC3339Nano))
	case time.Duration:
		return String(val.String())
	case map[string]any:
		return fromStringMap(val)
	case []any:
		out := NewArray()
		for _, e := range val {
			out.arr = append(out.arr, From(e))
		}

		return out
	case error:
		return String(val.Error())
	}

	return fromReflect(reflect.ValueOf(v))
}

func fromStringMap(m map[string]any) *Node {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := NewObject()
	for _, k := range keys {
		out.obj.Set(k, From(m[k]))
	}

	return out
}

// fromReflect handles named types, typed maps, slices, pointers and structs.
func fromReflect(rv reflect.Value) *Node {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}

		return From(rv.Elem().Interface())

	case reflect.Bool:
		return Bool(rv.Bool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int()))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint()))

	case reflect.Float32, reflect.Float64:
		return Number(rv.Float())

	case reflect.String:
		return String(rv.String())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return NewArray()
		}

		out := NewArray()
		for i := range rv.Len() {
			out.arr = append(out.arr, From(rv.Index(i).Interface()))
		}

		return out

	case reflect.Map:
		type entry struct {
			key string
			val reflect.Value
		}

		entries := make([]entry, 0, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, entry{key: cast.ToString(keyString(iter.Key())), val: iter.Value()})
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

		out := NewObject()
		for _, e := range entries {
			out.obj.Set(e.key, From(e.val.Interface()))
		}

		return out

	case reflect.Struct:
		return fromStruct(rv)

	case reflect.Invalid:
		return Null()
	}

	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return String(s.String())
	}

	return String(fmt.Sprint(rv.Interface()))
}

func keyString(k reflect.Value) any {
	if s, ok := k.Interface().(fmt.Stringer); ok {
		return s.String()
	}

	if k.Kind() == reflect.String {
		return k.String()
	}

	return fmt.Sprint(k.Interface())
}

// fromStruct maps exported fields in declaration order. A `json` tag renames
// the field, "-" skips it.
func fromStruct(rv reflect.Value) *Node {
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return String(s.String())
	}

	rt := rv.Type()
	out := NewObject()

	for i := range rt.NumField() {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}

			if tagName != "" {
				name = tagName
			}
		}

		out.obj.Set(name, From(rv.Field(i).Interface()))
	}

	return out
}

// Interface converts the tree into plain Go values: map[string]any for
// objects, []any for arrays, float64, string, bool and nil.
func (n *Node) Interface() any {
	switch n.Kind() {
	case KindString:
		return n.str
	case KindNumber:
		return n.num
	case KindBool:
		return n.flag
	case KindObject:
		out := make(map[string]any, n.obj.Len())
		for k, v := range n.Fields() {
			out[k] = v.Interface()
		}

		return out
	case KindArray:
		out := make([]any, len(n.arr))
		for i, e := range n.arr {
			out[i] = e.Interface()
		}

		return out
	default:
		return nil
	}
}
