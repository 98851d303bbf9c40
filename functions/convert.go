package functions

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"

	"shape-mapper/tree"
)

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
)

// convert turns an argument into a value assignable to t. Tree nodes are
// passed through for *tree.Node parameters and unwrapped to plain Go values
// otherwise. Nil and null become the zero value.
func convert(arg any, t reflect.Type) (reflect.Value, error) {
	if n, ok := arg.(*tree.Node); ok {
		if t == nodeType {
			if n == nil {
				n = tree.Null()
			}

			return reflect.ValueOf(n), nil
		}

		arg = n.Interface()
	}

	if t == nodeType {
		return reflect.ValueOf(tree.From(arg)), nil
	}

	if arg == nil {
		return reflect.Zero(t), nil
	}

	if av := reflect.ValueOf(arg); av.Type().AssignableTo(t) {
		return av, nil
	}

	switch t {
	case timeType:
		v, err := cast.ToTimeE(arg)
		return reflect.ValueOf(v), err
	case durationType:
		v, err := cast.ToDurationE(arg)
		return reflect.ValueOf(v), err
	}

	var (
		v   any
		err error
	)

	switch t.Kind() {
	case reflect.String:
		v, err = cast.ToStringE(arg)
	case reflect.Bool:
		v, err = toBool(arg)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err = cast.ToInt64E(arg)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err = cast.ToUint64E(arg)
	case reflect.Float32, reflect.Float64:
		v, err = cast.ToFloat64E(arg)
	case reflect.Slice:
		return convertSlice(arg, t)
	case reflect.Map:
		if t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.Interface {
			v, err = cast.ToStringMapE(arg)
		} else {
			err = fmt.Errorf("unsupported parameter type %s", t)
		}
	default:
		if reflect.TypeOf(arg).ConvertibleTo(t) {
			return reflect.ValueOf(arg).Convert(t), nil
		}

		err = fmt.Errorf("cannot use %T as %s", arg, t)
	}

	if err != nil {
		return reflect.Value{}, err
	}

	return reflect.ValueOf(v).Convert(t), nil
}

func convertSlice(arg any, t reflect.Type) (reflect.Value, error) {
	av := reflect.ValueOf(arg)
	if av.Kind() != reflect.Slice && av.Kind() != reflect.Array {
		// A single value stands for a one element list.
		elem, err := convert(arg, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}

		out := reflect.MakeSlice(t, 1, 1)
		out.Index(0).Set(elem)

		return out, nil
	}

	out := reflect.MakeSlice(t, av.Len(), av.Len())

	for i := range av.Len() {
		elem, err := convert(av.Index(i).Interface(), t.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}

		out.Index(i).Set(elem)
	}

	return out, nil
}

// toBool is cast.ToBoolE with a few more spellings of true and false.
func toBool(v any) (bool, error) {
	if s, ok := v.(string); ok {
		switch s {
		case "yes", "Yes", "YES", "y", "Y", "on", "On", "ON":
			return true, nil
		case "no", "No", "NO", "n", "N", "off", "Off", "OFF", "":
			return false, nil
		}
	}

	if v == nil {
		return false, nil
	}

	return cast.ToBoolE(v)
}
