// Package functions holds named functions that mapping rules call as
// transforms, combiners and predicates.
//
// Functions are plain Go funcs registered under a name. Their signature is
// checked once at registration; arguments are converted to the parameter
// types on every call.
package functions

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"shape-mapper/engine"
	"shape-mapper/tree"
)

var (
	ErrNotFound     = fmt.Errorf("%w: function is not registered", engine.ErrConfig)
	ErrArity        = fmt.Errorf("%w: wrong number of arguments", engine.ErrConfig)
	ErrNotAFunction = fmt.Errorf("%w: provided value is not a function", engine.ErrConfig)
	ErrSignature    = fmt.Errorf("%w: unsupported function signature", engine.ErrConfig)
	ErrDuplicate    = fmt.Errorf("%w: function is already registered", engine.ErrConfig)
)

var (
	errorType = reflect.TypeFor[error]()
	nodeType  = reflect.TypeFor[*tree.Node]()
)

// Function is a registered callable with its inspected signature.
type Function struct {
	Name     string
	In       []reflect.Type
	Out      reflect.Type
	Variadic bool
	HasErr   bool

	fn reflect.Value
}

// ParseFunction inspects fn and returns its Function description.
//
// Supports:
//   - func(args...) R
//   - func(args...) (R, error)
//
// Any number of parameters is accepted, including a trailing variadic one.
func ParseFunction(name string, fn any) (Function, error) {
	if fn == nil {
		return Function{}, ErrNotAFunction
	}

	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return Function{}, fmt.Errorf("%w: %s is a %s", ErrNotAFunction, name, fnType.Kind())
	}

	f := Function{
		Name:     name,
		Variadic: fnType.IsVariadic(),
		fn:       fnVal,
	}

	for i := range fnType.NumIn() {
		f.In = append(f.In, fnType.In(i))
	}

	switch fnType.NumOut() {
	default:
		return Function{}, fmt.Errorf("%w: %s must return a value, optionally followed by an error", ErrSignature, name)

	case 1:
		if fnType.Out(0) == errorType {
			return Function{}, fmt.Errorf("%w: %s returns only an error", ErrSignature, name)
		}

		f.Out = fnType.Out(0)

	case 2:
		if fnType.Out(1) != errorType {
			return Function{}, fmt.Errorf("%w: second result of %s must be an error", ErrSignature, name)
		}

		f.Out = fnType.Out(0)
		f.HasErr = true
	}

	return f, nil
}

// Arity returns the accepted argument counts. Max is -1 for variadic
// functions.
func (f Function) Arity() (minArgs, maxArgs int) {
	if f.Variadic {
		return len(f.In) - 1, -1
	}

	return len(f.In), len(f.In)
}

// Signature renders the function as name(params) result.
func (f Function) Signature() string {
	params := make([]string, len(f.In))
	for i, t := range f.In {
		if f.Variadic && i == len(f.In)-1 {
			params[i] = "..." + typeName(t.Elem())
			continue
		}

		params[i] = typeName(t)
	}

	out := typeName(f.Out)
	if f.HasErr {
		out = "(" + out + ", error)"
	}

	return fmt.Sprintf("%s(%s) %s", f.Name, strings.Join(params, ", "), out)
}

func typeName(t reflect.Type) string {
	switch {
	case t == nodeType:
		return "node"
	case t.Kind() == reflect.Interface && t.NumMethod() == 0:
		return "any"
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Interface:
		return "[]any"
	default:
		return t.String()
	}
}

// Call converts args to the parameter types, invokes the function and
// converts the result into a tree.
func (f Function) Call(args ...any) (*tree.Node, error) {
	minArgs, maxArgs := f.Arity()
	if len(args) < minArgs || (maxArgs >= 0 && len(args) > maxArgs) {
		return nil, fmt.Errorf("%w: %s called with %d", ErrArity, f.Signature(), len(args))
	}

	in := make([]reflect.Value, len(args))

	for i, arg := range args {
		t := f.paramType(i)

		v, err := convert(arg, t)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", f.Name, i+1, err)
		}

		in[i] = v
	}

	out := f.fn.Call(in)

	if f.HasErr {
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
	}

	return tree.From(out[0].Interface()), nil
}

func (f Function) paramType(i int) reflect.Type {
	if f.Variadic && i >= len(f.In)-1 {
		return f.In[len(f.In)-1].Elem()
	}

	return f.In[i]
}

// Registry maps names to functions. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Function)}
}

// Register adds fn under name.
func (r *Registry) Register(name string, fn any) error {
	if name == "" {
		return fmt.Errorf("%w: empty function name", ErrSignature)
	}

	f, err := ParseFunction(name, fn)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}

	r.funcs[name] = f

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, fn any) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Get returns the function registered under name.
func (r *Registry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.funcs[name]

	return f, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Describe returns the signature of a registered function.
func (r *Registry) Describe(name string) (string, bool) {
	f, ok := r.Get(name)
	if !ok {
		return "", false
	}

	return f.Signature(), true
}

// Call invokes the function registered under name.
func (r *Registry) Call(name string, args ...any) (*tree.Node, error) {
	f, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return f.Call(args...)
}

// CheckArity reports whether name exists and accepts n arguments.
func (r *Registry) CheckArity(name string, n int) error {
	f, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	minArgs, maxArgs := f.Arity()
	if n < minArgs || (maxArgs >= 0 && n > maxArgs) {
		return fmt.Errorf("%w: %s called with %d", ErrArity, f.Signature(), n)
	}

	return nil
}

// Transform returns an engine transform calling name with the value
// followed by extra.
func (r *Registry) Transform(name string, extra ...any) engine.Transform {
	return func(v *tree.Node) (*tree.Node, error) {
		return r.Call(name, append([]any{v}, extra...)...)
	}
}

// FieldTransform is like Transform; the field name is not passed.
func (r *Registry) FieldTransform(name string, extra ...any) engine.FieldTransform {
	t := r.Transform(name, extra...)

	return func(_ string, v *tree.Node) (*tree.Node, error) {
		return t(v)
	}
}

// Combiner returns an engine combine function calling name with every
// source value followed by extra. Missing sources are passed as null.
func (r *Registry) Combiner(name string, extra ...any) engine.CombineFunc {
	return func(values []*tree.Node) (*tree.Node, error) {
		args := make([]any, 0, len(values)+len(extra))
		for _, v := range values {
			args = append(args, v)
		}

		return r.Call(name, append(args, extra...)...)
	}
}

// Predicate calls name with the given arguments and interprets the result
// as a boolean.
func (r *Registry) Predicate(name string, args ...any) (bool, error) {
	out, err := r.Call(name, args...)
	if err != nil {
		return false, err
	}

	b, err := toBool(out.Interface())
	if err != nil {
		return false, fmt.Errorf("%s returned %q, not a boolean: %w", name, out.Text(), err)
	}

	return b, nil
}
