package engine

import (
	"context"
	"log/slog"

	"shape-mapper/tree"
)

// Log writes Message to the context's logger at Level, with one attribute
// per entry of Paths holding the value found there. Missing paths are
// logged as nil. The target is never touched.
type Log struct {
	Message string
	Level   slog.Level
	Paths   []string
	When    Condition
}

func (r Log) Kind() string { return KindLog }

func (r Log) Apply(ctx *Context, _ *tree.Node) error {
	if ok, err := holds(KindLog, r.When, ctx); !ok {
		return err
	}

	logger := ctx.Logger()
	if !logger.Enabled(context.Background(), r.Level) {
		return nil
	}

	attrs := make([]slog.Attr, 0, len(r.Paths))
	for _, p := range r.Paths {
		v, _ := ctx.Resolve(p)
		attrs = append(attrs, slog.Attr{Key: p, Value: logValue(v)})
	}

	logger.LogAttrs(context.Background(), r.Level, r.Message, attrs...)

	return nil
}

func logValue(v *tree.Node) slog.Value {
	switch v.Kind() {
	case tree.KindString:
		s, _ := v.AsString()
		return slog.StringValue(s)
	case tree.KindNumber:
		f, _ := v.AsNumber()
		return slog.Float64Value(f)
	case tree.KindBool:
		b, _ := v.AsBool()
		return slog.BoolValue(b)
	case tree.KindNull:
		return slog.AnyValue(nil)
	default:
		return slog.StringValue(v.Text())
	}
}
