package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"shape-mapper/tree"
)

// jsonParser is a minimal Parser for tests. Object keys come out sorted.
type jsonParser struct{}

func (jsonParser) Parse(data []byte) (*tree.Node, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	return tree.From(v), nil
}

type textSerializer struct{}

func (textSerializer) Serialize(n *tree.Node, _ string) ([]byte, error) {
	return []byte(n.Text()), nil
}

func parseJSON(t *testing.T, s string) *tree.Node {
	t.Helper()

	n, err := jsonParser{}.Parse([]byte(s))
	require.NoError(t, err)

	return n
}

func run(t *testing.T, source string, rules ...Rule) *tree.Node {
	t.Helper()

	out, err := New("test", rules).Execute(parseJSON(t, source))
	require.NoError(t, err)

	return out
}

func equals(path, want string) Condition {
	return func(ctx *Context) (bool, error) {
		v, ok := ctx.Resolve(path)
		return ok && v.Text() == want, nil
	}
}
