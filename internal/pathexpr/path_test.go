package pathexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-mapper/tree"
)

func sample() *tree.Node {
	return tree.From(map[string]any{
		"user": map[string]any{
			"name": "Ada",
			"tags": []any{"a", "b"},
			"nick": nil,
		},
		"matrix": []any{[]any{1, 2}, []any{3, 4}},
		"items": []any{
			map[string]any{"sku": "x1", "qty": 2},
			map[string]any{"sku": "x2", "qty": 1},
		},
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    Path
		wantErr bool
	}{
		{name: "root", path: "", want: Path{}},
		{name: "single key", path: "user", want: Path{{Key: "user"}}},
		{name: "nested", path: "user.name", want: Path{{Key: "user"}, {Key: "name"}}},
		{name: "index", path: "items[1].sku", want: Path{{Key: "items", Indexes: []int{1}}, {Key: "sku"}}},
		{name: "multi index", path: "matrix[0][1]", want: Path{{Key: "matrix", Indexes: []int{0, 1}}}},
		{name: "empty segment", path: "a..b", wantErr: true},
		{name: "non numeric index", path: "a[x]", wantErr: true},
		{name: "negative index", path: "a[-1]", wantErr: true},
		{name: "unterminated", path: "a[1", wantErr: true},
		{name: "stray bracket", path: "a]", wantErr: true},
		{name: "garbage after index", path: "a[1]b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPath)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.path, got.String())
		})
	}
}

func TestGet(t *testing.T) {
	root := sample()

	tests := []struct {
		path   string
		want   string
		exists bool
	}{
		{"user.name", "Ada", true},
		{"user.tags[1]", "b", true},
		{"matrix[1][0]", "3", true},
		{"items[0].sku", "x1", true},
		{"user.nick", "", true},
		{"user.missing", "", false},
		{"user.tags[5]", "", false},
		{"user.name.first", "", false},
		{"items.sku", "", false},
		{"a[x]", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, ok := Get(root, tt.path)
			assert.Equal(t, tt.exists, ok)

			if ok {
				assert.Equal(t, tt.want, v.Text())
			}
		})
	}

	v, ok := Get(root, "")
	require.True(t, ok)
	assert.Same(t, root, v)

	nick, ok := Get(root, "user.nick")
	require.True(t, ok)
	assert.True(t, nick.IsNull(), "a present null is a value")
}

func TestSetCreatesIntermediates(t *testing.T) {
	root := tree.NewObject()

	require.NoError(t, Set(root, "a.b.c", tree.String("v")))
	assert.Equal(t, `{"a":{"b":{"c":"v"}}}`, root.Text())

	// A scalar in the way is replaced by an object.
	require.NoError(t, Set(root, "a.b.c.d", tree.Number(1)))
	assert.Equal(t, `{"a":{"b":{"c":{"d":1}}}}`, root.Text())
}

func TestSetIndexed(t *testing.T) {
	root := tree.NewObject()

	require.NoError(t, Set(root, "list[2]", tree.String("c")))
	assert.Equal(t, `{"list":[null,null,"c"]}`, root.Text())

	require.NoError(t, Set(root, "list[0].name", tree.String("a")))
	assert.Equal(t, `{"list":[{"name":"a"},null,"c"]}`, root.Text())

	require.NoError(t, Set(root, "grid[1][1]", tree.Bool(true)))

	grid, ok := Get(root, "grid")
	require.True(t, ok)
	assert.Equal(t, `[null,[null,true]]`, grid.Text())
}

func TestSetErrors(t *testing.T) {
	root := tree.NewObject()

	assert.ErrorIs(t, Set(root, "", tree.Null()), ErrEmptyPath)
	assert.ErrorIs(t, Set(root, "a..b", tree.Null()), ErrInvalidPath)
	assert.ErrorIs(t, Set(tree.NewArray(), "a", tree.Null()), ErrInvalidPath)
	assert.ErrorIs(t, Set(root, "[0]", tree.Null()), ErrInvalidPath)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "a.b", Join("a", "b"))
	assert.Equal(t, "b", Join("", "b"))
	assert.Equal(t, "a", Join("a", ""))
	assert.Equal(t, "c", LastSegment("a.b.c"))
	assert.Equal(t, "items[0]", LastSegment("items[0]"))
}
