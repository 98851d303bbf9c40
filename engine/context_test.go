package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-mapper/tree"
)

func TestResolve(t *testing.T) {
	src := parseJSON(t, `{"user":{"name":"Ada","tags":["x","y"]},"n":null}`)
	ctx := NewContext(src).With("item", parseJSON(t, `{"sku":"A1","dims":[3,4]}`))

	tests := []struct {
		name   string
		path   string
		want   string
		exists bool
	}{
		{"literal", "'hello world'", "hello world", true},
		{"empty literal", "''", "", true},
		{"variable", "$item", `{"dims":[3,4],"sku":"A1"}`, true},
		{"variable path", "$item.sku", "A1", true},
		{"variable index", "$item.dims[1]", "4", true},
		{"unbound variable", "$other", "", false},
		{"missing in variable", "$item.nope", "", false},
		{"source path", "user.name", "Ada", true},
		{"source index", "user.tags[0]", "x", true},
		{"present null", "n", "", true},
		{"missing", "user.age", "", false},
		{"single quote is a path", "'", "", false},
		{"source root", "$", `{"user":{"name":"Ada","tags":["x","y"]},"n":null}`, true},
		{"source root path", "$.user.tags[1]", "y", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ctx.Resolve(tt.path)
			require.Equal(t, tt.exists, ok)

			if ok {
				assert.Equal(t, tt.want, v.Text())
			}
		})
	}
}

func TestContextWithDoesNotLeak(t *testing.T) {
	root := NewContext(tree.NewObject())

	a := root.With("x", tree.String("a"))
	b := root.With("x", tree.String("b"))
	nested := a.With("y", tree.Number(1))

	_, ok := root.Var("x")
	assert.False(t, ok, "parent is unchanged")

	va, _ := a.Var("x")
	vb, _ := b.Var("x")
	assert.Equal(t, "a", va.Text())
	assert.Equal(t, "b", vb.Text())

	_, ok = a.Var("y")
	assert.False(t, ok, "child binding is not visible in the parent")

	vars := nested.Vars()
	assert.Len(t, vars, 2)
	assert.Equal(t, "a", vars["x"].Text())
}

func TestContextShadowing(t *testing.T) {
	ctx := NewContext(nil).With("v", tree.String("outer")).With("v", tree.String("inner"))

	v, ok := ctx.Var("v")
	require.True(t, ok)
	assert.Equal(t, "inner", v.Text())
	assert.Equal(t, "inner", ctx.Vars()["v"].Text())
	assert.True(t, ctx.Source().IsNull())
}

func TestContextRoot(t *testing.T) {
	item := tree.NewObject()
	ctx := NewContext(tree.NewObject()).With("row", item)

	root, rest, ok := ctx.Root("$row.*")
	require.True(t, ok)
	assert.Same(t, item, root)
	assert.Equal(t, "*", rest)

	root, rest, ok = ctx.Root("a.b")
	require.True(t, ok)
	assert.Same(t, ctx.Source(), root)
	assert.Equal(t, "a.b", rest)

	root, rest, ok = ctx.Root("$[0].*")
	require.True(t, ok)
	assert.Same(t, ctx.Source(), root)
	assert.Equal(t, "[0].*", rest)

	_, _, ok = ctx.Root("$missing.x")
	assert.False(t, ok)
}

func TestSplitRef(t *testing.T) {
	tests := []struct {
		path  string
		name  string
		rest  string
		isVar bool
	}{
		{"$item", "item", "", true},
		{"$item.sku", "item", "sku", true},
		{"$row[0].id", "row", "[0].id", true},
		{"user.name", "", "user.name", false},
		{"$", "", "", true},
		{"$[1].id", "", "[1].id", true},
	}

	for _, tt := range tests {
		name, rest, ok := SplitRef(tt.path)
		assert.Equal(t, tt.isVar, ok, tt.path)
		assert.Equal(t, tt.name, name, tt.path)
		assert.Equal(t, tt.rest, rest, tt.path)
	}

	assert.True(t, IsLiteral("'n/a'"))
	assert.False(t, IsLiteral("'"))
	assert.False(t, IsLiteral("name"))
}
