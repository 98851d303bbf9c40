package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-mapper/codec"
	"shape-mapper/functions"
)

// TestExamples runs every examples/<name>/mapping.yaml against its input
// file and compares the result with expected.json, keys in order.
func TestExamples(t *testing.T) {
	t.Parallel()

	mappings, err := filepath.Glob(filepath.Join("..", "..", "examples", "*", "mapping.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, mappings)

	for _, path := range mappings {
		dir := filepath.Dir(path)

		t.Run(filepath.Base(dir), func(t *testing.T) {
			t.Parallel()

			mf, err := LoadFile(path)
			require.NoError(t, err)
			assert.Empty(t, Validate(mf, functions.Builtins()).Warnings)

			m, err := Compile(mf, nil)
			require.NoError(t, err)

			inputs, err := filepath.Glob(filepath.Join(dir, "input.*"))
			require.NoError(t, err)
			require.Len(t, inputs, 1)

			input, err := os.ReadFile(inputs[0])
			require.NoError(t, err)

			format := mf.OutputFormat()

			out, err := m.ExecuteTo(input, string(format))
			require.NoError(t, err)

			got, err := codec.Decode(out, format)
			require.NoError(t, err)

			raw, err := os.ReadFile(filepath.Join(dir, "expected.json"))
			require.NoError(t, err)

			want, err := codec.DecodeJSON(raw)
			require.NoError(t, err)

			assert.Equal(t, want.Text(), got.Text())
		})
	}
}
