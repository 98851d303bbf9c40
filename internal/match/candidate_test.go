package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var known = []string{"upper", "lower", "trim", "padLeft", "padRight", "formatDate"}

func TestRank(t *testing.T) {
	candidates := Rank("pad_left", known)
	require.Len(t, candidates, len(known))

	best := candidates.Best()
	require.NotNil(t, best)
	assert.Equal(t, "padLeft", best.Name)
	assert.InDelta(t, 1.0, best.Score, 0.001)
	assert.Equal(t, "padRight", candidates[1].Name)

	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score)
	}
}

func TestCandidateListTieBreak(t *testing.T) {
	candidates := Rank("x", []string{"b", "a", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, []string{candidates[0].Name, candidates[1].Name, candidates[2].Name})

	assert.Len(t, candidates.Top(2), 2)
	assert.Len(t, candidates.Top(10), 3)
	assert.Nil(t, CandidateList{}.Best())
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"uper", []string{"upper"}},
		{"format_date", []string{"formatDate"}},
		{"padleft", []string{"padLeft"}},
		{"pad", nil},
		{"xyz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggest(tt.name, known, 3))
		})
	}
}
