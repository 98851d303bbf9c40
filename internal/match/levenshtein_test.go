package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "to", 2},
		{"map", "map", 0},
		{"map", "mapp", 1},
		{"tranform", "transform", 1},
		{"matchez", "matches", 1},
		{"groupd", "grouped", 1},
		{"combine", "combien", 2},
		{"upper", "lower", 3},
		{"JSON", "json", 4},
		{"naïve", "naive", 1},
		{"größe", "grösse", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a), "distance is symmetric")
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("", ""), 0.001)
	assert.InDelta(t, 1.0, Similarity("trim", "trim"), 0.001)
	assert.InDelta(t, 0.0, Similarity("csv", "xml"), 0.001)
	assert.InDelta(t, 0.8, Similarity("uper", "upper"), 0.001)
	assert.InDelta(t, 1-2.0/7, Similarity("combien", "combine"), 0.001)
}

func TestNameSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, NameSimilarity("skip_nulls", "skipNulls"), 0.001)
	assert.InDelta(t, 1.0, NameSimilarity("Format-Date", "formatDate"), 0.001)
	assert.GreaterOrEqual(t, NameSimilarity("toIsoDat", "toIsoDate"), 0.8)
	assert.Less(t, NameSimilarity("slugify", "toBase64"), DefaultMinScore)
}

func BenchmarkLevenshtein(b *testing.B) {
	for b.Loop() {
		Levenshtein("normalizeEmail", "normaliseEmails")
	}
}
