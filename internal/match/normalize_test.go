package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdent(t *testing.T) {
	tests := map[string]string{
		"skipNulls":      "skipnulls",
		"skip_nulls":     "skipnulls",
		"skip-nulls":     "skipnulls",
		"SKIPNULLS":      "skipnulls",
		"forEach":        "foreach",
		"for each":       "foreach",
		"parseJSON":      "parsejson",
		"toIsoDate":      "toisodate",
		"normalizeEmail": "normalizeemail",
		"order.lines":    "orderlines",
		"":               "",
		"_":              "",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeIdent(in))
		})
	}
}

func TestTokenizeIdent(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"notEquals", []string{"not", "equals"}},
		{"stripHTMLTags", []string{"strip", "html", "tags"}},
		{"JSONToYAML", []string{"json", "to", "yaml"}},
		{"from_unix-time", []string{"from", "unix", "time"}},
		{"meta tags", []string{"meta", "tags"}},
		{"x", []string{"x"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeIdent(tt.in))
		})
	}
}
