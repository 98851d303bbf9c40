package engine

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}

			return a
		},
	}))
}

func TestLogRule(t *testing.T) {
	var buf bytes.Buffer

	m := New("logs", []Rule{
		Log{Message: "order seen", Level: slog.LevelWarn, Paths: []string{"id", "total", "lines", "missing"}},
		Log{Message: "hidden", Level: slog.LevelDebug, Paths: []string{"id"}},
		Log{Message: "skipped", Level: slog.LevelError, When: equals("id", "B-2")},
	}, WithLogger(bufferLogger(&buf)))

	out, err := m.Execute(parseJSON(t, `{"id":"A-1","total":12.5,"lines":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, `{}`, out.Text())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"level":"WARN","msg":"order seen","mapping":"logs","id":"A-1","total":12.5,"lines":"[1,2]","missing":null}`, lines[0])
	assert.Contains(t, lines[1], `"msg":"mapping executed"`)
}

func TestLogRuleSeesVariables(t *testing.T) {
	var buf bytes.Buffer

	m := New("items", []Rule{
		ForEach{Collection: "items", Item: "item", Rules: []Rule{
			Log{Message: "item", Level: slog.LevelInfo, Paths: []string{"$item.sku"}},
		}},
	}, WithLogger(bufferLogger(&buf)))

	_, err := m.Execute(parseJSON(t, `{"items":[{"sku":"a"},{"sku":"b"}]}`))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"msg":"item","mapping":"items","$item.sku":"a"`)
	assert.Contains(t, buf.String(), `"msg":"item","mapping":"items","$item.sku":"b"`)
}

func TestLogRuleWithoutLogger(t *testing.T) {
	out := run(t, `{"a":1}`, Log{Message: "nothing", Level: slog.LevelError, Paths: []string{"a"}})
	assert.Equal(t, `{}`, out.Text())
}
