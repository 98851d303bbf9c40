package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-mapper/engine"
	"shape-mapper/tree"
)

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "warn", "text")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "err=boom")
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "debug", "json")
	require.NoError(t, err)

	logger.Debug("rule applied", "kind", "simple", "error", errors.New("bad"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rule applied", entry["msg"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "bad", entry["err"])
	assert.NotContains(t, entry, "error")
}

func TestNewLoggerErrors(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)

	_, err = NewLogger(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		l, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, l, in)
	}
}

func TestNopLogger(t *testing.T) {
	assert.False(t, NewNopLogger().Enabled(t.Context(), slog.LevelError))
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics("test", nil)

	m.RuleApplied("orders", "simple", time.Millisecond, nil)
	m.RuleApplied("orders", "simple", time.Millisecond, nil)
	m.RuleApplied("orders", "bulk", time.Millisecond, errors.New("boom"))
	m.ExecutionFinished("orders", 5*time.Millisecond, nil)
	m.ExecutionFinished("orders", 5*time.Millisecond, errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.rules.WithLabelValues("orders", "simple", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rules.WithLabelValues("orders", "bulk", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.executions.WithLabelValues("orders", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.executions.WithLabelValues("orders", "error")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.rules))
}

func TestMetricsWithMapping(t *testing.T) {
	m := NewMetrics("shape_mapper", nil)

	mapping := engine.New("greeting", []engine.Rule{
		engine.Simple{Source: "name", Target: "hello"},
		engine.Simple{Source: "missing", Target: "x"},
	}, engine.WithObserver(m))

	_, err := mapping.Execute(tree.From(map[string]any{"name": "Ada"}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, `shape_mapper_executions_total{mapping="greeting",status="ok"} 1`)
	assert.Contains(t, out, `shape_mapper_rules_applied_total{kind="simple",mapping="greeting",status="ok"} 2`)
	assert.Contains(t, out, `shape_mapper_execution_duration_seconds_count{mapping="greeting"} 1`)
	assert.Contains(t, out, `shape_mapper_rule_duration_seconds_count{kind="simple"} 2`)

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.True(t, strings.HasPrefix(line, "shape_mapper_"), line)
	}
}
