package engine

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-mapper/tree"
)

func TestExecuteInputKinds(t *testing.T) {
	m := New("inputs", []Rule{Simple{Source: "a", Target: "b"}}, WithParser(jsonParser{}))

	inputs := map[string]any{
		"node":   parseJSON(t, `{"a":1}`),
		"string": `{"a":1}`,
		"bytes":  []byte(`{"a":1}`),
		"reader": strings.NewReader(`{"a":1}`),
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			out, err := m.Execute(in)
			require.NoError(t, err)
			assert.Equal(t, `{"b":1}`, out.Text())
		})
	}
}

func TestExecuteUnsupportedInput(t *testing.T) {
	m := New("inputs", nil, WithParser(jsonParser{}))

	_, err := m.Execute(42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedInput)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestExecuteRawInputWithoutParser(t *testing.T) {
	m := New("raw", nil)

	for _, in := range []any{"{}", []byte("{}"), bytes.NewBufferString("{}")} {
		_, err := m.Execute(in)
		assert.ErrorIs(t, err, ErrNoParser)
		assert.ErrorIs(t, err, ErrConfig)
	}
}

func TestExecuteParseError(t *testing.T) {
	m := New("broken", nil, WithParser(jsonParser{}))

	_, err := m.Execute("{not json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfig)

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "parse", ee.Rule)
	assert.Equal(t, "broken", ee.Mapping)
}

func TestExecuteValue(t *testing.T) {
	type order struct {
		ID    string  `json:"id"`
		Total float64 `json:"total"`
	}

	m := New("values", []Rule{Simple{Source: "total", Target: "amount"}})

	out, err := m.ExecuteValue(order{ID: "o1", Total: 9.5})
	require.NoError(t, err)
	assert.Equal(t, `{"amount":9.5}`, out.Text())
}

func TestExecuteTo(t *testing.T) {
	m := New("to", []Rule{Simple{Source: "a", Target: "b"}}, WithParser(jsonParser{}), WithSerializer(textSerializer{}))

	data, err := m.ExecuteTo(`{"a":"x"}`, "json")
	require.NoError(t, err)
	assert.Equal(t, `{"b":"x"}`, string(data))

	_, err = New("none", nil).ExecuteTo(tree.NewObject(), "json")
	assert.ErrorIs(t, err, ErrNoSerializer)
}

func TestPanicIsRecovered(t *testing.T) {
	explode := func(*tree.Node) (*tree.Node, error) { panic("kaboom") }

	out, err := New("panics", []Rule{
		ForEach{Collection: "items", Rules: []Rule{
			Simple{Source: "$item", Target: "x", Transform: explode},
		}},
	}).Execute(parseJSON(t, `{"items":[1]}`))

	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "kaboom")

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 0, ee.Index)
	assert.Equal(t, KindForEach, ee.Rule)
}

func TestConfigErrorsPassThrough(t *testing.T) {
	cfgErr := fmt.Errorf("%w: function %q is not registered", ErrConfig, "nope")
	fail := func(*tree.Node) (*tree.Node, error) { return nil, cfgErr }

	_, err := New("cfg", []Rule{Simple{Source: "a", Target: "b", Transform: fail}}).Execute(parseJSON(t, `{"a":1}`))
	require.Error(t, err)
	assert.Same(t, cfgErr, err)

	var ee *ExecutionError
	assert.False(t, errors.As(err, &ee))
}

func TestIdempotence(t *testing.T) {
	m := New("idem", []Rule{
		Bulk{Pattern: "user.*", Target: "u"},
		Flatten{Source: "user", Target: "flat"},
		ForEach{Collection: "items", Into: "lines", Rules: []Rule{Simple{Source: "$item.q", Target: "q"}}},
	})

	src := parseJSON(t, `{"user":{"a":{"b":1},"c":2},"items":[{"q":1},{"q":2}]}`)

	first, err := m.Execute(src)
	require.NoError(t, err)

	second, err := m.Execute(src)
	require.NoError(t, err)

	assert.True(t, tree.Equal(first, second))
	assert.NotSame(t, first, second)
}

func TestConcurrentExecution(t *testing.T) {
	m := New("concurrent", []Rule{
		ForEach{Collection: "items", Item: "it", Into: "out", Rules: []Rule{
			Simple{Source: "$it", Target: "v"},
		}},
	})

	var wg sync.WaitGroup

	results := make([]*tree.Node, 16)
	for i := range results {
		wg.Add(1)

		go func() {
			defer wg.Done()

			out, err := m.Execute(tree.From(map[string]any{"items": []any{i, i + 1}}))
			if err == nil {
				results[i] = out
			}
		}()
	}

	wg.Wait()

	for i, out := range results {
		require.NotNil(t, out)
		assert.Equal(t, fmt.Sprintf(`{"out":[{"v":%d},{"v":%d}]}`, i, i+1), out.Text())
	}
}

type recordingObserver struct {
	mu         sync.Mutex
	rules      []string
	executions int
	lastErr    error
}

func (o *recordingObserver) RuleApplied(_, kind string, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.rules = append(o.rules, kind)
}

func (o *recordingObserver) ExecutionFinished(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.executions++
	o.lastErr = err
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}

	m := New("observed", []Rule{
		Simple{Source: "a", Target: "a"},
		Bulk{Pattern: "*", Target: "all"},
	}, WithObserver(obs))

	_, err := m.Execute(parseJSON(t, `{"a":1}`))
	require.NoError(t, err)

	assert.Equal(t, []string{KindSimple, KindBulk}, obs.rules)
	assert.Equal(t, 1, obs.executions)
	assert.NoError(t, obs.lastErr)
}

func TestNewCopiesRules(t *testing.T) {
	rules := []Rule{Simple{Source: "a", Target: "x"}}
	m := New("copy", rules)

	rules[0] = Simple{Source: "b", Target: "x"}

	assert.Equal(t, "a", m.Rules()[0].(Simple).Source)
	assert.Equal(t, "copy", m.Name())
}
