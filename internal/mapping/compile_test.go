package mapping

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"shape-mapper/codec"
	"shape-mapper/engine"
	"shape-mapper/functions"
	"shape-mapper/internal/diagnostic"
	"shape-mapper/tree"
)

func compile(t *testing.T, src string) *engine.Mapping {
	t.Helper()

	mf, err := Parse([]byte(src))
	require.NoError(t, err)

	m, err := Compile(mf, nil)
	require.NoError(t, err)

	return m
}

func TestCompileOrderToReceipt(t *testing.T) {
	m := compile(t, `
name: order-to-receipt
input: json
rules:
  - map: order.customer.first
    to: receipt.customer
  - combine: [order.customer.first, order.customer.last]
    to: receipt.fullName
  - combine: [order.customer.last, order.customer.first]
    to: receipt.sortName
    separator: ", "
  - map: order.tier
    to: receipt.tier
    default: standard
  - map: order.status
    to: receipt.status
    transform: upper
    when: {path: order.status, in: [paid, shipped]}
  - forEach: order.items
    as: line
    index: i
    into: receipt.lines
    rules:
      - map: $line.sku
        to: product
      - map: $i
        to: line
      - map: $line.qty
        to: quantity
  - branch:
      - when: {path: order.total, gt: 100}
        rules:
          - map: "'free'"
            to: receipt.shipping
      - otherwise: true
        rules:
          - map: "'paid'"
            to: receipt.shipping
`)

	assert.Equal(t, "order-to-receipt", m.Name())

	input := `{"order":{"id":"A-1","status":"paid","total":"120.50",
		"customer":{"first":"Ada","last":"Lovelace"},
		"items":[{"sku":"A1","qty":2},{"sku":"B7","qty":1}]}}`

	out, err := m.ExecuteTo(input, "json")
	require.NoError(t, err)
	assert.Equal(t,
		`{"receipt":{"customer":"Ada","fullName":"Ada Lovelace","sortName":"Lovelace, Ada","tier":"standard","status":"PAID",`+
			`"lines":[{"product":"A1","line":0,"quantity":2},{"product":"B7","line":1,"quantity":1}],"shipping":"free"}}`,
		string(out))

	n, err := m.Execute(`{"order":{"status":"cancelled","total":20}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"receipt":{"tier":"standard","shipping":"paid"}}`, n.Text())
}

func TestCompileStructureRules(t *testing.T) {
	m := compile(t, `
rules:
  - bulk: user.*
    to: profile
    exclude: [user.password]
    transform: lower
  - map: contact.address
    to: profile.address
  - flatten: contact.address
    to: flat
    prefix: addr_
  - nest: metrics.*
    to: stats
    as: collection
    key: name
`)

	n, err := m.ExecuteValue(map[string]any{
		"user":    map[string]any{"name": "Ada", "password": "x"},
		"contact": map[string]any{"address": map[string]any{"city": "London", "zip": "N1"}},
		"metrics": map[string]any{"cpu": 1, "mem": 2},
	})
	require.NoError(t, err)

	want, err := codec.DecodeJSON([]byte(`{"profile":{"name":"ada","address":{"city":"London","zip":"N1"}},` +
		`"flat":{"addr_city":"London","addr_zip":"N1"},"stats":[{"name":"cpu","value":1},{"name":"mem","value":2}]}`))
	require.NoError(t, err)
	assert.True(t, tree.Equal(want, n), n.Text())
}

func TestCompileCollect(t *testing.T) {
	m := compile(t, `
input: yaml
output: yaml
rules:
  - collect: rows
    as: row
    index: n
    to: items
    rules:
      - map: $row.id
        to: id
        transform: toInt
      - map: $n
        to: position
`)

	n, err := m.Execute("rows:\n  - id: \"7\"\n  - id: \"9\"\n")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[{"id":7,"position":0},{"id":9,"position":1}]}`, n.Text())
}

func TestCompileConditions(t *testing.T) {
	src := map[string]any{
		"name":    "Ada",
		"email":   "ada@example.com",
		"age":     "36",
		"score":   12.5,
		"nothing": nil,
		"tags":    []any{"a"},
	}

	tests := []struct {
		when string
		want bool
	}{
		{"name", true},
		{"missing", false},
		{"nothing", true},
		{"{path: missing, exists: false}", true},
		{"{path: name, equals: Ada}", true},
		{"{path: name, equals: ada}", false},
		{"{path: nothing, equals: null}", true},
		{"{path: name, notEquals: Bob}", true},
		{"{path: missing, notEquals: Bob}", true},
		{"{path: name, in: [Ada, Bob]}", true},
		{"{path: missing, in: [Ada]}", false},
		{`{path: email, matches: "@example\\.com$"}`, true},
		{"{path: tags, matches: a}", false},
		{"{path: age, gt: 18}", true},
		{"{path: age, lt: 18}", false},
		{"{path: score, gt: 10, lt: 20}", true},
		{"{path: name, gt: 1}", false},
		{"{path: age, func: isNumber}", true},
		{"{path: name, func: isNumber}", false},
		{"{func: isNumber, args: [\"3\"]}", true},
		{"{all: [name, email]}", true},
		{"{all: [name, missing]}", false},
		{"{any: [missing, email]}", true},
		{"{not: missing}", true},
		{"{path: name, not: {path: name, equals: Ada}}", false},
	}

	c := &compiler{reg: functions.Builtins()}

	for _, tt := range tests {
		t.Run(tt.when, func(t *testing.T) {
			var raw any
			require.NoError(t, yaml.Unmarshal([]byte(tt.when), &raw))

			def, err := decodeCondition(raw)
			require.NoError(t, err)
			require.Empty(t, def.Unknown)

			got, err := c.condition(&def)(engine.NewContext(tree.From(src)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileConditionErrors(t *testing.T) {
	c := &compiler{reg: functions.Builtins()}
	ctx := engine.NewContext(tree.From(map[string]any{"name": "Ada"}))

	for _, when := range []string{
		"{path: name, func: toInt}",
		"{path: name, func: upper}",
		"{any: [missing, {path: name, func: toInt}]}",
		"{not: {path: name, func: toInt}}",
	} {
		t.Run(when, func(t *testing.T) {
			var raw any
			require.NoError(t, yaml.Unmarshal([]byte(when), &raw))

			def, err := decodeCondition(raw)
			require.NoError(t, err)

			ok, err := c.condition(&def)(ctx)
			require.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCompileFailingPredicateAborts(t *testing.T) {
	reg := functions.Builtins()
	require.NoError(t, reg.Register("isVip", func(tier int) (bool, error) {
		return false, fmt.Errorf("tier %d is not rated", tier)
	}))

	mf, err := Parse([]byte(`
rules:
  - branch:
      - when: {path: tier, func: isVip}
        rules:
          - map: "'vip'"
            to: level
      - otherwise: true
        rules:
          - map: "'regular'"
            to: level
`))
	require.NoError(t, err)

	m, err := Compile(mf, reg)
	require.NoError(t, err)

	for _, input := range []string{`{"tier":3}`, `{"tier":"gold"}`} {
		out, err := m.Execute(input)
		require.Error(t, err, input)
		assert.Nil(t, out, input)

		var execErr *engine.ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, engine.KindBranch, execErr.Rule)
		assert.Equal(t, 0, execErr.Index)
		assert.Contains(t, err.Error(), "isVip")
	}
}

func TestCompileRejectsInvalidMapping(t *testing.T) {
	mf, err := Parse([]byte("rules:\n  - map: a\n    to: b\n    transform: uper\n"))
	require.NoError(t, err)

	_, err = Compile(mf, functions.Builtins())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrConfig)
	assert.ErrorIs(t, err, diagnostic.ErrInvalid)
	assert.Contains(t, err.Error(), "upper")
}

func TestCompileTransformErrorAborts(t *testing.T) {
	m := compile(t, "rules:\n  - map: n\n    to: n\n    transform: toInt\n")

	_, err := m.Execute(`{"n":"not a number"}`)
	require.Error(t, err)

	var execErr *engine.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 0, execErr.Index)
}

func TestCodec(t *testing.T) {
	mf := &MappingFile{Input: "csv"}

	svc, err := Codec(mf, true)
	require.NoError(t, err)

	n, err := svc.Parse([]byte("a\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, `[{"a":"1"}]`, n.Text())

	_, err = Codec(&MappingFile{Input: "toml"}, false)
	assert.ErrorIs(t, err, engine.ErrConfig)

	assert.Equal(t, "json", string(mf.OutputFormat()))
	assert.Equal(t, "yaml", string((&MappingFile{Output: "yml"}).OutputFormat()))
}

func TestCompileLogRule(t *testing.T) {
	var buf bytes.Buffer

	mf, err := Parse([]byte(`
name: audit
rules:
  - log: order received
    level: warn
    paths: [id, customer.email]
    when: {path: id, exists: true}
  - map: id
    to: orderId
`))
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	m, err := Compile(mf, nil, engine.WithLogger(logger))
	require.NoError(t, err)

	out, err := m.Execute(`{"id":7,"customer":{"email":"a@b.c"}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"orderId":7}`, out.Text())

	assert.Contains(t, buf.String(), `"level":"WARN","msg":"order received","mapping":"audit","id":7,"customer.email":"a@b.c"`)

	buf.Reset()

	_, err = m.Execute(`{"customer":{}}`)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestCompileRejectsBadLogLevel(t *testing.T) {
	mf, err := Parse([]byte("rules:\n  - log: hi\n    level: loud\n"))
	require.NoError(t, err)

	_, err = Compile(mf, nil)
	assert.ErrorIs(t, err, engine.ErrConfig)
}

func TestCompileXMLInput(t *testing.T) {
	m := compile(t, `
input: xml
output: xml
rules:
  - map: "@attributes.id"
    to: "@id"
  - forEach: line
    as: l
    rules:
      - map: $l.sku
        to: last
`)

	out, err := m.ExecuteTo(`<order id="A-1"><line><sku>a</sku></line><line><sku>b</sku></line></order>`, "xml")
	require.NoError(t, err)
	assert.Equal(t, xml.Header+`<root id="A-1"><last>b</last></root>`, string(out))
}
