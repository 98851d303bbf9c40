package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"shape-mapper/tree"
)

// DecodeJSON parses a JSON document into a tree, keeping object key order.
func DecodeJSON(data []byte) (*tree.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode json: trailing data after document")
	}

	return n, nil
}

func decodeJSONValue(dec *json.Decoder) (*tree.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := tree.NewObject()

			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}

				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}

				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}

				obj.Set(key, v)
			}

			_, err = dec.Token()

			return obj, err
		case '[':
			arr := tree.NewArray()

			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}

				arr.Append(v)
			}

			_, err = dec.Token()

			return arr, err
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case json.Number:
		return tree.From(t), nil
	case string:
		return tree.String(t), nil
	case bool:
		return tree.Bool(t), nil
	case nil:
		return tree.Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// EncodeJSON renders a tree as JSON. With pretty the output is indented by
// two spaces and ends with a newline. Non-finite numbers cannot be
// represented and are reported as errors.
func EncodeJSON(n *tree.Node, pretty bool) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if pretty {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}

	out := unescapeHTML(buf.Bytes())
	if !pretty {
		out = bytes.TrimSuffix(out, []byte("\n"))
	}

	return out, nil
}

var htmlEscapes = map[string]byte{`\u003c`: '<', `\u003e`: '>', `\u0026`: '&'}

// unescapeHTML reverts the HTML-safe escapes that nested json.Marshal calls
// apply to strings and keys. Every other escape is kept.
func unescapeHTML(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u00`)) {
		return data
	}

	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}

		if i+6 <= len(data) {
			if c, ok := htmlEscapes[string(data[i:i+6])]; ok {
				out = append(out, c)
				i += 5

				continue
			}
		}

		out = append(out, data[i], data[i+1])
		i++
	}

	return out
}
