package codec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"shape-mapper/tree"
)

// DecodeCSV parses comma separated data with a header row into an array of
// objects, one per record, keyed by column name. All values are strings.
func DecodeCSV(data []byte) (*tree.Node, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return tree.NewArray(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	rows := tree.NewArray()

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}

		row := tree.NewObject()
		for i, col := range header {
			if i < len(record) {
				row.Set(col, tree.String(record[i]))
			} else {
				row.Set(col, tree.Null())
			}
		}

		rows.Append(row)
	}

	return rows, nil
}

// EncodeCSV renders an array of objects, or a single object, as CSV. The
// header is the union of keys in order of first appearance. Scalars are
// written as text, containers in compact JSON notation and nulls as empty
// cells.
func EncodeCSV(n *tree.Node) ([]byte, error) {
	var rows []*tree.Node

	switch n.Kind() {
	case tree.KindArray:
		for i, e := range n.Elements() {
			if !e.IsObject() {
				return nil, fmt.Errorf("encode csv: element %d is a %s, not an object", i, e.Kind())
			}

			rows = append(rows, e)
		}
	case tree.KindObject:
		rows = []*tree.Node{n}
	default:
		return nil, fmt.Errorf("encode csv: cannot encode a %s", n.Kind())
	}

	var (
		header []string
		seen   = make(map[string]bool)
	)

	for _, row := range rows {
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}

	record := make([]string, len(header))

	for _, row := range rows {
		for i, col := range header {
			v, _ := row.Get(col)
			record[i] = v.Text()
		}

		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("encode csv: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}

	return buf.Bytes(), nil
}
