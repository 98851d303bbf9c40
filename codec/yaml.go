package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"shape-mapper/tree"
)

// DecodeYAML parses the first document of a YAML stream into a tree,
// keeping mapping key order. Anchors and aliases are expanded.
func DecodeYAML(data []byte) (*tree.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if doc.Kind == 0 {
		return tree.Null(), nil
	}

	n, err := fromYAML(&doc, 0)
	if err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	return n, nil
}

const maxYAMLDepth = 10000

func fromYAML(node *yaml.Node, depth int) (*tree.Node, error) {
	if depth > maxYAMLDepth {
		return nil, errors.New("document nested too deeply")
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return tree.Null(), nil
		}

		return fromYAML(node.Content[0], depth+1)

	case yaml.AliasNode:
		return fromYAML(node.Alias, depth+1)

	case yaml.MappingNode:
		obj := tree.NewObject()

		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]

			if key.ShortTag() == "!!merge" {
				if err := mergeYAML(obj, val, depth); err != nil {
					return nil, err
				}

				continue
			}

			v, err := fromYAML(val, depth+1)
			if err != nil {
				return nil, err
			}

			obj.Set(key.Value, v)
		}

		return obj, nil

	case yaml.SequenceNode:
		arr := tree.NewArray()

		for _, c := range node.Content {
			v, err := fromYAML(c, depth+1)
			if err != nil {
				return nil, err
			}

			arr.Append(v)
		}

		return arr, nil

	case yaml.ScalarNode:
		return yamlScalar(node)

	default:
		return nil, fmt.Errorf("unsupported yaml node kind %d", node.Kind)
	}
}

// mergeYAML applies a "<<" merge key. Keys already present win.
func mergeYAML(obj *tree.Node, val *yaml.Node, depth int) error {
	src, err := fromYAML(val, depth+1)
	if err != nil {
		return err
	}

	sources := []*tree.Node{src}
	if src.IsArray() {
		sources = sources[:0]
		for _, e := range src.Elements() {
			sources = append(sources, e)
		}
	}

	for _, s := range sources {
		for k, v := range s.Fields() {
			if !obj.Has(k) {
				obj.Set(k, v)
			}
		}
	}

	return nil
}

func yamlScalar(node *yaml.Node) (*tree.Node, error) {
	switch node.ShortTag() {
	case "!!null":
		return tree.Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, err
		}

		return tree.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, err
		}

		return tree.Number(f), nil
	default:
		return tree.String(node.Value), nil
	}
}

// EncodeYAML renders a tree as a YAML document indented by two spaces.
func EncodeYAML(n *tree.Node) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(toYAML(n)); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}

	return buf.Bytes(), nil
}

func toYAML(n *tree.Node) *yaml.Node {
	switch n.Kind() {
	case tree.KindObject:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for k, v := range n.Fields() {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				toYAML(v))
		}

		return out
	case tree.KindArray:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range n.Elements() {
			out.Content = append(out.Content, toYAML(e))
		}

		return out
	case tree.KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Text()}
	case tree.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: n.Text()}
	case tree.KindNumber:
		f, _ := n.AsNumber()

		return &yaml.Node{Kind: yaml.ScalarNode, Tag: yamlNumberTag(f), Value: yamlNumber(f)}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func yamlNumberTag(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return "!!int"
	}

	return "!!float"
}

func yamlNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	default:
		return tree.FormatNumber(f)
	}
}
