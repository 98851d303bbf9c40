package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"shape-mapper/tree"
)

const (
	// xmlAttrKey holds an element's attributes in the decoded tree.
	xmlAttrKey = "@attributes"
	// xmlTextKey holds the text of an element that also has attributes
	// or children.
	xmlTextKey = "#text"

	xmlRootName = "root"
	xmlItemName = "item"
)

var xmlNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// DecodeXML parses an XML document. The root element's content becomes the
// tree; its name is dropped.
//
// An element holding only text becomes a scalar: true, false, null and
// numbers are typed, anything else stays a string. Otherwise it becomes an
// object with attributes under "@attributes", text under "#text" and one
// key per child name. Repeated child names collect into an array. Text
// split around child elements is joined with single spaces.
func DecodeXML(data []byte) (*tree.Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("decode xml: no root element")
		}

		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n, err := decodeXMLElement(dec, t)
			if err != nil {
				return nil, fmt.Errorf("decode xml: %w", err)
			}

			if err := xmlTrailer(dec); err != nil {
				return nil, fmt.Errorf("decode xml: %w", err)
			}

			return n, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, errors.New("decode xml: text before root element")
			}
		}
	}
}

func decodeXMLElement(dec *xml.Decoder, start xml.StartElement) (*tree.Node, error) {
	var (
		text     []string
		names    []string
		children = map[string][]*tree.Node{}
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeXMLElement(dec, t)
			if err != nil {
				return nil, err
			}

			name := t.Name.Local
			if _, seen := children[name]; !seen {
				names = append(names, name)
			}

			children[name] = append(children[name], child)
		case xml.CharData:
			if s := strings.TrimSpace(string(t)); s != "" {
				text = append(text, s)
			}
		case xml.EndElement:
			attrs := xmlAttributes(start.Attr)
			joined := strings.Join(text, " ")
			if attrs == nil && len(names) == 0 {
				return xmlScalar(joined), nil
			}

			obj := tree.NewObject()
			if attrs != nil {
				obj.Set(xmlAttrKey, attrs)
			}

			if joined != "" {
				obj.Set(xmlTextKey, xmlScalar(joined))
			}

			for _, name := range names {
				if list := children[name]; len(list) == 1 {
					obj.Set(name, list[0])
				} else {
					obj.Set(name, tree.NewArray(list...))
				}
			}

			return obj, nil
		}
	}
}

// xmlAttributes returns nil when there are no attributes besides
// namespace declarations.
func xmlAttributes(attrs []xml.Attr) *tree.Node {
	var obj *tree.Node

	for _, a := range attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}

		if obj == nil {
			obj = tree.NewObject()
		}

		obj.Set(a.Name.Local, xmlScalar(a.Value))
	}

	return obj
}

func xmlScalar(s string) *tree.Node {
	switch strings.ToLower(s) {
	case "true":
		return tree.Bool(true)
	case "false":
		return tree.Bool(false)
	case "null":
		return tree.Null()
	}

	if xmlNumber.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return tree.Number(f)
		}
	}

	return tree.String(s)
}

func xmlTrailer(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("second root element <%s>", t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errors.New("text after root element")
			}
		}
	}
}

// EncodeXML renders n under a <root> element. Object keys become child
// elements, except "@attributes" and "@name" keys, which become
// attributes, and "#text", which becomes the element's text. An array under
// a key repeats the key's element once per entry; a bare array wraps its
// entries in <item> elements. Null renders as an empty element.
func EncodeXML(n *tree.Node, pretty bool) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	if pretty {
		enc.Indent("", "  ")
	}

	if err := encodeXMLElement(enc, xmlRootName, n); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}

	if pretty {
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

func encodeXMLElement(enc *xml.Encoder, name string, n *tree.Node) error {
	if !isXMLName(name) {
		return fmt.Errorf("%q is not a valid element name", name)
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}

	var (
		text     *tree.Node
		children []string
	)

	switch n.Kind() {
	case tree.KindObject:
		for k, v := range n.Fields() {
			switch {
			case k == xmlAttrKey && v.IsObject():
				for ak, av := range v.Fields() {
					attr, err := xmlAttr(ak, av)
					if err != nil {
						return err
					}

					start.Attr = append(start.Attr, attr)
				}
			case strings.HasPrefix(k, "@"):
				attr, err := xmlAttr(k[1:], v)
				if err != nil {
					return err
				}

				start.Attr = append(start.Attr, attr)
			case k == xmlTextKey:
				text = v
			default:
				children = append(children, k)
			}
		}
	case tree.KindArray:
	default:
		text = n
	}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	if s := xmlText(text); s != "" {
		if err := enc.EncodeToken(xml.CharData(s)); err != nil {
			return err
		}
	}

	if n.IsArray() {
		for _, e := range n.Elements() {
			if err := encodeXMLElement(enc, xmlItemName, e); err != nil {
				return err
			}
		}
	}

	for _, k := range children {
		v, _ := n.Get(k)
		if !v.IsArray() {
			if err := encodeXMLElement(enc, k, v); err != nil {
				return err
			}

			continue
		}

		for _, e := range v.Elements() {
			if err := encodeXMLElement(enc, k, e); err != nil {
				return err
			}
		}
	}

	return enc.EncodeToken(start.End())
}

func xmlAttr(name string, v *tree.Node) (xml.Attr, error) {
	if !isXMLName(name) {
		return xml.Attr{}, fmt.Errorf("%q is not a valid attribute name", name)
	}

	if v.Kind().IsContainer() {
		return xml.Attr{}, fmt.Errorf("attribute %q holds a %s", name, v.Kind())
	}

	return xml.Attr{Name: xml.Name{Local: name}, Value: xmlText(v)}, nil
}

func xmlText(n *tree.Node) string {
	if n == nil || n.IsNull() {
		return ""
	}

	if s, ok := n.AsString(); ok {
		return s
	}

	return n.Text()
}

// isXMLName reports whether s is usable as an unprefixed element or
// attribute name.
func isXMLName(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}

	return true
}

func xmlScore(data []byte) float32 {
	text := bytes.TrimSpace(data)
	if len(text) == 0 || text[0] != '<' {
		return 0
	}

	if bytes.HasPrefix(text, []byte("<?xml")) || bytes.HasSuffix(text, []byte(">")) {
		return 0.9
	}

	return 0.5
}
