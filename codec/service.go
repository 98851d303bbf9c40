// Package codec converts JSON, YAML, CSV and XML documents to and from trees.
//
// Service bundles the decoders and encoders behind the Parse and Serialize
// methods a mapping uses for raw input and formatted output.
package codec

import (
	"fmt"

	"shape-mapper/tree"
)

// Service parses and serializes documents. The zero value detects the input
// format and writes compact output.
type Service struct {
	input  Format
	pretty bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithInputFormat fixes the input format instead of detecting it.
func WithInputFormat(f Format) ServiceOption {
	return func(s *Service) { s.input = f }
}

// WithPretty enables indented JSON and XML output.
func WithPretty(pretty bool) ServiceOption {
	return func(s *Service) { s.pretty = pretty }
}

// NewService builds a Service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Parse decodes data in the configured format, detecting it when unset.
func (s *Service) Parse(data []byte) (*tree.Node, error) {
	format := s.input
	if format == FormatUnknown {
		format = Detect(data)
	}

	return Decode(data, format)
}

// Serialize encodes n in the named format.
func (s *Service) Serialize(n *tree.Node, format string) ([]byte, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	return Encode(n, f, s.pretty)
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) (*tree.Node, error) {
	switch format {
	case FormatJSON:
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	case FormatCSV:
		return DecodeCSV(data)
	case FormatXML:
		return DecodeXML(data)
	default:
		return nil, fmt.Errorf("%w: cannot decode %q", ErrUnknownFormat, string(format))
	}
}

// Encode renders n in the given format. Pretty affects JSON and XML; YAML is
// always indented.
func Encode(n *tree.Node, format Format, pretty bool) ([]byte, error) {
	switch format {
	case FormatJSON:
		return EncodeJSON(n, pretty)
	case FormatYAML:
		return EncodeYAML(n)
	case FormatCSV:
		return EncodeCSV(n)
	case FormatXML:
		return EncodeXML(n, pretty)
	default:
		return nil, fmt.Errorf("%w: cannot encode %q", ErrUnknownFormat, string(format))
	}
}
