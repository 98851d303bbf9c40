package codec

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a document format.
type Format string

const (
	FormatUnknown Format = ""
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatCSV     Format = "csv"
	FormatXML     Format = "xml"
)

// ErrUnknownFormat is returned when a format name or document is not
// recognized.
var ErrUnknownFormat = errors.New("unknown format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatCSV, FormatXML}
}

// Extension returns the usual file extension, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ParseFormat parses a format name. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "xml":
		return FormatXML, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return FormatUnknown
	}

	return f
}

// detectSample is how much of a document Detect looks at.
const detectSample = 8192

// minConfidence is the score below which Detect gives up.
const minConfidence = 0.3

// Detect guesses the format of data from its content. Each format is
// scored and the best score wins; FormatUnknown is returned when no format
// is convincing.
func Detect(data []byte) Format {
	if len(data) > detectSample {
		data = data[:detectSample]
	}

	best, score := FormatUnknown, float32(minConfidence)

	for _, d := range []struct {
		format Format
		score  func([]byte) float32
	}{
		{FormatJSON, jsonScore},
		{FormatYAML, yamlScore},
		{FormatCSV, csvScore},
		{FormatXML, xmlScore},
	} {
		if s := d.score(data); s > score {
			best, score = d.format, s
		}
	}

	return best
}

func jsonScore(data []byte) float32 {
	text := bytes.TrimSpace(data)
	if len(text) == 0 {
		return 0
	}

	start, end := text[0], text[len(text)-1]
	if (start != '{' && start != '[') || (end != '}' && end != ']') {
		return 0
	}

	if bytes.Contains(text, []byte(`"`)) && bytes.Contains(text, []byte(":")) && bytes.Contains(text, []byte(",")) {
		return 0.9
	}

	return 0.5
}

func yamlScore(data []byte) float32 {
	lines := firstLines(data, 10)
	if len(lines) == 0 {
		return 0
	}

	var indented, pairs, dashes bool

	for _, l := range lines {
		indented = indented || strings.HasPrefix(l, "  ") || strings.HasPrefix(l, "\t")
		pairs = pairs || strings.Contains(l, ": ") || strings.HasSuffix(l, ":")
		dashes = dashes || strings.HasPrefix(strings.TrimSpace(l), "- ")
	}

	var score float32
	if pairs {
		score += 0.4
	}

	if indented {
		score += 0.3
	}

	if dashes {
		score += 0.3
	}

	return min(score, 0.85)
}

func csvScore(data []byte) float32 {
	lines := firstLines(data, 5)
	if len(lines) == 0 {
		return 0
	}

	commas := strings.Count(lines[0], ",")
	if commas == 0 {
		return 0.1
	}

	for _, l := range lines[1:] {
		if strings.Count(l, ",") != commas {
			return 0.3
		}
	}

	if len(lines) > 1 {
		return 0.8
	}

	return 0.6
}

func firstLines(data []byte, n int) []string {
	var out []string

	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		out = append(out, line)
		if len(out) == n {
			break
		}
	}

	return out
}
