package mapping

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyFile is returned for a rule file without any document.
var ErrEmptyFile = errors.New("mapping file is empty")

// LoadFile loads and parses a YAML mapping file from the given path. A
// file without a name is named after its base name.
func LoadFile(path string) (*MappingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	mf, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if mf.Name == "" {
		mf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	applyDefaults(mf)

	return mf, nil
}

// Parse parses YAML data into a MappingFile. Unknown top-level keys are
// rejected; unknown keys inside rules are kept for Validate to report.
func Parse(data []byte) (*MappingFile, error) {
	mf, err := parse(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(mf)

	return mf, nil
}

func parse(data []byte) (*MappingFile, error) {
	var mf MappingFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&mf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}

		return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
	}

	return &mf, nil
}

const defaultName = "mapping"

// applyDefaults fills in default values for optional fields.
func applyDefaults(mf *MappingFile) {
	if mf.Version == "" {
		mf.Version = "1"
	}

	if mf.Name == "" {
		mf.Name = defaultName
	}
}
