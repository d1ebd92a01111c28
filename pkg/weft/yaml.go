package weft

import (
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"gitlab.com/tozd/go/errors"
)

// LoadContext reads a YAML document into TemplateData. JSON is a subset
// of YAML, so JSON context files load through the same path.
func LoadContext(r io.Reader) (TemplateData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Errorf("failed to read context: %w", err)
	}
	return ParseContext(raw)
}

// ParseContext decodes YAML bytes into TemplateData. An empty document
// yields an empty, non-nil context.
func ParseContext(raw []byte) (TemplateData, error) {
	data := TemplateData{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.Errorf("failed to parse context YAML: %w", err)
	}
	return data, nil
}

// LoadContextFile reads a YAML context file from disk.
func LoadContextFile(path string) (TemplateData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("failed to open context file: %w", err)
	}
	defer f.Close()
	return LoadContext(f)
}
