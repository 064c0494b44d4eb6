// Package document reads validation workflows from JSON or YAML files.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/stepflow/pkg/models"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is a decoded workflow with its generic form, kept for schema
// validation.
type Document struct {
	Raw      any
	Workflow *models.Workflow
}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Load reads and decodes the workflow stored at path.
func Load(path string) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return doc, nil
}

// Parse decodes data. YAML keys use the same snake_case names as the JSON
// wire format.
func Parse(data []byte, format Format) (*Document, error) {
	var raw any

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("document is not representable as JSON: %w", err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(normalized, &workflow); err != nil {
		return nil, err
	}

	// Reuse the JSON form so schema checks see the same types for both formats.
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, err
	}

	return &Document{Raw: raw, Workflow: &workflow}, nil
}

// Write encodes workflow to path in the format given by its extension.
func Write(path string, workflow *models.Workflow) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	data, err := Marshal(workflow, format)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Marshal encodes workflow. YAML output keeps the JSON field names.
func Marshal(workflow *models.Workflow, format Format) ([]byte, error) {
	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return data, nil
	case FormatYAML:
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}

		return yaml.Marshal(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
