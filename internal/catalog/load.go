package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of an eligibility or basket document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from the file extension.
// Anything that is not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadTable reads the eligibility document at path.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	table, err := DecodeTable(f, FormatFromPath(path))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return table, nil
}

// DecodeTable parses an eligibility document whose top level maps item
// names to lists of delivery method names.
func DecodeTable(r io.Reader, format Format) (Table, error) {
	var table Table
	if err := decode(r, format, &table); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, fmt.Errorf("document does not contain an eligibility mapping")
	}
	return table, nil
}

// LoadBasket reads the basket document at path.
func LoadBasket(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	items, err := DecodeBasket(f, FormatFromPath(path))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return items, nil
}

// DecodeBasket parses a basket document whose top level is a list of item names.
func DecodeBasket(r io.Reader, format Format) ([]string, error) {
	var items []string
	if err := decode(r, format, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

func decode(r io.Reader, format Format, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse YAML: %w", err)
		}
	case FormatJSON:
		if len(bytes.TrimSpace(data)) == 0 {
			return fmt.Errorf("parse JSON: empty document")
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}
