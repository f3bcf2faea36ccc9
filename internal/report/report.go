// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report serializes collection reports. JSON is the primary format:
// two-space indented, keys in struct order, non-ASCII text written
// literally. YAML is available for human inspection.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/persona-digest/pkg/types"
)

// ErrOutputWrite marks a report that could not be written.
var ErrOutputWrite = errors.New("report output failed")

// Format selects the report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. Empty selects JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want json or yaml)", s)
}

// Encode writes r to w in the given format.
func Encode(w io.Writer, r *types.CollectionReport, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	}
}

// Marshal returns the encoded form of r.
func Marshal(r *types.CollectionReport, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Writer writes reports to files in one format.
type Writer struct {
	Format Format
}

// WriteFile writes r to path, creating parent directories as needed.
func (w Writer) WriteFile(path string, r *types.CollectionReport) error {
	data, err := Marshal(r, w.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating output directory: %w", ErrOutputWrite, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	return nil
}

// WriteFile writes r to path as JSON.
func WriteFile(path string, r *types.CollectionReport) error {
	return Writer{Format: FormatJSON}.WriteFile(path, r)
}

// ReadFile reads a report written by WriteFile. YAML is detected by the
// .yaml or .yml extension.
func ReadFile(path string) (*types.CollectionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}

	var r types.CollectionReport
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &r)
	default:
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}
