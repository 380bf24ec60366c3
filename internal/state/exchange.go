package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/modpack/internal/model"
)

// Format is a snapshot file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrEmptyDocument is returned by Import for a document holding none of
// the known collections.
var ErrEmptyDocument = errors.New("document has no collections")

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", name)
	}
}

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Export writes snap as a single document. Absent collections are
// written as empty lists.
func Export(w io.Writer, snap model.Snapshot, format Format) error {
	snap = snap.Normalize()

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

// Import reads a snapshot document. Collections missing from the
// document are nil in the result so that ReplaceSnapshot leaves them
// untouched.
func Import(r io.Reader, format Format) (model.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read document: %w", err)
	}

	var snap model.Snapshot
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return model.Snapshot{}, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&snap); err != nil {
			return model.Snapshot{}, fmt.Errorf("decode json: %w", err)
		}
	default:
		return model.Snapshot{}, fmt.Errorf("import: unknown format %q", format)
	}

	if snap.IsZero() {
		return model.Snapshot{}, fmt.Errorf("import: %w", ErrEmptyDocument)
	}
	return snap, nil
}
