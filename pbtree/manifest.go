package pbtree

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
)

// Manifest is a sidecar schema describing how to open a PBTree file without
// recompiling a hardcoded value format. The original adaptor hardcodes
// VALUE_FORMAT and ITEM_KEYS as constants; this supplements that with a
// runtime-discoverable schema, grounded in jpl-au-folio's header.go, which
// also keeps a small JSON-shaped struct of build parameters next to its
// data.
type Manifest struct {
	BlockSize   int      `json:"block_size"`
	Terminator  byte     `json:"terminator"`
	ValueFormat string   `json:"value_format"`
	ItemKeys    []string `json:"item_keys,omitempty"`
}

// NewScalarManifest describes a file written with a ScalarFormat packer.
func NewScalarManifest(blockSize int, term byte, bitWidth int) Manifest {
	return Manifest{
		BlockSize:   blockSize,
		Terminator:  term,
		ValueFormat: fmt.Sprintf("uint%d LE", bitWidth),
	}
}

// NewRecordManifest describes a file written with a RecordFormat packer.
func NewRecordManifest(blockSize int, term byte, fields []FieldSpec) Manifest {
	m := Manifest{
		BlockSize: blockSize,
		Terminator: term,
	}
	keys := make([]string, len(fields))
	formats := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Name
		formats[i] = fmt.Sprintf("uint%d LE", f.BitWidth)
	}
	m.ItemKeys = keys
	m.ValueFormat = fmt.Sprintf("%v", formats)
	return m
}

// WriteManifest serializes m as JSON onto w.
func WriteManifest(w io.Writer, m Manifest) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("pbtree: encode manifest: %w", err)
	}
	return nil
}

// ReadManifest decodes a Manifest previously written by WriteManifest.
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("pbtree: decode manifest: %w", err)
	}
	return m, nil
}

// WriteManifestFile writes m to path, creating or truncating it.
func WriteManifestFile(path string, m Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pbtree: create manifest %s: %w", path, err)
	}
	defer f.Close()
	return WriteManifest(f, m)
}

// ReadManifestFile reads a Manifest from path.
func ReadManifestFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("pbtree: open manifest %s: %w", path, err)
	}
	defer f.Close()
	return ReadManifest(f)
}
