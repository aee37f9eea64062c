package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/archivekit/pbtree/pbtree"
)

// parsePacker builds a ValuePacker from a --fields flag value. An empty
// spec yields the default 64-bit scalar packer. A non-empty spec is a
// comma-separated list of name:bitwidth pairs, producing a RecordFormat.
func parsePacker(spec string) (pbtree.ValuePacker, error) {
	if spec == "" {
		return pbtree.NewScalarFormat(64)
	}
	parts := strings.Split(spec, ",")
	fields := make([]pbtree.FieldSpec, 0, len(parts))
	for _, p := range parts {
		name, width, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("invalid field spec %q, want name:bitwidth", p)
		}
		n, err := strconv.Atoi(width)
		if err != nil {
			return nil, fmt.Errorf("invalid bit width in %q: %w", p, err)
		}
		fields = append(fields, pbtree.FieldSpec{Name: name, BitWidth: n})
	}
	return pbtree.NewRecordFormat(fields)
}

// openFile opens path and returns it along with its size, for handing to
// pbtree.NewReader.
func openFile(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return f, info.Size(), nil
}

// packValue converts a raw CLI string value into the shape a ValuePacker's
// Pack expects: a uint64 for ScalarFormat, a map[string]uint64 for
// RecordFormat (parsed the same comma-separated name:value form as
// --fields).
func packValue(packer pbtree.ValuePacker, raw string) (any, error) {
	if _, ok := packer.(*pbtree.RecordFormat); ok {
		dict := make(map[string]uint64)
		for _, p := range strings.Split(raw, ",") {
			name, val, ok := strings.Cut(p, ":")
			if !ok {
				return nil, fmt.Errorf("invalid value field %q, want name:value", p)
			}
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value in %q: %w", p, err)
			}
			dict[name] = n
		}
		return dict, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid scalar value %q: %w", raw, err)
	}
	return n, nil
}

// formatValue renders a value unpacked from a pbtree file for display.
func formatValue(v any) string {
	switch val := v.(type) {
	case uint64:
		return strconv.FormatUint(val, 10)
	case map[string]uint64:
		parts := make([]string, 0, len(val))
		for k, n := range val {
			parts = append(parts, fmt.Sprintf("%s:%d", k, n))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}
