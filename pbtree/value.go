package pbtree

import (
	"encoding/binary"
	"fmt"
)

// ValuePacker encodes and decodes fixed-width values. The core treats
// packed values as opaque bytes; only Size matters to block layout.
type ValuePacker interface {
	// Size returns the fixed width in bytes of every packed value.
	Size() int
	// Pack encodes v into exactly Size() bytes.
	Pack(v any) ([]byte, error)
	// Unpack decodes a Size()-byte slice back into a value.
	Unpack(b []byte) (any, error)
}

// fieldWidths maps the supported scalar widths to their byte lengths.
var fieldWidths = map[int]int{8: 1, 16: 2, 32: 4, 64: 8}

// ScalarFormat packs a single little-endian unsigned integer of the given
// bit width (8, 16, 32, or 64). It is the default value packer, matching
// the original's "<Q" (uint64 LE) format.
type ScalarFormat struct {
	BitWidth int
}

// NewScalarFormat returns a ScalarFormat for the given bit width, defaulting
// to 64 when width is zero.
func NewScalarFormat(bitWidth int) (*ScalarFormat, error) {
	if bitWidth == 0 {
		bitWidth = 64
	}
	if _, ok := fieldWidths[bitWidth]; !ok {
		return nil, fmt.Errorf("%w: unsupported scalar width %d", ErrBadConfiguration, bitWidth)
	}
	return &ScalarFormat{BitWidth: bitWidth}, nil
}

func (s *ScalarFormat) Size() int { return fieldWidths[s.BitWidth] }

func (s *ScalarFormat) Pack(v any) ([]byte, error) {
	n, err := toUint64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, s.Size())
	switch s.BitWidth {
	case 8:
		buf[0] = byte(n)
	case 16:
		binary.LittleEndian.PutUint16(buf, uint16(n))
	case 32:
		binary.LittleEndian.PutUint32(buf, uint32(n))
	case 64:
		binary.LittleEndian.PutUint64(buf, n)
	}
	return buf, nil
}

func (s *ScalarFormat) Unpack(b []byte) (any, error) {
	if len(b) != s.Size() {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrCorruptFile, s.Size(), len(b))
	}
	switch s.BitWidth {
	case 8:
		return uint64(b[0]), nil
	case 16:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 32:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	default:
		return binary.LittleEndian.Uint64(b), nil
	}
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint32:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("%w: negative scalar %d", ErrBadConfiguration, n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("%w: negative scalar %d", ErrBadConfiguration, n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("%w: value %v is not an unsigned integer", ErrBadConfiguration, v)
	}
}

// FieldSpec names one field of a RecordFormat tuple and its bit width.
type FieldSpec struct {
	Name     string
	BitWidth int
}

// RecordFormat packs a tuple of little-endian integers in a fixed field
// order, projecting a caller-supplied map[string]uint64 into that order
// before packing. This mirrors PBTreeDictWriter/PBTreeDictReader from the
// original, where item_keys names the projection.
type RecordFormat struct {
	Fields []FieldSpec
}

// NewRecordFormat validates field widths and returns a RecordFormat.
func NewRecordFormat(fields []FieldSpec) (*RecordFormat, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: record format needs at least one field", ErrBadConfiguration)
	}
	for _, f := range fields {
		if _, ok := fieldWidths[f.BitWidth]; !ok {
			return nil, fmt.Errorf("%w: unsupported field width %d for %q", ErrBadConfiguration, f.BitWidth, f.Name)
		}
	}
	return &RecordFormat{Fields: fields}, nil
}

func (r *RecordFormat) Size() int {
	n := 0
	for _, f := range r.Fields {
		n += fieldWidths[f.BitWidth]
	}
	return n
}

func (r *RecordFormat) Pack(v any) ([]byte, error) {
	dict, ok := v.(map[string]uint64)
	if !ok {
		return nil, fmt.Errorf("%w: record value must be map[string]uint64", ErrBadConfiguration)
	}
	buf := make([]byte, 0, r.Size())
	for _, f := range r.Fields {
		n, present := dict[f.Name]
		if !present {
			return nil, fmt.Errorf("%w: missing field %q", ErrBadConfiguration, f.Name)
		}
		scratch := make([]byte, fieldWidths[f.BitWidth])
		switch f.BitWidth {
		case 8:
			scratch[0] = byte(n)
		case 16:
			binary.LittleEndian.PutUint16(scratch, uint16(n))
		case 32:
			binary.LittleEndian.PutUint32(scratch, uint32(n))
		case 64:
			binary.LittleEndian.PutUint64(scratch, n)
		}
		buf = append(buf, scratch...)
	}
	return buf, nil
}

func (r *RecordFormat) Unpack(b []byte) (any, error) {
	if len(b) != r.Size() {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrCorruptFile, r.Size(), len(b))
	}
	dict := make(map[string]uint64, len(r.Fields))
	off := 0
	for _, f := range r.Fields {
		w := fieldWidths[f.BitWidth]
		field := b[off : off+w]
		var n uint64
		switch f.BitWidth {
		case 8:
			n = uint64(field[0])
		case 16:
			n = uint64(binary.LittleEndian.Uint16(field))
		case 32:
			n = uint64(binary.LittleEndian.Uint32(field))
		case 64:
			n = binary.LittleEndian.Uint64(field)
		}
		dict[f.Name] = n
		off += w
	}
	return dict, nil
}
