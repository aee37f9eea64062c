// Package pbtree implements a prefix-compressed, block-structured,
// disk-resident B-tree mapping lexicographically sorted byte-string keys to
// fixed-width binary values.
//
// The index is built in a single streaming pass over pre-sorted input
// (Writer.Add calls, strictly ascending) and queried by random access over
// an immutable byte range (Reader, typically backed by a memory map): exact
// lookup, prefix range scans, and full iteration.
package pbtree

import (
	"encoding/binary"
	"fmt"
)

const (
	// DefaultBlockSize is the writer's default block size (1 MiB) when
	// unspecified. The URL-index adaptor in package urlindex uses 64 KiB
	// instead; the format stores block_size in the header, so files from
	// either default are self-describing.
	DefaultBlockSize = 1 << 20

	// DefaultTerminator separates keys from values within a block and pads
	// trailing block space.
	DefaultTerminator byte = 0x00

	// PointerSize is the width, in bytes, of a block-number pointer.
	PointerSize = 4

	// HeaderSize is the width, in bytes, of the two-word file header.
	HeaderSize = 2 * PointerSize

	bloomMagic = "PBTBLOM1"
)

// header is the two little-endian uint32 words at byte 0 of a PBTree file.
type header struct {
	blockSize       uint32
	indexBlockCount uint32
}

func encodeHeader(h header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.blockSize)
	binary.LittleEndian.PutUint32(buf[4:8], h.indexBlockCount)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < HeaderSize {
		return header{}, fmt.Errorf("%w: short header (%d bytes)", ErrCorruptFile, len(buf))
	}
	h := header{
		blockSize:       binary.LittleEndian.Uint32(buf[0:4]),
		indexBlockCount: binary.LittleEndian.Uint32(buf[4:8]),
	}
	if h.blockSize == 0 {
		return header{}, fmt.Errorf("%w: block_size is zero", ErrCorruptFile)
	}
	return h, nil
}

func putPointer(buf []byte, p uint32) {
	binary.LittleEndian.PutUint32(buf, p)
}

func getPointer(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}
