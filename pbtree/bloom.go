package pbtree

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bits-and-blooms/bloom/v3"
)

// bloomTrailerFixedSize is the length of the fixed-offset-from-end part of
// the trailer: a uint32 LE byte count for the filter payload, followed by
// the magic. Grounded in the teacher's sst.diskSSTWriter, which also
// appends a bloom filter after the data blocks, ahead of a fixed-size
// footer.
const bloomTrailerFixedSize = PointerSize + len(bloomMagic)

// writeBloomTrailer serializes filter as [filter bytes][uint32 LE
// length][magic] onto w.
func writeBloomTrailer(w io.Writer, filter *bloom.BloomFilter) error {
	data, err := filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("pbtree: marshal bloom filter: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("pbtree: write bloom filter: %w", err)
	}
	lenBuf := make([]byte, PointerSize)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(data)))
	if _, err := w.Write(lenBuf); err != nil {
		return fmt.Errorf("pbtree: write bloom filter length: %w", err)
	}
	if _, err := w.Write([]byte(bloomMagic)); err != nil {
		return fmt.Errorf("pbtree: write bloom magic: %w", err)
	}
	return nil
}

// readBloomTrailer looks for the bloom magic at the end of a byte range of
// size fileSize addressed through readAt. It returns ok=false, no error,
// when the magic is absent — that is the normal case for a file built
// without WithBloomFilter. trailerSize is the total byte length of the
// trailer (filter payload plus the fixed-size length+magic suffix), for
// callers that need to exclude it from the data region.
func readBloomTrailer(readAt io.ReaderAt, fileSize int64) (filter *bloom.BloomFilter, trailerSize int64, ok bool, err error) {
	if fileSize < int64(bloomTrailerFixedSize) {
		return nil, 0, false, nil
	}

	magicBuf := make([]byte, len(bloomMagic))
	if _, err := readAt.ReadAt(magicBuf, fileSize-int64(len(bloomMagic))); err != nil {
		return nil, 0, false, fmt.Errorf("pbtree: read bloom magic: %w", err)
	}
	if string(magicBuf) != bloomMagic {
		return nil, 0, false, nil
	}

	lenBuf := make([]byte, PointerSize)
	lenOffset := fileSize - int64(bloomTrailerFixedSize)
	if _, err := readAt.ReadAt(lenBuf, lenOffset); err != nil {
		return nil, 0, false, fmt.Errorf("pbtree: read bloom filter length: %w", err)
	}
	dataLen := int64(binary.LittleEndian.Uint32(lenBuf))

	dataOffset := lenOffset - dataLen
	if dataOffset < 0 {
		return nil, 0, false, fmt.Errorf("%w: bloom trailer length exceeds file size", ErrCorruptFile)
	}
	data := make([]byte, dataLen)
	if _, err := readAt.ReadAt(data, dataOffset); err != nil {
		return nil, 0, false, fmt.Errorf("pbtree: read bloom filter payload: %w", err)
	}

	f := &bloom.BloomFilter{}
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, 0, false, fmt.Errorf("%w: bloom filter payload: %v", ErrCorruptFile, err)
	}
	return f, dataLen + int64(bloomTrailerFixedSize), true, nil
}

// bloomTrailerSize returns the total byte length of the trailer that
// writeBloomTrailer would append for filter. Reader.Diagnose reports this
// so a full --full levels walk can account for the trailer's share of the
// file alongside the index/data block counts.
func bloomTrailerSize(filter *bloom.BloomFilter) (int64, error) {
	data, err := filter.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("pbtree: marshal bloom filter: %w", err)
	}
	return int64(len(data) + bloomTrailerFixedSize), nil
}
