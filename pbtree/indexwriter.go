package pbtree

import (
	"fmt"
	"io"
)

// indexLevel is one level of the interior-node stack: level 0 indexes leaf
// blocks, level k indexes level k-1. Each level's spill sink begins with a
// pointer_size leftmost-child pointer seeded to 0.
type indexLevel struct {
	sink      *SpillWriter
	pointers  uint32
	remaining int
}

// IndexWriter builds the hierarchical index as a stack of levels, cascading
// upward when a level's current block fills, and rebases every level's
// locally-numbered block pointers to absolute block numbers on Finish. See
// the pbtree/indexwriter.go entry in DESIGN.md for the grounding of the
// two-pass local-then-rebase construction.
type IndexWriter struct {
	term           byte
	blockSize      int // full on-disk block size (post-checksum)
	localBlockSize int // blockSize minus the checksum trailer, if enabled
	checksums      bool
	spillThreshold int64

	levels []*indexLevel
}

// NewIndexWriter constructs an IndexWriter. spillThreshold of 0 uses
// DefaultSpillThreshold for every level's backing SpillWriter.
func NewIndexWriter(term byte, blockSize int, checksums bool, spillThreshold int64) (*IndexWriter, error) {
	localBlockSize := blockSize
	if checksums {
		localBlockSize -= checksumSize
	}
	if localBlockSize <= PointerSize {
		return nil, fmt.Errorf("%w: block size %d too small for an index pointer", ErrBadConfiguration, blockSize)
	}
	return &IndexWriter{
		term:           term,
		blockSize:      blockSize,
		localBlockSize: localBlockSize,
		checksums:      checksums,
		spillThreshold: spillThreshold,
	}, nil
}

func (w *IndexWriter) pushLevel() error {
	lvl := &indexLevel{
		sink:      NewSpillWriter(w.spillThreshold),
		remaining: w.localBlockSize - PointerSize,
	}
	buf := make([]byte, PointerSize)
	putPointer(buf, 0)
	if _, err := lvl.sink.Write(buf); err != nil {
		return fmt.Errorf("pbtree: seed index level: %w", err)
	}
	w.levels = append(w.levels, lvl)
	return nil
}

// Add appends the separator key as an entry at level, cascading to
// level+1 when the current block at level is full.
func (w *IndexWriter) Add(level int, key []byte) error {
	for len(w.levels) <= level {
		if err := w.pushLevel(); err != nil {
			return err
		}
	}
	lvl := w.levels[level]

	size := len(key) + 1 + PointerSize
	if size > lvl.remaining {
		if _, err := lvl.sink.Write(padding(w.term, lvl.remaining)); err != nil {
			return fmt.Errorf("pbtree: pad index level %d: %w", level, err)
		}
		if lvl.sink.Size()%int64(w.localBlockSize) != 0 {
			return fmt.Errorf("pbtree: index level %d not block-aligned after pad", level)
		}

		leftmost := make([]byte, PointerSize)
		putPointer(leftmost, lvl.pointers)
		if _, err := lvl.sink.Write(leftmost); err != nil {
			return fmt.Errorf("pbtree: open index block at level %d: %w", level, err)
		}

		if err := w.Add(level+1, key); err != nil {
			return err
		}
		lvl = w.levels[level]
		lvl.remaining = w.localBlockSize - PointerSize
	}

	lvl.pointers++
	ptr := make([]byte, PointerSize)
	putPointer(ptr, lvl.pointers)
	if _, err := lvl.sink.Write(key); err != nil {
		return fmt.Errorf("pbtree: write index key at level %d: %w", level, err)
	}
	if _, err := lvl.sink.Write([]byte{w.term}); err != nil {
		return fmt.Errorf("pbtree: write index terminator at level %d: %w", level, err)
	}
	if _, err := lvl.sink.Write(ptr); err != nil {
		return fmt.Errorf("pbtree: write index pointer at level %d: %w", level, err)
	}
	lvl.remaining -= size
	return nil
}

// Finish writes the two-word header followed by every index level,
// root (highest level) first, with each level's locally-numbered block
// pointers rebased to absolute block numbers. It returns the total number
// of index blocks written, which becomes the header's index_block_count.
func (w *IndexWriter) Finish(output io.WriteSeeker) (uint32, error) {
	if _, err := output.Write(encodeHeader(header{blockSize: uint32(w.blockSize)})); err != nil {
		return 0, fmt.Errorf("pbtree: write header: %w", err)
	}

	var blocksWritten uint32
	for i := len(w.levels) - 1; i >= 0; i-- {
		lvl := w.levels[i]
		if lvl.remaining > 0 {
			if _, err := lvl.sink.Write(padding(w.term, lvl.remaining)); err != nil {
				return 0, fmt.Errorf("pbtree: pad final index block at level %d: %w", i, err)
			}
		}

		levelLength := lvl.sink.Size()
		if levelLength%int64(w.localBlockSize) != 0 {
			return 0, fmt.Errorf("pbtree: index level %d length %d not a multiple of %d", i, levelLength, w.localBlockSize)
		}
		blocksToWrite := uint32(levelLength / int64(w.localBlockSize))

		if _, err := lvl.sink.Seek(0, io.SeekStart); err != nil {
			return 0, fmt.Errorf("pbtree: rewind index level %d: %w", i, err)
		}

		chunk := make([]byte, w.localBlockSize)
		for remaining := levelLength; remaining > 0; remaining -= int64(w.localBlockSize) {
			if _, err := io.ReadFull(lvl.sink, chunk); err != nil {
				return 0, fmt.Errorf("pbtree: read index level %d: %w", i, err)
			}
			tuples, err := parseIndexTuples(chunk, w.term)
			if err != nil {
				return 0, fmt.Errorf("pbtree: parse index level %d: %w", i, err)
			}

			payload := make([]byte, 0, w.localBlockSize)
			for _, t := range tuples {
				rebased := t.pointer + blocksWritten + blocksToWrite
				ptrBuf := make([]byte, PointerSize)
				putPointer(ptrBuf, rebased)
				payload = append(payload, ptrBuf...)
				payload = append(payload, t.key...)
			}
			if len(payload) != w.localBlockSize {
				return 0, fmt.Errorf("pbtree: rebased index block is %d bytes, want %d", len(payload), w.localBlockSize)
			}
			if w.checksums {
				payload = append(payload, blockChecksum(payload)...)
			}
			if _, err := output.Write(payload); err != nil {
				return 0, fmt.Errorf("pbtree: write index block: %w", err)
			}
		}

		blocksWritten += blocksToWrite
		lvl.sink.Close()
	}

	pos, err := output.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("pbtree: locate data region start: %w", err)
	}
	if _, err := output.Seek(PointerSize, io.SeekStart); err != nil {
		return 0, fmt.Errorf("pbtree: seek to patch index_block_count: %w", err)
	}
	countBuf := make([]byte, PointerSize)
	putPointer(countBuf, blocksWritten)
	if _, err := output.Write(countBuf); err != nil {
		return 0, fmt.Errorf("pbtree: patch index_block_count: %w", err)
	}
	if _, err := output.Seek(pos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("pbtree: restore data region start: %w", err)
	}

	return blocksWritten, nil
}
