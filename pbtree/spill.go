package pbtree

import (
	"fmt"
	"io"
	"os"
)

// DefaultSpillThreshold is the number of bytes a SpillWriter buffers in
// memory before switching to a temp file, mirroring the original's
// SpooledTemporaryFile(max_size=20*MB).
const DefaultSpillThreshold = 20 * 1024 * 1024

// SpillWriter is an io.ReadWriteSeeker that buffers writes in memory below
// a threshold and transparently spills to a temp file past it. It is the Go
// rendering of Python's SpooledTemporaryFile, used by IndexWriter to hold
// each index level and by PBTreeWriter to hold the data segment before the
// final concatenation pass.
//
// This plays the same role the teacher's segment rotation
// (segmentmanager/disk.go) plays for the write-ahead log: a write
// destination that transparently manages its own backing storage, just
// rotating by size-threshold-to-disk instead of size-threshold-to-new-file.
type SpillWriter struct {
	threshold int64
	buf       []byte
	pos       int64
	file      *os.File
	spilled   bool
}

// NewSpillWriter returns a SpillWriter with the given in-memory threshold.
// A threshold of 0 uses DefaultSpillThreshold.
func NewSpillWriter(threshold int64) *SpillWriter {
	if threshold == 0 {
		threshold = DefaultSpillThreshold
	}
	return &SpillWriter{threshold: threshold}
}

func (s *SpillWriter) spillToDisk() error {
	f, err := os.CreateTemp("", "pbtree-spill-*")
	if err != nil {
		return fmt.Errorf("pbtree: spill to disk: %w", err)
	}
	if _, err := f.Write(s.buf); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("pbtree: spill to disk: %w", err)
	}
	if _, err := f.Seek(s.pos, io.SeekStart); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("pbtree: spill to disk: %w", err)
	}
	s.file = f
	s.buf = nil
	s.spilled = true
	return nil
}

// Write appends p at the current position, growing the buffer or, once the
// threshold is exceeded, the backing temp file.
func (s *SpillWriter) Write(p []byte) (int, error) {
	if s.spilled {
		n, err := s.file.Write(p)
		s.pos += int64(n)
		return n, err
	}

	end := s.pos + int64(len(p))
	if end > s.threshold {
		if err := s.spillToDisk(); err != nil {
			return 0, err
		}
		return s.Write(p)
	}

	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

// Read reads from the current position, advancing it.
func (s *SpillWriter) Read(p []byte) (int, error) {
	if s.spilled {
		n, err := s.file.Read(p)
		s.pos += int64(n)
		return n, err
	}
	if s.pos >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += int64(n)
	return n, nil
}

// Seek repositions the cursor, matching io.Seeker semantics.
func (s *SpillWriter) Seek(offset int64, whence int) (int64, error) {
	if s.spilled {
		n, err := s.file.Seek(offset, whence)
		if err == nil {
			s.pos = n
		}
		return n, err
	}

	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = s.pos + offset
	case io.SeekEnd:
		newPos = int64(len(s.buf)) + offset
	default:
		return 0, fmt.Errorf("pbtree: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("pbtree: negative seek position %d", newPos)
	}
	s.pos = newPos
	return newPos, nil
}

// Size returns the total number of bytes written so far.
func (s *SpillWriter) Size() int64 {
	if s.spilled {
		info, err := s.file.Stat()
		if err != nil {
			return 0
		}
		return info.Size()
	}
	return int64(len(s.buf))
}

// Close releases the backing temp file, if any. It is safe to call on a
// SpillWriter that never spilled.
func (s *SpillWriter) Close() error {
	if s.file != nil {
		name := s.file.Name()
		err := s.file.Close()
		os.Remove(name)
		return err
	}
	return nil
}
