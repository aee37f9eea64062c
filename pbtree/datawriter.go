package pbtree

import (
	"fmt"
	"io"
)

// Delegate decouples DataWriter from two concerns: how a value is packed to
// bytes, and what happens at a leaf block boundary. The Writer façade implements
// Delegate to feed new-block notifications into an IndexWriter; a bare
// DataWriter (NewBareDataWriter) uses a delegate that only packs values, for
// callers that want a standalone data-segment writer with no index.
type Delegate interface {
	// PackValue encodes v to exactly the writer's configured value width.
	PackValue(v any) ([]byte, error)

	// OnNewBlock is called with the first key of a block that was just
	// opened, immediately after the previous block was flushed.
	OnNewBlock(firstKey []byte) error

	// OnItemExceedsBlockSize is called instead of appending an item whose
	// encoded size leaves no room in any block. Both built-in delegates
	// (Writer and bareDelegate) return ErrItemExceedsBlockSize; the item is
	// dropped either way.
	OnItemExceedsBlockSize(key []byte, value any) error
}

// DataWriter packs sorted (key, value) pairs into fixed-size leaf blocks,
// flushing each full block to sink and notifying delegate on every new
// block. See the pbtree/datawriter.go entry in DESIGN.md for its grounding.
type DataWriter struct {
	sink      io.ReadWriteSeeker
	blockSize int
	capacity  int // blockSize, minus the checksum trailer when enabled
	valueSize int
	term      byte
	checksums bool
	delegate  Delegate

	buf       []byte
	remaining int
	finished  bool
}

// NewDataWriter constructs a DataWriter over sink. checksums reserves
// checksumSize trailer bytes per block for an XXH3-64 digest, trimming
// usable payload the same way valueSize already does.
func NewDataWriter(sink io.ReadWriteSeeker, blockSize, valueSize int, term byte, checksums bool, delegate Delegate) (*DataWriter, error) {
	if valueSize <= 0 {
		return nil, fmt.Errorf("%w: value size must be positive", ErrBadConfiguration)
	}
	capacity := blockSize
	if checksums {
		capacity -= checksumSize
	}
	if capacity <= valueSize+1 {
		return nil, fmt.Errorf("%w: block size %d too small for value size %d", ErrBadConfiguration, blockSize, valueSize)
	}
	return &DataWriter{
		sink:      sink,
		blockSize: blockSize,
		capacity:  capacity,
		valueSize: valueSize,
		term:      term,
		checksums: checksums,
		delegate:  delegate,
		remaining: capacity,
	}, nil
}

// Add appends one (key, value) entry, flushing the current block first if
// the entry does not fit in the remaining space.
func (w *DataWriter) Add(key []byte, value any) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	packed, err := w.delegate.PackValue(value)
	if err != nil {
		return err
	}
	if len(packed) != w.valueSize {
		return fmt.Errorf("%w: packed value is %d bytes, want %d", ErrBadConfiguration, len(packed), w.valueSize)
	}

	size := len(key) + 1 + w.valueSize
	if size > w.capacity {
		return w.delegate.OnItemExceedsBlockSize(key, value)
	}
	if size > w.remaining {
		if err := w.flushBlock(); err != nil {
			return err
		}
		if err := w.delegate.OnNewBlock(key); err != nil {
			return err
		}
	}

	w.buf = append(w.buf, key...)
	w.buf = append(w.buf, w.term)
	w.buf = append(w.buf, packed...)
	w.remaining -= size
	return nil
}

func (w *DataWriter) flushBlock() error {
	w.buf = append(w.buf, padding(w.term, w.remaining)...)
	if w.checksums {
		w.buf = append(w.buf, blockChecksum(w.buf)...)
	}
	if _, err := w.sink.Write(w.buf); err != nil {
		return fmt.Errorf("pbtree: flush data block: %w", err)
	}
	w.buf = w.buf[:0]
	w.remaining = w.capacity
	return nil
}

// Finish pads and flushes a partial trailing block (if any), then rewinds
// sink to the start so SpliceTo can read the sealed data segment back.
func (w *DataWriter) Finish() error {
	if w.finished {
		return nil
	}
	if len(w.buf) > 0 {
		if err := w.flushBlock(); err != nil {
			return err
		}
	}
	if _, err := w.sink.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("pbtree: rewind data sink: %w", err)
	}
	w.finished = true
	return nil
}

// SpliceTo copies the sealed data segment onto dst. Finish must be called
// first.
func (w *DataWriter) SpliceTo(dst io.Writer) (int64, error) {
	return io.Copy(dst, w.sink)
}

func padding(term byte, n int) []byte {
	if n <= 0 {
		return nil
	}
	p := make([]byte, n)
	for i := range p {
		p[i] = term
	}
	return p
}

// bareDelegate is the delegate used by NewBareDataWriter: it packs values
// with a ValuePacker and otherwise ignores block boundaries, for callers
// that want a standalone data-segment writer with no attached index.
type bareDelegate struct {
	packer ValuePacker
}

func (d bareDelegate) PackValue(v any) ([]byte, error) { return d.packer.Pack(v) }
func (d bareDelegate) OnNewBlock(firstKey []byte) error { return nil }
func (d bareDelegate) OnItemExceedsBlockSize(key []byte, value any) error {
	return fmt.Errorf("%w: key %q", ErrItemExceedsBlockSize, key)
}

// NewBareDataWriter returns a DataWriter with no index-building side
// effects, suitable for use as a data-segment writer collaborator (the
// "data-segment" factory named in spec.md §6).
func NewBareDataWriter(sink io.ReadWriteSeeker, blockSize int, packer ValuePacker, term byte, checksums bool) (*DataWriter, error) {
	return NewDataWriter(sink, blockSize, packer.Size(), term, checksums, bareDelegate{packer: packer})
}
