package pbtree

import (
	"bytes"
	"fmt"
	"io"
	"iter"

	"github.com/bits-and-blooms/bloom/v3"
)

// Writer is the single-pass façade (spec §4.3): it owns a DataWriter over a
// temporary sink and an IndexWriter writing directly to the eventual output
// sink, and implements Delegate itself so DataWriter's new-block
// notifications become IndexWriter.Add calls at level 0.
type Writer struct {
	cfg writerConfig

	dataSink    *SpillWriter
	dataWriter  *DataWriter
	indexWriter *IndexWriter
	bloomFilter *bloom.BloomFilter

	lastKey    []byte
	hasLastKey bool
	closed     bool
}

// NewWriter constructs a Writer. With no options it writes uint64 scalar
// values at DefaultBlockSize.
func NewWriter(opts ...WriterOption) (*Writer, error) {
	cfg := defaultWriterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.packer == nil {
		return nil, fmt.Errorf("%w: no value packer configured", ErrBadConfiguration)
	}
	if cfg.blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be positive", ErrBadConfiguration)
	}

	w := &Writer{cfg: cfg}
	w.dataSink = NewSpillWriter(cfg.spillThreshold)

	dw, err := NewDataWriter(w.dataSink, cfg.blockSize, cfg.packer.Size(), cfg.term, cfg.checksums, w)
	if err != nil {
		return nil, err
	}
	w.dataWriter = dw

	iw, err := NewIndexWriter(cfg.term, cfg.blockSize, cfg.checksums, cfg.spillThreshold)
	if err != nil {
		return nil, err
	}
	w.indexWriter = iw

	if cfg.bloomEnabled {
		w.bloomFilter = bloom.NewWithEstimates(cfg.bloomExpectedItems, cfg.bloomFalsePositive)
	}
	return w, nil
}

// PackValue implements Delegate by deferring to the configured ValuePacker.
func (w *Writer) PackValue(v any) ([]byte, error) { return w.cfg.packer.Pack(v) }

// OnNewBlock implements Delegate: it computes the significant prefix
// between the last key of the block just closed and the first key of the
// new one, and feeds it to the index at level 0.
func (w *Writer) OnNewBlock(firstKeyOfNewBlock []byte) error {
	prefix := Significant(w.lastKey, firstKeyOfNewBlock)
	return w.indexWriter.Add(0, prefix)
}

// OnItemExceedsBlockSize implements Delegate. The item is always dropped;
// whether that is fatal is the caller's decision based on the returned
// error.
func (w *Writer) OnItemExceedsBlockSize(key []byte, value any) error {
	if w.cfg.logger != nil {
		w.cfg.logger.Printf("pbtree: dropping item exceeding block size, key=%q", key)
	}
	return fmt.Errorf("%w: key %q", ErrItemExceedsBlockSize, key)
}

// Add appends one (key, value) pair. Keys must be added in strictly
// ascending order; this is unchecked unless WithStrictOrder(true) was set.
func (w *Writer) Add(key []byte, value any) error {
	if w.closed {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if w.cfg.strictOrder && w.hasLastKey && bytes.Compare(key, w.lastKey) <= 0 {
		return fmt.Errorf("%w: key %q does not follow %q", ErrOutOfOrder, key, w.lastKey)
	}

	if err := w.dataWriter.Add(key, value); err != nil {
		return err
	}
	if w.bloomFilter != nil {
		w.bloomFilter.Add(key)
	}
	w.lastKey = append(w.lastKey[:0], key...)
	w.hasLastKey = true
	return nil
}

// Commit finalizes the index, seals and splices the data segment, appends
// the optional bloom trailer, and releases every temporary sink. output
// must support Seek so the index header can be patched in place.
func (w *Writer) Commit(output io.WriteSeeker) error {
	if w.closed {
		return ErrClosed
	}
	defer w.dataSink.Close()

	if _, err := w.indexWriter.Finish(output); err != nil {
		return err
	}
	if err := w.dataWriter.Finish(); err != nil {
		return err
	}
	if _, err := w.dataWriter.SpliceTo(output); err != nil {
		return fmt.Errorf("pbtree: splice data segment: %w", err)
	}
	if w.bloomFilter != nil {
		if err := writeBloomTrailer(output, w.bloomFilter); err != nil {
			return err
		}
	}

	w.closed = true
	return nil
}

// Item is one (key, value) pair yielded by Reader.Items.
type Item struct {
	Key   []byte
	Value any
}

// Reader parses a PBTree file's header and serves random-access lookups,
// prefix scans, and full iteration over an immutable byte range (spec
// §4.5). data is typically a memory-mapped file; Reader never mutates it.
type Reader struct {
	cfg readerConfig

	data            io.ReaderAt
	size            int64
	blockSize       int
	indexBlockCount uint32
	dataBlockCount  uint32
	bloomFilter     *bloom.BloomFilter
}

// NewReader parses the header and any bloom trailer from data, a byte range
// of the given size. The trailer is always excluded from the data region;
// the filter itself is kept only when WithUseBloomFilter is enabled.
func NewReader(data io.ReaderAt, size int64, opts ...ReaderOption) (*Reader, error) {
	cfg := defaultReaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	hdrBuf := make([]byte, HeaderSize)
	if _, err := data.ReadAt(hdrBuf, 0); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrCorruptFile, err)
	}
	h, err := decodeHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		cfg:             cfg,
		data:            data,
		size:            size,
		blockSize:       int(h.blockSize),
		indexBlockCount: h.indexBlockCount,
	}

	dataBytes := size - HeaderSize - int64(h.indexBlockCount)*int64(h.blockSize)
	filter, trailerSize, ok, err := readBloomTrailer(data, size)
	if err != nil {
		return nil, err
	}
	if ok {
		dataBytes -= trailerSize
		if cfg.useBloomFilter {
			r.bloomFilter = filter
		}
	}
	if dataBytes < 0 || dataBytes%int64(h.blockSize) != 0 {
		return nil, fmt.Errorf("%w: data region size %d not a multiple of block size %d", ErrCorruptFile, dataBytes, h.blockSize)
	}
	r.dataBlockCount = uint32(dataBytes / int64(h.blockSize))

	return r, nil
}

func (r *Reader) blockOffset(n uint32) int64 {
	return HeaderSize + int64(n)*int64(r.blockSize)
}

func (r *Reader) totalBlocks() uint32 {
	return r.indexBlockCount + r.dataBlockCount
}

func (r *Reader) readBlock(n uint32) ([]byte, error) {
	if n >= r.totalBlocks() {
		return nil, fmt.Errorf("%w: block %d beyond file end (%d blocks total)", ErrCorruptFile, n, r.totalBlocks())
	}
	buf := make([]byte, r.blockSize)
	nRead, err := r.data.ReadAt(buf, r.blockOffset(n))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: reading block %d: %v", ErrCorruptFile, n, err)
	}
	if nRead != r.blockSize {
		return nil, fmt.Errorf("%w: short read on block %d (%d of %d bytes)", ErrCorruptFile, n, nRead, r.blockSize)
	}
	if r.cfg.checksums {
		if r.cfg.verifyChecksums && !verifyBlockChecksum(buf) {
			return nil, fmt.Errorf("%w: block %d", ErrChecksumMismatch, n)
		}
		buf = buf[:len(buf)-checksumSize]
	}
	return buf, nil
}

// FindStartingDataBlock descends the index for key and returns the data
// block number where key either appears or would be inserted.
func (r *Reader) FindStartingDataBlock(key []byte) (uint32, error) {
	if r.indexBlockCount == 0 {
		return 0, nil
	}
	blockNum := uint32(0)
	for {
		block, err := r.readBlock(blockNum)
		if err != nil {
			return 0, err
		}
		next, err := findChildPointer(block, r.cfg.term, key)
		if err != nil {
			return 0, fmt.Errorf("pbtree: descending from block %d: %w", blockNum, err)
		}
		blockNum = next
		if blockNum >= r.indexBlockCount {
			return blockNum, nil
		}
	}
}

// ExpectedLocation returns the byte offset of the first stored key >= key.
// An empty key returns the byte offset of the first data block.
func (r *Reader) ExpectedLocation(key []byte) (int64, error) {
	if len(key) == 0 {
		return r.blockOffset(r.indexBlockCount), nil
	}
	blockNum, err := r.FindStartingDataBlock(key)
	if err != nil {
		return 0, err
	}
	block, err := r.readBlock(blockNum)
	if err != nil {
		return 0, err
	}
	for _, e := range parseDataBlock(block, r.cfg.packer.Size(), r.cfg.term) {
		if bytes.Compare(e.key, key) >= 0 {
			return r.blockOffset(blockNum) + int64(e.offset), nil
		}
	}
	return r.blockOffset(blockNum + 1), nil
}

// Get performs an exact-match lookup. found is false, with no error, when
// key is absent.
func (r *Reader) Get(key []byte) (value any, found bool, err error) {
	if r.bloomFilter != nil && r.cfg.useBloomFilter && !r.bloomFilter.Test(key) {
		return nil, false, nil
	}
	blockNum, err := r.FindStartingDataBlock(key)
	if err != nil {
		return nil, false, err
	}
	block, err := r.readBlock(blockNum)
	if err != nil {
		return nil, false, err
	}
	for _, e := range parseDataBlock(block, r.cfg.packer.Size(), r.cfg.term) {
		cmp := bytes.Compare(e.key, key)
		if cmp == 0 {
			v, err := r.cfg.packer.Unpack(e.value)
			return v, true, err
		}
		if cmp > 0 {
			break
		}
	}
	return nil, false, nil
}

// Items iterates (key, value) pairs whose key starts with prefix, in
// on-disk (ascending) order, across as many contiguous leaves as needed.
// An empty prefix yields every entry in the file.
func (r *Reader) Items(prefix []byte) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		blockNum, err := r.FindStartingDataBlock(prefix)
		if err != nil {
			yield(Item{}, err)
			return
		}

		started := false
		for blockNum < r.totalBlocks() {
			block, err := r.readBlock(blockNum)
			if err != nil {
				yield(Item{}, err)
				return
			}
			entries := parseDataBlock(block, r.cfg.packer.Size(), r.cfg.term)
			for _, e := range entries {
				if !bytes.HasPrefix(e.key, prefix) {
					if started {
						return
					}
					continue
				}
				started = true
				v, err := r.cfg.packer.Unpack(e.value)
				if !yield(Item{Key: e.key, Value: v}, err) {
					return
				}
				if err != nil {
					return
				}
			}
			blockNum++
		}
	}
}

// Keys projects Items to just the keys.
func (r *Reader) Keys(prefix []byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for item, err := range r.Items(prefix) {
			if !yield(item.Key, err) {
				return
			}
		}
	}
}

// Values projects Items to just the values.
func (r *Reader) Values(prefix []byte) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for item, err := range r.Items(prefix) {
			if !yield(item.Value, err) {
				return
			}
		}
	}
}

// CountLevels descends via the first (leftmost) child pointer of each
// index block until it reaches the data region, returning the number of
// index levels traversed.
func (r *Reader) CountLevels() (int, error) {
	if r.indexBlockCount == 0 {
		return 0, nil
	}
	levels := 0
	blockNum := uint32(0)
	for blockNum < r.indexBlockCount {
		block, err := r.readBlock(blockNum)
		if err != nil {
			return 0, err
		}
		tuples, err := parseIndexTuples(block, r.cfg.term)
		if err != nil {
			return 0, err
		}
		if len(tuples) == 0 {
			return 0, fmt.Errorf("%w: empty index block %d", ErrCorruptFile, blockNum)
		}
		blockNum = tuples[0].pointer
		levels++
	}
	return levels, nil
}
