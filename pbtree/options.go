package pbtree

import "log"

// writerConfig collects WriterOption settings before NewWriter validates
// and freezes them.
type writerConfig struct {
	blockSize      int
	term           byte
	packer         ValuePacker
	checksums      bool
	strictOrder    bool
	spillThreshold int64
	logger         *log.Logger

	bloomEnabled       bool
	bloomExpectedItems uint
	bloomFalsePositive float64
}

func defaultWriterConfig() writerConfig {
	packer, _ := NewScalarFormat(64) // bit width 64 always validates
	return writerConfig{
		blockSize:   DefaultBlockSize,
		term:        DefaultTerminator,
		packer:      packer,
		strictOrder: false,
	}
}

// WriterOption configures a Writer at construction time, mirroring the
// teacher's functional-options convention for disk segment managers.
type WriterOption func(*writerConfig)

// WithBlockSize overrides the default block size (DefaultBlockSize).
func WithBlockSize(n int) WriterOption {
	return func(c *writerConfig) { c.blockSize = n }
}

// WithTerminator overrides the default terminator byte (0x00). The caller
// is responsible for ensuring no key contains it.
func WithTerminator(b byte) WriterOption {
	return func(c *writerConfig) { c.term = b }
}

// WithValuePacker installs a non-default ValuePacker, e.g. a RecordFormat
// for dict-style values.
func WithValuePacker(p ValuePacker) WriterOption {
	return func(c *writerConfig) { c.packer = p }
}

// WithChecksums turns on a per-block XXH3-64 checksum trailer. Disabled by
// default so the on-disk layout matches the base format byte-for-byte.
func WithChecksums(enabled bool) WriterOption {
	return func(c *writerConfig) { c.checksums = enabled }
}

// WithStrictOrder makes Add return ErrOutOfOrder immediately on an
// out-of-order key instead of silently producing a file with an incorrect
// index, which is the original's documented (unenforced) caller contract.
func WithStrictOrder(enabled bool) WriterOption {
	return func(c *writerConfig) { c.strictOrder = enabled }
}

// WithSpillThreshold overrides DefaultSpillThreshold for every temporary
// sink the writer allocates.
func WithSpillThreshold(bytes int64) WriterOption {
	return func(c *writerConfig) { c.spillThreshold = bytes }
}

// WithLogger attaches a logger for diagnostic lines: the Writer logs each
// item it drops for exceeding the block size (Add still returns the
// error). Nil disables logging.
func WithLogger(l *log.Logger) WriterOption {
	return func(c *writerConfig) { c.logger = l }
}

// WithBloomFilter attaches a bloom filter sized for expectedItems at the
// given false-positive rate, serialized as a trailer after the data
// region. A Reader opened with WithUseBloomFilter(false) still locates the
// trailer to bound the data region but never consults the filter.
func WithBloomFilter(expectedItems uint, falsePositiveRate float64) WriterOption {
	return func(c *writerConfig) {
		c.bloomEnabled = true
		c.bloomExpectedItems = expectedItems
		c.bloomFalsePositive = falsePositiveRate
	}
}

// readerConfig collects ReaderOption settings before NewReader validates
// and freezes them.
type readerConfig struct {
	term            byte
	packer          ValuePacker
	checksums       bool
	verifyChecksums bool
	useBloomFilter  bool
	logger          *log.Logger
}

func defaultReaderConfig() readerConfig {
	packer, _ := NewScalarFormat(64) // bit width 64 always validates
	return readerConfig{
		term:           DefaultTerminator,
		packer:         packer,
		useBloomFilter: true,
	}
}

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*readerConfig)

// WithReaderTerminator must match the terminator the file was written with.
func WithReaderTerminator(b byte) ReaderOption {
	return func(c *readerConfig) { c.term = b }
}

// WithReaderValuePacker must match the ValuePacker the file was written
// with.
func WithReaderValuePacker(p ValuePacker) ReaderOption {
	return func(c *readerConfig) { c.packer = p }
}

// WithReaderChecksums declares that the file was built WithChecksums(true),
// so every block carries a trailing checksumSize digest that must be
// stripped before parsing. It does not by itself verify anything; pair it
// with WithVerifyChecksums to also check the digest on every read.
func WithReaderChecksums(enabled bool) ReaderOption {
	return func(c *readerConfig) { c.checksums = enabled }
}

// WithVerifyChecksums enables checksum verification on every block read,
// returning ErrChecksumMismatch on the first failure. Has no effect unless
// paired with WithReaderChecksums(true).
func WithVerifyChecksums(enabled bool) ReaderOption {
	return func(c *readerConfig) { c.verifyChecksums = enabled }
}

// WithUseBloomFilter controls whether Get consults a trailing bloom filter,
// when present, before descending the index. Enabled by default.
func WithUseBloomFilter(enabled bool) ReaderOption {
	return func(c *readerConfig) { c.useBloomFilter = enabled }
}

// WithReaderLogger stores a logger in the reader's configuration. No Reader
// method, Diagnose included, writes to it.
func WithReaderLogger(l *log.Logger) ReaderOption {
	return func(c *readerConfig) { c.logger = l }
}
