package pbtree

import "errors"

// Sentinel errors returned by writer and reader operations.
var (
	// ErrBadConfiguration is returned when a writer is constructed with an
	// invalid block size, value size or value packer, and when a value cannot
	// be packed by the configured ValuePacker.
	ErrBadConfiguration = errors.New("pbtree: bad configuration")

	// ErrEmptyKey is returned when Add is called with a zero-length key. The
	// original implementation allowed this and relied on undefined leaf-scan
	// behavior; this port rejects it outright.
	ErrEmptyKey = errors.New("pbtree: key must not be empty")

	// ErrItemExceedsBlockSize is returned when a key/value pair cannot fit in
	// a single block, even an otherwise-empty one.
	ErrItemExceedsBlockSize = errors.New("pbtree: item exceeds block size")

	// ErrOutOfOrder is returned by WithStrictOrder writers when Add is called
	// with a key that does not strictly follow the previous key.
	ErrOutOfOrder = errors.New("pbtree: keys must be added in strictly ascending order")

	// ErrCorruptFile is returned when the reader encounters a header or
	// pointer that cannot describe a well-formed file.
	ErrCorruptFile = errors.New("pbtree: corrupt file")

	// ErrChecksumMismatch is returned when a block's stored checksum does not
	// match its contents.
	ErrChecksumMismatch = errors.New("pbtree: block checksum mismatch")

	// ErrClosed is returned by Writer.Add and Writer.Commit once Commit has
	// completed.
	ErrClosed = errors.New("pbtree: already closed")
)
