package urlindex

import (
	"fmt"
	"io"

	"github.com/archivekit/pbtree/pbtree"
)

// BlockSize is the URL-index adaptor's block size, 64 KiB, distinct from
// pbtree.DefaultBlockSize (1 MiB): the format stores block_size in its own
// header, so files built at either size are self-describing.
const BlockSize = 1 << 16

// Format names the three writer factories a content-type registry resolves
// (no reader factories are registered), mirroring adaptor.py's write_mimetype-decorated output_stream
// functions (one for the full index, one for a bare data segment, one for
// a bare index segment).
type Format string

const (
	FormatIndex        Format = "application/vnd.archivekit.pbtree.index"
	FormatDataSegment  Format = "application/vnd.archivekit.pbtree.data-segment"
	FormatIndexSegment Format = "application/vnd.archivekit.pbtree.index-segment"
)

// Partitioner is the content-type registry collaborator from spec.md §6: it
// resolves a Format to the matching pbtree writer constructor, sharing one
// block size, terminator, and value packer across all three.
type Partitioner struct {
	BlockSize  int
	Terminator byte
	Packer     pbtree.ValuePacker
}

// NewURLIndexPartitioner returns a Partitioner configured for the
// RecordFormat value used by the URL-index adaptor (segment id, file date,
// partition, offset), at the adaptor's 64 KiB block size.
func NewURLIndexPartitioner() (Partitioner, error) {
	packer, err := pbtree.NewRecordFormat([]pbtree.FieldSpec{
		{Name: "arcSourceSegmentId", BitWidth: 64},
		{Name: "arcFileDate", BitWidth: 64},
		{Name: "arcFileParition", BitWidth: 32},
		{Name: "arcFileOffset", BitWidth: 64},
	})
	if err != nil {
		return Partitioner{}, err
	}
	return Partitioner{BlockSize: BlockSize, Terminator: pbtree.DefaultTerminator, Packer: packer}, nil
}

// New dispatches to the writer constructor for format, the Go rendering of
// the content-type registry's write_mimetype lookup.
func (p Partitioner) New(format Format, sink io.ReadWriteSeeker) (any, error) {
	switch format {
	case FormatIndex:
		return p.NewTreeWriter()
	case FormatDataSegment:
		return p.NewDataSegmentWriter(sink)
	case FormatIndexSegment:
		return p.NewIndexSegmentWriter()
	default:
		return nil, fmt.Errorf("urlindex: unknown format %q", format)
	}
}

// NewTreeWriter returns the §4.3 façade writer for the full index format.
func (p Partitioner) NewTreeWriter() (*pbtree.Writer, error) {
	return pbtree.NewWriter(
		pbtree.WithBlockSize(p.BlockSize),
		pbtree.WithTerminator(p.Terminator),
		pbtree.WithValuePacker(p.Packer),
	)
}

// NewDataSegmentWriter returns a bare §4.2 DataWriter for reducer output:
// a data segment with no attached index.
func (p Partitioner) NewDataSegmentWriter(sink io.ReadWriteSeeker) (*pbtree.DataWriter, error) {
	return pbtree.NewBareDataWriter(sink, p.BlockSize, p.Packer, p.Terminator, false)
}

// NewIndexSegmentWriter returns a bare §4.4 IndexWriter for producing an
// index region independent of any data segment.
func (p Partitioner) NewIndexSegmentWriter() (*pbtree.IndexWriter, error) {
	return pbtree.NewIndexWriter(p.Terminator, p.BlockSize, false, 0)
}
