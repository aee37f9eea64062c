package urlindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func items(keys ...string) []Item {
	out := make([]Item, len(keys))
	for i, k := range keys {
		out[i] = Item{Key: []byte(k)}
	}
	return out
}

// TestMapBlockAcrossPartitions ports lib/test_map.py's fixture: two
// partitions, each a sequence of blocks, and the five (partition, prefix)
// separators map_block is expected to emit across them.
func TestMapBlockAcrossPartitions(t *testing.T) {
	partitions := [][][]Item{
		{ // partition 0
			items("key01", "key02", "key03a", "key03ac"),
			items("key03bc", "key06", "key07", "key08z"),
			items("key08zafz", "key10", "key11", "key12"),
		},
		{ // partition 1
			items("key13feee", "key14", "key16", "key16a"),
			items("key16b", "key18", "key19", "key20"),
		},
	}

	type separator struct {
		partition int
		prefix    string
	}
	want := []separator{
		{0, "key01"},
		{0, "key03b"},
		{0, "key08za"},
		{1, "key13feee"},
		{1, "key16b"},
	}

	var got []separator
	for partitionNumber, blocks := range partitions {
		scratch := &PartitionScratch{PartitionNumber: partitionNumber}
		for _, block := range blocks {
			partition, prefix, err := MapBlock(block, scratch)
			require.NoError(t, err)
			got = append(got, separator{partition, string(prefix)})
		}
	}

	require.Equal(t, want, got)
}

func TestMapBlockRejectsKeyContainingTerminator(t *testing.T) {
	scratch := &PartitionScratch{}
	_, _, err := MapBlock(items("a\x00b"), scratch)
	require.Error(t, err)
}

func TestMapBlockRejectsEmptyBlock(t *testing.T) {
	scratch := &PartitionScratch{}
	_, _, err := MapBlock(nil, scratch)
	require.Error(t, err)
}
