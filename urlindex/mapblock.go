package urlindex

import (
	"bytes"
	"fmt"

	"github.com/archivekit/pbtree/pbtree"
)

// Item is one key surfaced from a partition's data-segment block stream,
// the unit MapBlock consumes. Only the key matters to map_block's job of
// picking the separator for the next level up; values stay in the data
// segment.
type Item struct {
	Key []byte
}

// PartitionScratch carries LastKey across successive MapBlock calls within
// one partition's block stream, the Go rendering of test_map.py's
// params.last_key.
type PartitionScratch struct {
	PartitionNumber int
	LastKey         []byte
}

// MapBlock computes the separator for a just-read block: the first block
// of a partition contributes its first key verbatim; every later block
// contributes the significant prefix between scratch.LastKey and its first
// key, exactly as PBTreeWriter.on_new_block does within a single file. It
// also advances scratch.LastKey to the block's last non-pad key so the
// next call has the right predecessor.
func MapBlock(block []Item, scratch *PartitionScratch) (partition int, prefix []byte, err error) {
	if len(block) == 0 {
		return 0, nil, fmt.Errorf("urlindex: empty block")
	}
	firstKey := block[0].Key
	if bytes.IndexByte(firstKey, 0) != -1 {
		return 0, nil, fmt.Errorf("urlindex: key %q contains the terminator byte", firstKey)
	}

	if scratch.LastKey == nil {
		prefix = append([]byte(nil), firstKey...)
	} else {
		prefix = pbtree.Significant(scratch.LastKey, firstKey)
	}

	var lastReal []byte
	for _, item := range block[1:] {
		if len(item.Key) > 0 && item.Key[0] == 0 {
			continue // pad territory, not a real key
		}
		lastReal = item.Key
	}
	if lastReal != nil {
		scratch.LastKey = append([]byte(nil), lastReal...)
	} else {
		scratch.LastKey = append([]byte(nil), firstKey...)
	}

	return scratch.PartitionNumber, prefix, nil
}
