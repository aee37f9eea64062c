package pbtree

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// DiagnosisReport summarizes one Diagnose walk of a file's index region.
type DiagnosisReport struct {
	Levels             int
	IndexBlocksVisited int
	DataBlocksVisited  int
	OutOfRangePointers []uint32
	BloomTrailerBytes  int64
}

// Diagnose walks every index block reachable from the root, tracked with a
// bitset sized to index_block_count (grounded in the teacher's bloom
// filter dependency, github.com/bits-and-blooms/bitset, already present
// transitively), reporting level count, blocks visited, and any pointer
// that resolves outside [0, total_blocks). This generalizes the original's
// count_levels diagnostic from a single leftmost-pointer descent into a
// full-tree fsck-style check implied by §7's "corrupt file on read" kind.
func (r *Reader) Diagnose() (DiagnosisReport, error) {
	var report DiagnosisReport
	if r.bloomFilter != nil {
		size, err := bloomTrailerSize(r.bloomFilter)
		if err != nil {
			return report, fmt.Errorf("pbtree: diagnose bloom trailer: %w", err)
		}
		report.BloomTrailerBytes = size
	}
	if r.indexBlockCount == 0 {
		return report, nil
	}

	type queued struct {
		block uint32
		depth int
	}
	visited := bitset.New(uint(r.indexBlockCount))
	dataVisited := bitset.New(uint(r.dataBlockCount))
	queue := []queued{{block: 0, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.block >= r.indexBlockCount {
			if cur.block >= r.totalBlocks() {
				report.OutOfRangePointers = append(report.OutOfRangePointers, cur.block)
				continue
			}
			idx := uint(cur.block - r.indexBlockCount)
			if !dataVisited.Test(idx) {
				dataVisited.Set(idx)
				report.DataBlocksVisited++
			}
			if cur.depth > report.Levels {
				report.Levels = cur.depth
			}
			continue
		}

		if visited.Test(uint(cur.block)) {
			continue
		}
		visited.Set(uint(cur.block))
		report.IndexBlocksVisited++

		block, err := r.readBlock(cur.block)
		if err != nil {
			return report, fmt.Errorf("pbtree: diagnose block %d: %w", cur.block, err)
		}
		tuples, err := parseIndexTuples(block, r.cfg.term)
		if err != nil {
			return report, fmt.Errorf("pbtree: diagnose block %d: %w", cur.block, err)
		}
		for _, t := range tuples {
			queue = append(queue, queued{block: t.pointer, depth: cur.depth + 1})
		}
	}

	return report, nil
}
