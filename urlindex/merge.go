package urlindex

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/archivekit/pbtree/pbtree"
)

// Partition is one already-built pbtree file to fold into a merge, paired
// with its size (pbtree.Reader needs both to locate its header and any
// bloom trailer).
type Partition struct {
	Data io.ReaderAt
	Size int64
}

// mergeEntry carries one partition's next item through the fan-in channel,
// tagged with its source index so the drain loop can pull the next value
// from the same partition once this one is consumed.
type mergeEntry struct {
	partition int
	item      pbtree.Item
}

// MergePartitions fans the per-partition leaf streams of N already-built
// pbtree files into a single merged file written through dst. Each
// partition is read by its own goroutine under an errgroup; a single
// drain loop performs a k-way merge by always advancing the partition
// whose next key currently sorts lowest, so the keys handed to dst's
// Writer arrive in the ascending order Writer.Add requires.
//
// It supplements spec.md: the URL-index adaptor builds one pbtree per
// partition during a map phase and then needs exactly this reduce step to
// produce one queryable index.
func MergePartitions(ctx context.Context, partitions []Partition, dst io.WriteSeeker, opts ...pbtree.WriterOption) error {
	if len(partitions) == 0 {
		return fmt.Errorf("urlindex: MergePartitions requires at least one partition")
	}

	w, err := pbtree.NewWriter(opts...)
	if err != nil {
		return err
	}

	readers := make([]*pbtree.Reader, len(partitions))
	for i, p := range partitions {
		r, err := pbtree.NewReader(p.Data, p.Size)
		if err != nil {
			return fmt.Errorf("urlindex: open partition %d: %w", i, err)
		}
		readers[i] = r
	}

	channels := make([]chan mergeEntry, len(readers))
	for i := range channels {
		channels[i] = make(chan mergeEntry, 64)
	}

	group, ctx := errgroup.WithContext(ctx)
	for i, r := range readers {
		i, r := i, r
		group.Go(func() error {
			defer close(channels[i])
			for item, err := range r.Items(nil) {
				if err != nil {
					return fmt.Errorf("urlindex: read partition %d: %w", i, err)
				}
				select {
				case channels[i] <- mergeEntry{partition: i, item: item}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	group.Go(func() error {
		return drainInOrder(ctx, channels, w)
	})

	if err := group.Wait(); err != nil {
		return err
	}

	return w.Commit(dst)
}

// drainInOrder repeatedly picks the lowest pending key across all open
// channels and adds it to w, re-filling that channel's slot before the
// next comparison. Closed channels drop out once drained.
func drainInOrder(ctx context.Context, channels []chan mergeEntry, w *pbtree.Writer) error {
	pending := make([]*mergeEntry, len(channels))
	open := make([]bool, len(channels))
	for i := range channels {
		open[i] = true
	}

	fill := func(i int) error {
		if !open[i] {
			return nil
		}
		select {
		case e, ok := <-channels[i]:
			if !ok {
				open[i] = false
				pending[i] = nil
				return nil
			}
			pending[i] = &e
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for i := range channels {
		if err := fill(i); err != nil {
			return err
		}
	}

	for {
		lowest := -1
		for i, e := range pending {
			if e == nil {
				continue
			}
			if lowest == -1 || bytes.Compare(e.item.Key, pending[lowest].item.Key) < 0 {
				lowest = i
			}
		}
		if lowest == -1 {
			return nil
		}
		if err := w.Add(pending[lowest].item.Key, pending[lowest].item.Value); err != nil {
			return fmt.Errorf("urlindex: merge add %q: %w", pending[lowest].item.Key, err)
		}
		if err := fill(lowest); err != nil {
			return err
		}
	}
}
