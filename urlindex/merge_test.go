package urlindex

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archivekit/pbtree/pbtree"
)

func buildPartition(t *testing.T, entries map[string]uint64) (*bytes.Reader, int64) {
	t.Helper()
	w, err := pbtree.NewWriter(pbtree.WithBlockSize(64))
	require.NoError(t, err)

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	for _, k := range keys {
		require.NoError(t, w.Add([]byte(k), entries[k]))
	}

	out := pbtree.NewSpillWriter(0)
	defer out.Close()
	require.NoError(t, w.Commit(out))
	_, err = out.Seek(0, io.SeekStart)
	require.NoError(t, err)
	data, err := io.ReadAll(out)
	require.NoError(t, err)
	return bytes.NewReader(data), int64(len(data))
}

func TestMergePartitionsInterleaves(t *testing.T) {
	p0data, p0size := buildPartition(t, map[string]uint64{"a": 1, "c": 3, "e": 5})
	p1data, p1size := buildPartition(t, map[string]uint64{"b": 2, "d": 4, "f": 6})

	out := pbtree.NewSpillWriter(0)
	defer out.Close()

	err := MergePartitions(context.Background(), []Partition{
		{Data: p0data, Size: p0size},
		{Data: p1data, Size: p1size},
	}, out, pbtree.WithBlockSize(64))
	require.NoError(t, err)

	_, err = out.Seek(0, io.SeekStart)
	require.NoError(t, err)
	merged, err := io.ReadAll(out)
	require.NoError(t, err)

	r, err := pbtree.NewReader(bytes.NewReader(merged), int64(len(merged)))
	require.NoError(t, err)

	var gotKeys []string
	var gotValues []uint64
	for item, err := range r.Items(nil) {
		require.NoError(t, err)
		gotKeys = append(gotKeys, string(item.Key))
		gotValues = append(gotValues, item.Value.(uint64))
	}

	require.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, gotKeys)
	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, gotValues)
}

func TestMergePartitionsRequiresAtLeastOne(t *testing.T) {
	out := pbtree.NewSpillWriter(0)
	defer out.Close()
	err := MergePartitions(context.Background(), nil, out)
	require.Error(t, err)
}
