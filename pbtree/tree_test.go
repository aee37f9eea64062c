package pbtree

import (
	"bytes"
	"io"
	"sort"
	"testing"
)

type kv struct {
	key   string
	value uint64
}

func buildAndCommit(t *testing.T, entries []kv, opts ...WriterOption) []byte {
	t.Helper()
	w, err := NewWriter(opts...)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if err := w.Add([]byte(e.key), e.value); err != nil {
			t.Fatalf("Add(%q): %v", e.key, err)
		}
	}
	out := NewSpillWriter(0)
	defer out.Close()
	if err := w.Commit(out); err != nil {
		t.Fatal(err)
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func sortedEntries() []kv {
	entries := []kv{
		{"a", 1}, {"ab", 2}, {"abc", 3}, {"b", 4},
		{"ba", 5}, {"bac", 6}, {"c", 7}, {"ca", 8},
		{"http://a.example.com/", 9}, {"http://b.example.com/", 10},
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return entries
}

func TestWriterReaderRoundTrip(t *testing.T) {
	entries := sortedEntries()
	data := buildAndCommit(t, entries, WithBlockSize(64))

	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	var got []kv
	for item, err := range r.Items(nil) {
		if err != nil {
			t.Fatal(err)
		}
		v, ok := item.Value.(uint64)
		if !ok {
			t.Fatalf("value %v is not a uint64", item.Value)
		}
		got = append(got, kv{key: string(item.Key), value: v})
	}

	if len(got) != len(entries) {
		t.Fatalf("got %d items, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("item %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestReaderPrefixCompleteness(t *testing.T) {
	entries := sortedEntries()
	data := buildAndCommit(t, entries, WithBlockSize(64))
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	var want []kv
	for _, e := range entries {
		if len(e.key) >= 1 && e.key[0] == 'b' {
			want = append(want, e)
		}
	}

	var got []kv
	for item, err := range r.Items([]byte("b")) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, kv{key: string(item.Key), value: item.Value.(uint64)})
	}
	if len(got) != len(want) {
		t.Fatalf("Items(\"b\") returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReaderGet(t *testing.T) {
	entries := sortedEntries()
	data := buildAndCommit(t, entries, WithBlockSize(64))
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		v, found, err := r.Get([]byte(e.key))
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatalf("Get(%q) not found", e.key)
		}
		if v.(uint64) != e.value {
			t.Fatalf("Get(%q) = %v, want %v", e.key, v, e.value)
		}
	}

	if _, found, err := r.Get([]byte("zzz")); err != nil || found {
		t.Fatalf("Get(missing) = (_, %v, %v), want (_, false, nil)", found, err)
	}
}

func TestReaderLocality(t *testing.T) {
	entries := sortedEntries()
	data := buildAndCommit(t, entries, WithBlockSize(64))
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		block, err := r.FindStartingDataBlock([]byte(e.key))
		if err != nil {
			t.Fatal(err)
		}
		if block < r.indexBlockCount || block >= r.totalBlocks() {
			t.Fatalf("FindStartingDataBlock(%q) = %d, not in data region [%d, %d)", e.key, block, r.indexBlockCount, r.totalBlocks())
		}
	}
}

func TestExpectedLocationEmptyKey(t *testing.T) {
	entries := sortedEntries()
	data := buildAndCommit(t, entries, WithBlockSize(64))
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	loc, err := r.ExpectedLocation(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := r.blockOffset(r.indexBlockCount)
	if loc != want {
		t.Fatalf("ExpectedLocation(\"\") = %d, want %d", loc, want)
	}
}

func TestSizeLaw(t *testing.T) {
	entries := sortedEntries()
	data := buildAndCommit(t, entries, WithBlockSize(64))
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	want := int64(HeaderSize) + int64(r.blockSize)*(int64(r.indexBlockCount)+int64(r.dataBlockCount))
	if int64(len(data)) != want {
		t.Fatalf("file size = %d, want %d", len(data), want)
	}
}

func TestRoundTripWithChecksumsAndBloomFilter(t *testing.T) {
	entries := sortedEntries()
	data := buildAndCommit(t, entries,
		WithBlockSize(64),
		WithChecksums(true),
		WithBloomFilter(uint(len(entries)), 0.01),
	)

	r, err := NewReader(bytes.NewReader(data), int64(len(data)),
		WithReaderChecksums(true),
		WithVerifyChecksums(true),
	)
	if err != nil {
		t.Fatal(err)
	}
	if r.bloomFilter == nil {
		t.Fatal("expected bloom filter trailer to be detected")
	}

	for _, e := range entries {
		v, found, err := r.Get([]byte(e.key))
		if err != nil {
			t.Fatal(err)
		}
		if !found || v.(uint64) != e.value {
			t.Fatalf("Get(%q) = (%v, %v), want (%v, true)", e.key, v, found, e.value)
		}
	}
	if _, found, err := r.Get([]byte("definitely-absent")); err != nil || found {
		t.Fatalf("Get(absent) = (_, %v, %v)", found, err)
	}
}

func TestRoundTripWithRecordFormat(t *testing.T) {
	packer, err := NewRecordFormat([]FieldSpec{{Name: "key1", BitWidth: 64}, {Name: "key2", BitWidth: 32}})
	if err != nil {
		t.Fatal(err)
	}
	keys := []string{"http://a.example.com/", "http://b.example.com/", "http://c.example.com/"}

	w, err := NewWriter(WithBlockSize(64), WithValuePacker(packer))
	if err != nil {
		t.Fatal(err)
	}
	for i, k := range keys {
		v := map[string]uint64{"key1": uint64(i), "key2": uint64(i * 2)}
		if err := w.Add([]byte(k), v); err != nil {
			t.Fatal(err)
		}
	}
	out := NewSpillWriter(0)
	defer out.Close()
	if err := w.Commit(out); err != nil {
		t.Fatal(err)
	}
	out.Seek(0, io.SeekStart)
	data, err := io.ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(bytes.NewReader(data), int64(len(data)), WithReaderValuePacker(packer))
	if err != nil {
		t.Fatal(err)
	}
	for i, k := range keys {
		v, found, err := r.Get([]byte(k))
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatalf("Get(%q) not found", k)
		}
		dict := v.(map[string]uint64)
		if dict["key1"] != uint64(i) || dict["key2"] != uint64(i*2) {
			t.Fatalf("Get(%q) = %+v, want key1=%d key2=%d", k, dict, i, i*2)
		}
	}
}

func TestWriterRejectsEmptyKey(t *testing.T) {
	w, err := NewWriter()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Add(nil, uint64(1)); err != ErrEmptyKey {
		t.Fatalf("Add(nil, ...) error = %v, want ErrEmptyKey", err)
	}
}

func TestWriterStrictOrderRejectsOutOfOrderKeys(t *testing.T) {
	w, err := NewWriter(WithStrictOrder(true))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Add([]byte("b"), uint64(1)); err != nil {
		t.Fatal(err)
	}
	if err := w.Add([]byte("a"), uint64(2)); err == nil {
		t.Fatal("expected ErrOutOfOrder for a non-ascending key")
	}
}

func TestDiagnoseReportsLevelsAndBlocks(t *testing.T) {
	entries := sortedEntries()
	data := buildAndCommit(t, entries, WithBlockSize(64))
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	report, err := r.Diagnose()
	if err != nil {
		t.Fatal(err)
	}
	if len(report.OutOfRangePointers) != 0 {
		t.Fatalf("unexpected out-of-range pointers: %v", report.OutOfRangePointers)
	}
	if report.IndexBlocksVisited != int(r.indexBlockCount) {
		t.Fatalf("visited %d index blocks, file has %d", report.IndexBlocksVisited, r.indexBlockCount)
	}
}
