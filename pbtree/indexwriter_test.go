package pbtree

import (
	"bytes"
	"io"
	"testing"
)

func TestIndexWriterTwoKeysOneLevel(t *testing.T) {
	iw, err := NewIndexWriter(DefaultTerminator, 10, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := iw.Add(0, []byte("b")); err != nil {
		t.Fatal(err)
	}
	if err := iw.Add(0, []byte("c")); err != nil {
		t.Fatal(err)
	}

	out := NewSpillWriter(0)
	defer out.Close()
	indexBlockCount, err := iw.Finish(out)
	if err != nil {
		t.Fatal(err)
	}
	if indexBlockCount != 3 {
		t.Fatalf("index_block_count = %d, want 3", indexBlockCount)
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, out.Size())
	if _, err := io.ReadFull(out, got); err != nil {
		t.Fatal(err)
	}

	want := append([]byte{}, encodeHeader(header{blockSize: 10, indexBlockCount: 3})...)
	want = append(want, []byte{0x01, 0x00, 0x00, 0x00, 'c', 0x00, 0x02, 0x00, 0x00, 0x00}...)
	want = append(want, []byte{0x03, 0x00, 0x00, 0x00, 'b', 0x00, 0x04, 0x00, 0x00, 0x00}...)
	want = append(want, []byte{0x04, 0x00, 0x00, 0x00, 'c', 0x00, 0x05, 0x00, 0x00, 0x00}...)

	if !bytes.Equal(got, want) {
		t.Fatalf("index region = %v, want %v", got, want)
	}
}

func TestIndexWriterEmpty(t *testing.T) {
	iw, err := NewIndexWriter(DefaultTerminator, 64, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	out := NewSpillWriter(0)
	defer out.Close()
	count, err := iw.Finish(out)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("index_block_count = %d, want 0", count)
	}
}
