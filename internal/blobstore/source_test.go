package blobstore

import (
	"bytes"
	"compress/bzip2"
	"testing"
)

func TestIsMarketFile(t *testing.T) {
	t.Parallel()
	cases := []struct {
		key  string
		want bool
	}{
		{"data/2026/1.23456789", true},
		{"1.23456789", true},
		{"data/2026/2.23456789", false},
		{"data/2026/readme.txt", false},
		{"data/2026/", false},
	}
	for _, c := range cases {
		if got := IsMarketFile(c.key); got != c.want {
			t.Errorf("IsMarketFile(%q) = %v, want %v", c.key, got, c.want)
		}
	}
}

func TestDecompressLinesUncompressed(t *testing.T) {
	t.Parallel()
	r := bytes.NewReader([]byte("line one\nline two\n"))
	lines, err := decompressLines("1.23456789", r)
	if err != nil {
		t.Fatalf("decompressLines: %v", err)
	}
	if len(lines) != 2 || string(lines[0]) != "line one" || string(lines[1]) != "line two" {
		t.Fatalf("lines = %v, want [line one, line two]", lines)
	}
}

func TestDecompressLinesBz2Failure(t *testing.T) {
	t.Parallel()
	r := bytes.NewReader([]byte("not actually bzip2 data"))
	_, err := decompressLines("1.23456789.bz2", r)
	if err == nil {
		t.Fatal("expected decompression failure for invalid bz2 data")
	}
	var decErr *ErrDecompressionFailure
	if !isDecompressionFailure(err, &decErr) {
		t.Fatalf("err = %v, want *ErrDecompressionFailure", err)
	}
}

func isDecompressionFailure(err error, target **ErrDecompressionFailure) bool {
	de, ok := err.(*ErrDecompressionFailure)
	if !ok {
		return false
	}
	*target = de
	return true
}

// bzip2.NewReader is lazy: it doesn't validate the magic header until the
// first Read. Confirm that assumption holds so ErrDecompressionFailure
// fires on read, not on construction.
func TestBzip2ReaderIsLazy(t *testing.T) {
	t.Parallel()
	r := bzip2.NewReader(bytes.NewReader([]byte("garbage")))
	buf := make([]byte, 8)
	if _, err := r.Read(buf); err == nil {
		t.Fatal("expected error reading invalid bz2 stream")
	}
}
