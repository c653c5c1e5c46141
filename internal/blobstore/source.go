// Package blobstore reads market files out of an object store: enumerating
// keys under a prefix, filtering to files that qualify as market files, and
// handing back the decompressed lines of each file.
package blobstore

import (
	"bufio"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"strings"
)

// IsMarketFile reports whether key's final path segment begins with "1.",
// the naming convention historical Betfair market files follow.
func IsMarketFile(key string) bool {
	segment := key
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		segment = key[i+1:]
	}
	return strings.HasPrefix(segment, "1.")
}

// Source enumerates market files under a prefix and opens their contents
// as a stream of lines.
type Source interface {
	// ListMarketFiles returns the keys under prefix that qualify as market
	// files, in no particular order.
	ListMarketFiles(ctx context.Context, prefix string) ([]string, error)
	// OpenFile returns the decompressed lines of the file at key.
	OpenFile(ctx context.Context, key string) ([][]byte, error)
}

// ErrDecompressionFailure wraps a failure to decompress a blob: callers
// should skip and log the file, not abort the whole run.
type ErrDecompressionFailure struct {
	Key string
	Err error
}

func (e *ErrDecompressionFailure) Error() string {
	return fmt.Sprintf("blobstore: decompress %s: %v", e.Key, e.Err)
}

func (e *ErrDecompressionFailure) Unwrap() error { return e.Err }

// decompressLines reads r as bz2-compressed UTF-8 text and returns its
// lines. If key doesn't end in ".bz2" the reader is used uncompressed
// (historical Betfair archives are sometimes distributed pre-decompressed).
func decompressLines(key string, r io.Reader) ([][]byte, error) {
	var reader io.Reader = r
	if strings.HasSuffix(key, ".bz2") {
		reader = bzip2.NewReader(r)
	}

	var lines [][]byte
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ErrDecompressionFailure{Key: key, Err: err}
	}
	return lines, nil
}
