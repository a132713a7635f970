// Package iotest provides readers and writers for testing the capture of
// streams.
package iotest

import (
	"io"
	"time"
)

// ChunkReader returns at most a fixed number of bytes per Read, with an
// optional delay before each Read.
type ChunkReader struct {
	r    io.Reader
	size int
	d    time.Duration
}

// NewChunkReader creates a ChunkReader. A size smaller than 1 is
// treated as 1.
func NewChunkReader(r io.Reader, size int, d time.Duration) *ChunkReader {
	if size < 1 {
		size = 1
	}

	return &ChunkReader{r: r, size: size, d: d}
}

func (cr *ChunkReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if cr.d > 0 {
		time.Sleep(cr.d)
	}

	if len(p) > cr.size {
		p = p[:cr.size]
	}

	return cr.r.Read(p)
}
