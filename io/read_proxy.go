package io

import (
	"bufio"
	"io"
	"iter"

	"github.com/zalando/recorder/capture"
)

const defaultChunkSize = 8192

// ReadProxy wraps a request body and mirrors every byte returned to the
// reader into a capture buffer. It never changes what is returned or how
// the underlying stream blocks.
type ReadProxy struct {
	input io.ReadCloser
	lines *bufio.Reader
	buf   capture.Buffer
}

func NewReadProxy(rc io.ReadCloser, buf capture.Buffer) *ReadProxy {
	return &ReadProxy{input: rc, buf: buf}
}

// once line reads were used, all reads need to go through the same
// bufio.Reader, otherwise the read ahead would be lost
func (rp *ReadProxy) reader() io.Reader {
	if rp.lines != nil {
		return rp.lines
	}

	return rp.input
}

func (rp *ReadProxy) mirror(p []byte) {
	if rp.buf != nil && len(p) > 0 {
		rp.buf.Write(p)
	}
}

func (rp *ReadProxy) Read(p []byte) (int, error) {
	n, err := rp.reader().Read(p)
	rp.mirror(p[:n])
	return n, err
}

// ReadLine reads until and including the next newline. At the end of the
// stream, it returns the remaining bytes together with io.EOF.
func (rp *ReadProxy) ReadLine() ([]byte, error) {
	if rp.lines == nil {
		rp.lines = bufio.NewReader(rp.input)
	}

	line, err := rp.lines.ReadBytes('\n')
	rp.mirror(line)
	return line, err
}

// ReadLines reads lines until the total size reaches hint, or until
// the end of the stream when hint is not positive. Reaching the end of
// the stream is not an error.
func (rp *ReadProxy) ReadLines(hint int) ([][]byte, error) {
	var (
		lines [][]byte
		size  int
	)

	for hint <= 0 || size < hint {
		line, err := rp.ReadLine()
		if len(line) > 0 {
			lines = append(lines, line)
			size += len(line)
		}

		if err == io.EOF {
			return lines, nil
		}

		if err != nil {
			return lines, err
		}
	}

	return lines, nil
}

// Chunks iterates over the stream in chunks of at most size bytes. Each
// chunk is mirrored before it is yielded. A read error other than
// io.EOF is yielded once and ends the iteration. Iterating again
// continues where the previous iteration stopped.
func (rp *ReadProxy) Chunks(size int) iter.Seq2[[]byte, error] {
	if size <= 0 {
		size = defaultChunkSize
	}

	return func(yield func([]byte, error) bool) {
		for {
			p := make([]byte, size)
			n, err := rp.Read(p)
			if n > 0 && !yield(p[:n], nil) {
				return
			}

			if err == io.EOF {
				return
			}

			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Close closes the underlying stream. It does not release the captured
// bytes.
func (rp *ReadProxy) Close() error {
	return rp.input.Close()
}

// Bytes returns the captured bytes, or nil after Release.
func (rp *ReadProxy) Bytes() []byte {
	if rp.buf == nil {
		return nil
	}

	return rp.buf.Bytes()
}

func (rp *ReadProxy) Buffer() capture.Buffer { return rp.buf }

// Release drops the capture buffer. The proxy keeps forwarding reads.
func (rp *ReadProxy) Release() {
	if rp.buf != nil {
		rp.buf.Release()
		rp.buf = nil
	}
}
