package io

import (
	"io"

	"github.com/zalando/recorder/capture"
)

// WriteProxy wraps a writer and mirrors every byte handed to it into a
// capture buffer before forwarding the call unchanged.
type WriteProxy struct {
	output io.Writer
	buf    capture.Buffer
	close  func() error
}

type WriteOption func(*WriteProxy)

// WithClose sets the close behavior of the proxy, for outputs that
// should not be closed, or need extra work on close.
func WithClose(f func() error) WriteOption {
	return func(wp *WriteProxy) { wp.close = f }
}

func NewWriteProxy(w io.Writer, buf capture.Buffer, opts ...WriteOption) *WriteProxy {
	wp := &WriteProxy{output: w, buf: buf}
	for _, o := range opts {
		o(wp)
	}

	return wp
}

func (wp *WriteProxy) mirror(p []byte) {
	if wp.buf != nil && len(p) > 0 {
		wp.buf.Write(p)
	}
}

func (wp *WriteProxy) Write(p []byte) (int, error) {
	wp.mirror(p)
	return wp.output.Write(p)
}

func (wp *WriteProxy) WriteString(s string) (int, error) {
	if wp.buf != nil && len(s) > 0 {
		wp.buf.Write([]byte(s))
	}

	return io.WriteString(wp.output, s)
}

// WriteLines mirrors all lines, then writes them one by one to the
// output, stopping at the first error.
func (wp *WriteProxy) WriteLines(lines [][]byte) (int64, error) {
	for _, l := range lines {
		wp.mirror(l)
	}

	var written int64
	for _, l := range lines {
		n, err := wp.output.Write(l)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// Close calls the close function set by WithClose. Without one, it
// closes the output when it is an io.Closer.
func (wp *WriteProxy) Close() error {
	if wp.close != nil {
		return wp.close()
	}

	if c, ok := wp.output.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

func (wp *WriteProxy) Bytes() []byte {
	if wp.buf == nil {
		return nil
	}

	return wp.buf.Bytes()
}

func (wp *WriteProxy) Buffer() capture.Buffer { return wp.buf }

// Release drops the capture buffer. The proxy keeps forwarding writes.
func (wp *WriteProxy) Release() {
	if wp.buf != nil {
		wp.buf.Release()
		wp.buf = nil
	}
}
