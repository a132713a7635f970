/*
Package capture implements the capture decisions and the bounded buffers
used to mirror the bytes of a request or response stream.

A Decision is resolved into a Buffer:

	all      unbounded buffer, grows for the lifetime of the request
	none     no buffer, the stream is not intercepted
	head:N   HeadBuffer, keeps the first N bytes
	tail:N   TailBuffer, keeps the last N bytes

Buffers are not safe for concurrent use.
*/
package capture

import "bytes"

// Buffer receives a copy of the bytes flowing through an intercepted
// stream.
type Buffer interface {

	// Write always consumes all of p. Bytes exceeding the capacity
	// of the buffer are discarded according to its truncation
	// policy.
	Write(p []byte) (int, error)

	// Bytes returns a copy of the retained bytes. It is never nil
	// before Release.
	Bytes() []byte

	// Len returns the number of retained bytes.
	Len() int

	// Total returns the number of bytes offered to the buffer.
	Total() int64

	// Truncated tells whether any offered byte was discarded.
	Truncated() bool

	// Release drops the retained bytes. Writes after release are
	// discarded and Bytes returns nil.
	Release()
}

// Resolve returns the buffer implementing a decision. It returns nil
// without an error when the decision does not capture anything.
func Resolve(d Decision) (Buffer, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	if d.IsNone() {
		return nil, nil
	}

	switch d.kind {
	case KindAll:
		return NewUnboundedBuffer(), nil
	case KindHead:
		return NewHeadBuffer(d.n), nil
	default:
		return NewTailBuffer(d.n), nil
	}
}

// UnboundedBuffer keeps every byte written to it.
type UnboundedBuffer struct {
	buf      *bytes.Buffer
	total    int64
	released bool
}

func NewUnboundedBuffer() *UnboundedBuffer {
	return &UnboundedBuffer{buf: bytes.NewBuffer(nil)}
}

func (b *UnboundedBuffer) Write(p []byte) (int, error) {
	if b.released {
		return len(p), nil
	}

	b.total += int64(len(p))
	return b.buf.Write(p)
}

func (b *UnboundedBuffer) Bytes() []byte {
	if b.released {
		return nil
	}

	return snapshot(b.buf.Bytes())
}

func (b *UnboundedBuffer) Len() int {
	if b.released {
		return 0
	}

	return b.buf.Len()
}

func (b *UnboundedBuffer) Total() int64    { return b.total }
func (b *UnboundedBuffer) Truncated() bool { return false }

func (b *UnboundedBuffer) Release() {
	b.released = true
	b.buf = nil
}

func snapshot(p []byte) []byte {
	s := make([]byte, len(p))
	copy(s, p)
	return s
}
