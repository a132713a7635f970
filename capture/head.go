package capture

// HeadBuffer keeps the first max bytes ever written to it.
type HeadBuffer struct {
	max      int
	buf      []byte
	total    int64
	released bool
}

func NewHeadBuffer(max int) *HeadBuffer {
	return &HeadBuffer{max: max}
}

// Retain stores the leading bytes of p that still fit and returns how
// many were stored.
func (b *HeadBuffer) Retain(p []byte) int {
	if b.released || len(p) == 0 {
		return 0
	}

	b.total += int64(len(p))
	room := b.max - len(b.buf)
	if room <= 0 {
		return 0
	}

	if len(p) > room {
		p = p[:room]
	}

	b.buf = append(b.buf, p...)
	return len(p)
}

// Write lies about the retained length, to avoid short writes.
func (b *HeadBuffer) Write(p []byte) (int, error) {
	b.Retain(p)
	return len(p), nil
}

func (b *HeadBuffer) Bytes() []byte {
	if b.released {
		return nil
	}

	return snapshot(b.buf)
}

func (b *HeadBuffer) Len() int        { return len(b.buf) }
func (b *HeadBuffer) Total() int64    { return b.total }
func (b *HeadBuffer) Truncated() bool { return b.total > int64(len(b.buf)) }

func (b *HeadBuffer) Release() {
	b.released = true
	b.buf = nil
}
