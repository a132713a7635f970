package capture

// TailBuffer keeps the last max bytes written to it, regardless of the
// total volume.
//
// It uses two accumulators of at most max bytes each. New bytes are
// appended to current. When a write does not fit, current is filled up,
// the two swap roles, and the rest of the write goes to the new,
// emptied current. Whenever previous is not empty, it is full, so the
// tail is the end of previous followed by all of current. This caps the
// memory at 2*max and the work of a write at the length of the write.
type TailBuffer struct {
	max      int
	current  []byte
	previous []byte
	total    int64
	released bool
}

func NewTailBuffer(max int) *TailBuffer {
	return &TailBuffer{max: max}
}

func (b *TailBuffer) Write(p []byte) (int, error) {
	if b.released {
		return len(p), nil
	}

	b.total += int64(len(p))
	if len(p) == 0 || b.max <= 0 {
		return len(p), nil
	}

	room := b.max - len(b.current)
	switch {
	case len(p) <= room:
		b.current = append(b.current, p...)
	case len(p) >= b.max:
		b.current = append(b.current[:0], p[len(p)-b.max:]...)
		b.previous = b.previous[:0]
	default:
		b.current = append(b.current, p[:room]...)
		b.previous, b.current = b.current, b.previous[:0]
		b.current = append(b.current, p[room:]...)
	}

	return len(p), nil
}

func (b *TailBuffer) Bytes() []byte {
	if b.released {
		return nil
	}

	if len(b.previous) == 0 {
		return snapshot(b.current)
	}

	need := b.max - len(b.current)
	s := make([]byte, 0, need+len(b.current))
	s = append(s, b.previous[len(b.previous)-need:]...)
	return append(s, b.current...)
}

func (b *TailBuffer) Len() int {
	if len(b.previous) == 0 {
		return len(b.current)
	}

	return b.max
}

func (b *TailBuffer) Total() int64    { return b.total }
func (b *TailBuffer) Truncated() bool { return b.total > int64(b.Len()) }

func (b *TailBuffer) Release() {
	b.released = true
	b.current = nil
	b.previous = nil
}
