package framing

// Buffer is the append-only pending-bytes holder of spec.md §3. The
// codec parses in place against Buffer.Bytes(); Consume discards the
// bytes of one fully-parsed frame by compacting the backing slice.
type Buffer struct {
	data []byte
}

// Append adds incoming bytes to the pending buffer.
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// Bytes returns the not-yet-parsed pending bytes.
func (b *Buffer) Bytes() []byte { return b.data }

// Len reports how many pending bytes remain.
func (b *Buffer) Len() int { return len(b.data) }

// Consume discards the first n bytes, compacting the buffer.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	copy(b.data, b.data[n:])
	b.data = b.data[:len(b.data)-n]
}
