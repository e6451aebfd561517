package runic

import "fmt"

// Writer is the forward-only output cursor shared by all format
// encoders. BufWriter grows without bound; FixedWriter fails with
// ErrBufferOverflow once its backing slice is full.
type Writer interface {
	WriteByte(b byte) error
	Write(p []byte) error
	WriteString(s string) error

	// Len returns the number of bytes written so far.
	Len() int
}

// BufWriter is a growable in-memory Writer.
type BufWriter struct {
	buf []byte
}

// NewBufWriter creates a BufWriter with the given initial capacity.
func NewBufWriter(capacity int) *BufWriter {
	return &BufWriter{buf: make([]byte, 0, capacity)}
}

// WriteByte appends one byte.
func (w *BufWriter) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// Write appends p.
func (w *BufWriter) Write(p []byte) error {
	w.buf = append(w.buf, p...)
	return nil
}

// WriteString appends s.
func (w *BufWriter) WriteString(s string) error {
	w.buf = append(w.buf, s...)
	return nil
}

// Len returns the number of bytes written.
func (w *BufWriter) Len() int {
	return len(w.buf)
}

// Bytes returns the accumulated output.
func (w *BufWriter) Bytes() []byte {
	return w.buf
}

// Reset truncates the writer to zero length, keeping capacity.
func (w *BufWriter) Reset() {
	w.buf = w.buf[:0]
}

// FixedWriter writes into a caller-supplied slice and fails once it is
// full. It never allocates.
type FixedWriter struct {
	buf []byte
	n   int
}

// NewFixedWriter creates a FixedWriter over backing.
func NewFixedWriter(backing []byte) *FixedWriter {
	return &FixedWriter{buf: backing}
}

// WriteByte appends one byte, or fails if the backing slice is full.
func (w *FixedWriter) WriteByte(b byte) error {
	if w.n >= len(w.buf) {
		return fmt.Errorf("%w: fixed writer capacity %d", ErrBufferOverflow, len(w.buf))
	}
	w.buf[w.n] = b
	w.n++
	return nil
}

// Write appends p, or fails if it does not fit.
func (w *FixedWriter) Write(p []byte) error {
	if w.n+len(p) > len(w.buf) {
		return fmt.Errorf("%w: need %d bytes, %d left of %d",
			ErrBufferOverflow, len(p), len(w.buf)-w.n, len(w.buf))
	}
	copy(w.buf[w.n:], p)
	w.n += len(p)
	return nil
}

// WriteString appends s, or fails if it does not fit.
func (w *FixedWriter) WriteString(s string) error {
	if w.n+len(s) > len(w.buf) {
		return fmt.Errorf("%w: need %d bytes, %d left of %d",
			ErrBufferOverflow, len(s), len(w.buf)-w.n, len(w.buf))
	}
	copy(w.buf[w.n:], s)
	w.n += len(s)
	return nil
}

// Len returns the number of bytes written.
func (w *FixedWriter) Len() int {
	return w.n
}

// Bytes returns the written prefix of the backing slice.
func (w *FixedWriter) Bytes() []byte {
	return w.buf[:w.n]
}
