package runic

import "fmt"

// Reader is a forward-only cursor over a byte slice. Slices returned by
// ReadBytes alias the underlying input; decoders copy only when the
// decoded type requires ownership.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// ReadByte consumes and returns the next byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.data) {
		return 0, fmt.Errorf("%w: at offset %d", ErrBufferUnderflow, r.off)
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

// PeekByte returns the next byte without consuming it.
func (r *Reader) PeekByte() (byte, error) {
	if r.off >= len(r.data) {
		return 0, fmt.Errorf("%w: at offset %d", ErrBufferUnderflow, r.off)
	}
	return r.data[r.off], nil
}

// ReadBytes consumes n bytes and returns them as a subslice of the input.
// The bound check compares n against the remainder, never r.off+n, so a
// corrupt length near the int maximum cannot wrap around it.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.off {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrBufferUnderflow, n, r.off, len(r.data)-r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// checkCount validates a framed element count against the unread
// input. Every element occupies at least one byte, so any larger count
// is corrupt framing, reported before anything is sized from it.
func checkCount(r *Reader, n uint64) (int, error) {
	if n > uint64(r.Remaining()) {
		return 0, fmt.Errorf("%w: count %d with %d bytes remaining",
			ErrBufferUnderflow, n, r.Remaining())
	}
	return int(n), nil
}

// SkipBytes consumes n bytes without returning them.
func (r *Reader) SkipBytes(n int) error {
	if n < 0 || n > len(r.data)-r.off {
		return fmt.Errorf("%w: skip %d bytes at offset %d, have %d",
			ErrBufferUnderflow, n, r.off, len(r.data)-r.off)
	}
	r.off += n
	return nil
}
