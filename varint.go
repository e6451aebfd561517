package runic

import "fmt"

// Continuation encoding: 7 data bits per byte in the low bits, a
// more-follows flag in bit 7, least-significant group emitted first.
// Zigzag maps small-magnitude signed values to small unsigned values so
// they stay short under the continuation encoding.

// writeContinuation emits v as continuation bytes.
func writeContinuation(w Writer, v uint64) error {
	for v >= 0x80 {
		if err := w.WriteByte(byte(v) | 0x80); err != nil {
			return err
		}
		v >>= 7
	}
	return w.WriteByte(byte(v))
}

// continuationLen returns the number of bytes writeContinuation emits.
func continuationLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// readContinuation decodes a continuation value of at most bits bits.
// Rejects encodings whose accepted data bits would not fit the target
// width, so corrupt or hostile input cannot silently wrap around.
func readContinuation(r *Reader, bits uint) (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		data := uint64(b & 0x7f)
		if shift >= bits || (bits-shift < 7 && data>>(bits-shift) != 0) {
			return 0, fmt.Errorf("%w: value exceeds %d bits", ErrBitsOverflow, bits)
		}
		v |= data << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}

// zigzag maps signed to unsigned: 0→0, -1→1, 1→2, -2→3, 2→4, ...
// Shift/XOR keeps the signed minimum in range; multiplication would
// overflow on it.
func zigzag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// unzigzag is the exact inverse of zigzag over the full int64 domain.
func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
