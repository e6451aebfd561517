package runic

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Shared numeric plumbing. All integer and length fields pass through
// here; the Options bundle decides between the continuation codec and
// raw fixed-width images.

// writeFixed emits v as a raw width-byte image in the given order.
func writeFixed(w Writer, order binary.ByteOrder, v uint64, width int) error {
	var tmp [8]byte
	switch width {
	case 1:
		tmp[0] = byte(v)
	case 2:
		order.PutUint16(tmp[:2], uint16(v))
	case 4:
		order.PutUint32(tmp[:4], uint32(v))
	default:
		order.PutUint64(tmp[:8], v)
	}
	return w.Write(tmp[:width])
}

// readFixed consumes a raw width-byte image.
func readFixed(r *Reader, order binary.ByteOrder, width int) (uint64, error) {
	b, err := r.ReadBytes(width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(order.Uint16(b)), nil
	case 4:
		return uint64(order.Uint32(b)), nil
	default:
		return order.Uint64(b), nil
	}
}

// writeUint emits an unsigned integer of the given bit width per the
// options' integer mode.
func writeUint(w Writer, opts Options, bits uint, v uint64) error {
	if opts.Integer == IntegerFixed {
		return writeFixed(w, opts.Order.order(), v, int(bits/8))
	}
	return writeContinuation(w, v)
}

// readUint reads an unsigned integer of the given bit width.
func readUint(r *Reader, opts Options, bits uint) (uint64, error) {
	if opts.Integer == IntegerFixed {
		return readFixed(r, opts.Order.order(), int(bits/8))
	}
	return readContinuation(r, bits)
}

// writeInt emits a signed integer: zigzag + continuation in variable
// mode, a raw two's-complement image in fixed mode.
func writeInt(w Writer, opts Options, bits uint, v int64) error {
	if opts.Integer == IntegerFixed {
		return writeFixed(w, opts.Order.order(), uint64(v), int(bits/8))
	}
	return writeContinuation(w, zigzag(v))
}

// readInt reads a signed integer of the given bit width.
func readInt(r *Reader, opts Options, bits uint) (int64, error) {
	if opts.Integer == IntegerFixed {
		u, err := readFixed(r, opts.Order.order(), int(bits/8))
		if err != nil {
			return 0, err
		}
		// Sign-extend from the stored width.
		shift := 64 - bits
		return int64(u<<shift) >> shift, nil
	}
	u, err := readContinuation(r, bits)
	if err != nil {
		return 0, err
	}
	return unzigzag(u), nil
}

// writeFloat32 emits the IEEE 754 bit image of v.
func writeFloat32(w Writer, opts Options, v float32) error {
	return writeFixed(w, opts.Order.order(), uint64(math.Float32bits(v)), 4)
}

// readFloat32 reads an IEEE 754 single image.
func readFloat32(r *Reader, opts Options) (float32, error) {
	u, err := readFixed(r, opts.Order.order(), 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(u)), nil
}

// writeFloat64 emits the IEEE 754 bit image of v.
func writeFloat64(w Writer, opts Options, v float64) error {
	return writeFixed(w, opts.Order.order(), math.Float64bits(v), 8)
}

// readFloat64 reads an IEEE 754 double image.
func readFloat64(r *Reader, opts Options) (float64, error) {
	u, err := readFixed(r, opts.Order.order(), 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// writeLength emits a storage-tier length or count field per the
// options' length mode.
func writeLength(w Writer, opts Options, v uint64) error {
	bits := opts.Length.bits()
	if bits == 0 {
		return writeContinuation(w, v)
	}
	if bits < 64 && v >= 1<<bits {
		return fmt.Errorf("%w: length %d exceeds %d-bit length field", ErrOverflow, v, bits)
	}
	return writeFixed(w, opts.Order.order(), v, int(bits/8))
}

// readLength reads a storage-tier length or count field.
func readLength(r *Reader, opts Options) (uint64, error) {
	bits := opts.Length.bits()
	if bits == 0 {
		return readContinuation(r, 64)
	}
	return readFixed(r, opts.Order.order(), int(bits/8))
}

// fitsUint reports whether v fits in an unsigned integer of the given
// bit width.
func fitsUint(v uint64, bits uint) bool {
	return bits >= 64 || v < 1<<bits
}

// fitsInt reports whether v fits in a signed integer of the given bit
// width.
func fitsInt(v int64, bits uint) bool {
	if bits >= 64 {
		return true
	}
	limit := int64(1) << (bits - 1)
	return v >= -limit && v < limit
}
