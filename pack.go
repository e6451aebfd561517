package runic

import (
	"fmt"
	"math"
)

// The packed representation stores an aggregate as one length-framed
// blob of fixed-width fields with zero per-field framing. The blob body
// is identical across the three tiers; only the outer framing differs,
// so the body cursors live here and each format supplies the frame.

// bufWriter adapts an allocator Buf to the Writer contract. A failed
// Buf write means the bounded allocator ran out of room.
type bufWriter struct {
	buf Buf
}

func (w *bufWriter) WriteByte(b byte) error {
	if !w.buf.WriteByte(b) {
		return ErrAlloc
	}
	return nil
}

func (w *bufWriter) Write(p []byte) error {
	if !w.buf.Write(p) {
		return ErrAlloc
	}
	return nil
}

func (w *bufWriter) WriteString(s string) error {
	if !w.buf.WriteString(s) {
		return ErrAlloc
	}
	return nil
}

func (w *bufWriter) Len() int {
	return w.buf.Len()
}

// packEncoder accumulates the blob in an allocator scratch region and
// hands the finished bytes to the owning format's frame callback.
type packEncoder struct {
	cx    *Context
	buf   Buf
	w     *bufWriter
	opts  Options
	done  bool
	frame func(blob []byte) error
}

// newPackEncoder borrows a scratch region from the context's allocator.
func newPackEncoder(cx *Context, opts Options, frame func(blob []byte) error) (*packEncoder, error) {
	buf, ok := cx.Alloc().Alloc()
	if !ok {
		return nil, cx.Report(cx.Mark(), ErrAlloc)
	}
	return &packEncoder{
		cx:    cx,
		buf:   buf,
		w:     &bufWriter{buf: buf},
		opts:  opts,
		frame: frame,
	}, nil
}

func (p *packEncoder) write(f func(w Writer) error) error {
	if p.done {
		return usagef("pack encoder already ended")
	}
	if err := f(p.w); err != nil {
		return p.cx.Report(p.cx.Mark(), err)
	}
	return nil
}

func (p *packEncoder) PackUint8(v uint8) error {
	return p.write(func(w Writer) error { return writeFixed(w, p.opts.Order.order(), uint64(v), 1) })
}

func (p *packEncoder) PackUint16(v uint16) error {
	return p.write(func(w Writer) error { return writeFixed(w, p.opts.Order.order(), uint64(v), 2) })
}

func (p *packEncoder) PackUint32(v uint32) error {
	return p.write(func(w Writer) error { return writeFixed(w, p.opts.Order.order(), uint64(v), 4) })
}

func (p *packEncoder) PackUint64(v uint64) error {
	return p.write(func(w Writer) error { return writeFixed(w, p.opts.Order.order(), v, 8) })
}

func (p *packEncoder) PackInt8(v int8) error {
	return p.PackUint8(uint8(v))
}

func (p *packEncoder) PackInt16(v int16) error {
	return p.PackUint16(uint16(v))
}

func (p *packEncoder) PackInt32(v int32) error {
	return p.PackUint32(uint32(v))
}

func (p *packEncoder) PackInt64(v int64) error {
	return p.PackUint64(uint64(v))
}

func (p *packEncoder) PackFloat32(v float32) error {
	return p.PackUint32(math.Float32bits(v))
}

func (p *packEncoder) PackFloat64(v float64) error {
	return p.PackUint64(math.Float64bits(v))
}

func (p *packEncoder) PackBytes(b []byte) error {
	return p.write(func(w Writer) error { return w.Write(b) })
}

// End frames the accumulated blob and returns the scratch region to
// the allocator, on the error path too.
func (p *packEncoder) End() error {
	if p.done {
		return usagef("pack encoder ended twice")
	}
	p.done = true
	defer p.buf.Release()
	if err := p.frame(p.buf.Bytes()); err != nil {
		return p.cx.Report(p.cx.Mark(), err)
	}
	return nil
}

// packDecoder reads fixed-width fields back to back from one framed
// blob.
type packDecoder struct {
	cx   *Context
	r    *Reader
	opts Options
	done bool
}

// newPackDecoder wraps an already-unframed blob.
func newPackDecoder(cx *Context, blob []byte, opts Options) *packDecoder {
	return &packDecoder{cx: cx, r: NewReader(blob), opts: opts}
}

func (p *packDecoder) read(width int) (uint64, error) {
	if p.done {
		return 0, usagef("pack decoder already ended")
	}
	v, err := readFixed(p.r, p.opts.Order.order(), width)
	if err != nil {
		return 0, p.cx.Report(p.cx.Mark(), err)
	}
	return v, nil
}

func (p *packDecoder) Uint8() (uint8, error) {
	v, err := p.read(1)
	return uint8(v), err
}

func (p *packDecoder) Uint16() (uint16, error) {
	v, err := p.read(2)
	return uint16(v), err
}

func (p *packDecoder) Uint32() (uint32, error) {
	v, err := p.read(4)
	return uint32(v), err
}

func (p *packDecoder) Uint64() (uint64, error) {
	return p.read(8)
}

func (p *packDecoder) Int8() (int8, error) {
	v, err := p.read(1)
	return int8(v), err
}

func (p *packDecoder) Int16() (int16, error) {
	v, err := p.read(2)
	return int16(v), err
}

func (p *packDecoder) Int32() (int32, error) {
	v, err := p.read(4)
	return int32(v), err
}

func (p *packDecoder) Int64() (int64, error) {
	v, err := p.read(8)
	return int64(v), err
}

func (p *packDecoder) Float32() (float32, error) {
	v, err := p.read(4)
	return math.Float32frombits(uint32(v)), err
}

func (p *packDecoder) Float64() (float64, error) {
	v, err := p.read(8)
	return math.Float64frombits(v), err
}

func (p *packDecoder) Bytes(n int) ([]byte, error) {
	if p.done {
		return nil, usagef("pack decoder already ended")
	}
	b, err := p.r.ReadBytes(n)
	if err != nil {
		return nil, p.cx.Report(p.cx.Mark(), err)
	}
	return b, nil
}

// End closes the blob. The blob must have been consumed exactly.
func (p *packDecoder) End() error {
	if p.done {
		return usagef("pack decoder ended twice")
	}
	p.done = true
	if n := p.r.Remaining(); n != 0 {
		return p.cx.Report(p.cx.Mark(), fmt.Errorf("%w: %d unread bytes in packed blob", ErrUsage, n))
	}
	return nil
}
