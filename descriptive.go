package runic

import (
	"fmt"
	"math"
)

// The descriptive tier tags every value, not just top-level fields,
// with an explicit type marker: bit width for numbers, length for byte
// runs, count for compounds. Streams are fully upgrade-stable, decode
// without any static schema into a dynamic Value (see value.go), and
// numeric fields coerce between compatible representations.
//
// Value layout:
//
//	unit            Marker(unit)
//	bool            Marker(true|false)
//	uintN/intN      Marker(uN|iN) + payload (continuation or raw image)
//	float32/64      Marker(f32|f64) + IEEE image
//	string          Prefix(len) + bytes
//	bytes           Marker(bytes) + continuation len + bytes
//	sequence        Sequence(n) + n values
//	map/struct      Marker(map) + continuation count + key/value pairs
//	variant         Marker(variant) + tag value + payload value
//	pack            Marker(pack) + continuation len + blob
//
// Struct field indices are framed as Continuation small-integer keys;
// named fields as Prefix strings. Signed payloads zigzag in variable
// integer mode and are raw two's-complement images in fixed mode.

// ============================================================
// Descriptive Encoder
// ============================================================

type descriptiveEncoder struct {
	cx   *Context
	w    Writer
	opts Options
	used bool
}

func newDescriptiveEncoder(cx *Context, w Writer, opts Options) *descriptiveEncoder {
	return &descriptiveEncoder{cx: cx, w: w, opts: opts}
}

func (e *descriptiveEncoder) use() error {
	if e.used {
		return usagef("descriptive encoder already consumed")
	}
	e.used = true
	return nil
}

func (e *descriptiveEncoder) report(err error) error {
	if err == nil {
		return nil
	}
	return e.cx.Report(e.cx.Mark(), err)
}

func (e *descriptiveEncoder) encodeUint(m Marker, bits uint, v uint64) error {
	if err := writeMarker(e.w, m); err != nil {
		return e.report(err)
	}
	return e.report(writeUint(e.w, e.opts, bits, v))
}

func (e *descriptiveEncoder) encodeInt(m Marker, bits uint, v int64) error {
	if err := writeMarker(e.w, m); err != nil {
		return e.report(err)
	}
	return e.report(writeInt(e.w, e.opts, bits, v))
}

func (e *descriptiveEncoder) EncodeUnit() error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeMarker(e.w, MarkerUnit))
}

func (e *descriptiveEncoder) EncodeBool(v bool) error {
	if err := e.use(); err != nil {
		return err
	}
	m := MarkerFalse
	if v {
		m = MarkerTrue
	}
	return e.report(writeMarker(e.w, m))
}

func (e *descriptiveEncoder) EncodeUint8(v uint8) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(MarkerU8, 8, uint64(v))
}

func (e *descriptiveEncoder) EncodeUint16(v uint16) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(MarkerU16, 16, uint64(v))
}

func (e *descriptiveEncoder) EncodeUint32(v uint32) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(MarkerU32, 32, uint64(v))
}

func (e *descriptiveEncoder) EncodeUint64(v uint64) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(MarkerU64, 64, v)
}

func (e *descriptiveEncoder) EncodeInt8(v int8) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeInt(MarkerI8, 8, int64(v))
}

func (e *descriptiveEncoder) EncodeInt16(v int16) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeInt(MarkerI16, 16, int64(v))
}

func (e *descriptiveEncoder) EncodeInt32(v int32) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeInt(MarkerI32, 32, int64(v))
}

func (e *descriptiveEncoder) EncodeInt64(v int64) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeInt(MarkerI64, 64, v)
}

func (e *descriptiveEncoder) EncodeFloat32(v float32) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeMarker(e.w, MarkerF32); err != nil {
		return e.report(err)
	}
	return e.report(writeFloat32(e.w, e.opts, v))
}

func (e *descriptiveEncoder) EncodeFloat64(v float64) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeMarker(e.w, MarkerF64); err != nil {
		return e.report(err)
	}
	return e.report(writeFloat64(e.w, e.opts, v))
}

func (e *descriptiveEncoder) EncodeString(v string) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeTag(e.w, KindPrefix, uint64(len(v))); err != nil {
		return e.report(err)
	}
	return e.report(e.w.WriteString(v))
}

func (e *descriptiveEncoder) EncodeBytes(v []byte) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeMarker(e.w, MarkerBytes); err != nil {
		return e.report(err)
	}
	if err := writeContinuation(e.w, uint64(len(v))); err != nil {
		return e.report(err)
	}
	return e.report(e.w.Write(v))
}

func (e *descriptiveEncoder) EncodeSequence(n int) (SequenceEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, usagef("negative sequence length %d", n)
	}
	if err := writeTag(e.w, KindSequence, uint64(n)); err != nil {
		return nil, e.report(err)
	}
	return &descriptiveSequenceEncoder{cx: e.cx, w: e.w, opts: e.opts, remaining: n}, nil
}

func (e *descriptiveEncoder) encodeMapHead(n int) error {
	if err := writeMarker(e.w, MarkerMap); err != nil {
		return e.report(err)
	}
	return e.report(writeContinuation(e.w, uint64(n)))
}

func (e *descriptiveEncoder) EncodeMap(n int) (MapEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, usagef("negative map length %d", n)
	}
	if err := e.encodeMapHead(n); err != nil {
		return nil, err
	}
	return &descriptiveMapEncoder{cx: e.cx, w: e.w, opts: e.opts, remaining: n}, nil
}

func (e *descriptiveEncoder) EncodeStruct(n int) (StructEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, usagef("negative field count %d", n)
	}
	if err := e.encodeMapHead(n); err != nil {
		return nil, err
	}
	return &descriptiveStructEncoder{cx: e.cx, w: e.w, opts: e.opts, remaining: n}, nil
}

func (e *descriptiveEncoder) EncodeVariant() (VariantEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if err := e.report(writeMarker(e.w, MarkerVariant)); err != nil {
		return nil, err
	}
	return &descriptiveVariantEncoder{cx: e.cx, w: e.w, opts: e.opts}, nil
}

func (e *descriptiveEncoder) EncodePack() (PackEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	return newPackEncoder(e.cx, e.opts, func(blob []byte) error {
		if err := writeMarker(e.w, MarkerPack); err != nil {
			return err
		}
		if err := writeContinuation(e.w, uint64(len(blob))); err != nil {
			return err
		}
		return e.w.Write(blob)
	})
}

type descriptiveSequenceEncoder struct {
	cx        *Context
	w         Writer
	opts      Options
	remaining int
	done      bool
}

func (s *descriptiveSequenceEncoder) EncodeNext() (Encoder, error) {
	if s.done {
		return nil, usagef("sequence already ended")
	}
	if s.remaining == 0 {
		return nil, usagef("sequence is full")
	}
	s.remaining--
	return newDescriptiveEncoder(s.cx, s.w, s.opts), nil
}

func (s *descriptiveSequenceEncoder) End() error {
	if s.done {
		return usagef("sequence ended twice")
	}
	s.done = true
	if s.remaining != 0 {
		return usagef("sequence ended with %d elements missing", s.remaining)
	}
	return nil
}

type descriptiveMapEncoder struct {
	cx        *Context
	w         Writer
	opts      Options
	remaining int
	inEntry   bool
	done      bool
}

func (m *descriptiveMapEncoder) EncodeKey() (Encoder, error) {
	if m.done {
		return nil, usagef("map already ended")
	}
	if m.inEntry {
		return nil, usagef("map entry is missing its value")
	}
	if m.remaining == 0 {
		return nil, usagef("map is full")
	}
	m.remaining--
	m.inEntry = true
	return newDescriptiveEncoder(m.cx, m.w, m.opts), nil
}

func (m *descriptiveMapEncoder) EncodeValue() (Encoder, error) {
	if m.done {
		return nil, usagef("map already ended")
	}
	if !m.inEntry {
		return nil, usagef("map value without a key")
	}
	m.inEntry = false
	return newDescriptiveEncoder(m.cx, m.w, m.opts), nil
}

func (m *descriptiveMapEncoder) End() error {
	if m.done {
		return usagef("map ended twice")
	}
	m.done = true
	if m.inEntry {
		return usagef("map ended inside an entry")
	}
	if m.remaining != 0 {
		return usagef("map ended with %d entries missing", m.remaining)
	}
	return nil
}

type descriptiveStructEncoder struct {
	cx        *Context
	w         Writer
	opts      Options
	remaining int
	done      bool
}

func (s *descriptiveStructEncoder) EncodeField(name string, index uint64) (Encoder, error) {
	if s.done {
		return nil, usagef("struct already ended")
	}
	if s.remaining == 0 {
		return nil, usagef("struct is full")
	}
	s.remaining--
	var err error
	if s.opts.Naming == FieldName {
		if err = writeTag(s.w, KindPrefix, uint64(len(name))); err == nil {
			err = s.w.WriteString(name)
		}
	} else {
		err = writeTag(s.w, KindContinuation, index)
	}
	if err != nil {
		return nil, s.cx.Report(s.cx.Mark(), err)
	}
	return newDescriptiveEncoder(s.cx, s.w, s.opts), nil
}

func (s *descriptiveStructEncoder) End() error {
	if s.done {
		return usagef("struct ended twice")
	}
	s.done = true
	if s.remaining != 0 {
		return usagef("struct ended with %d fields missing", s.remaining)
	}
	return nil
}

type descriptiveVariantEncoder struct {
	cx       *Context
	w        Writer
	opts     Options
	tagDone  bool
	valDone  bool
	finished bool
}

func (v *descriptiveVariantEncoder) EncodeTag() (Encoder, error) {
	if v.finished {
		return nil, usagef("variant already ended")
	}
	if v.tagDone {
		return nil, usagef("variant tag encoded twice")
	}
	v.tagDone = true
	return newDescriptiveEncoder(v.cx, v.w, v.opts), nil
}

func (v *descriptiveVariantEncoder) EncodeValue() (Encoder, error) {
	if v.finished {
		return nil, usagef("variant already ended")
	}
	if !v.tagDone {
		return nil, usagef("variant value before tag")
	}
	if v.valDone {
		return nil, usagef("variant value encoded twice")
	}
	v.valDone = true
	return newDescriptiveEncoder(v.cx, v.w, v.opts), nil
}

func (v *descriptiveVariantEncoder) End() error {
	if v.finished {
		return usagef("variant ended twice")
	}
	v.finished = true
	if !v.tagDone || !v.valDone {
		return usagef("variant ended before tag and value")
	}
	return nil
}

// ============================================================
// Descriptive Decoder
// ============================================================

// skipDescriptive steps over one descriptive value syntactically.
func skipDescriptive(r *Reader, opts Options, depth int) error {
	if depth >= maxNestingDepth {
		return fmt.Errorf("%w: %d levels", ErrTooDeep, depth)
	}
	k, v, err := readTag(r)
	if err != nil {
		return err
	}
	switch k {
	case KindPrefix:
		return r.SkipBytes(int(v))
	case KindSequence:
		for i := uint64(0); i < v; i++ {
			if err := skipDescriptive(r, opts, depth+1); err != nil {
				return err
			}
		}
		return nil
	case KindContinuation:
		return nil
	}
	m := Marker(v)
	switch {
	case m == MarkerUnit || m == MarkerTrue || m == MarkerFalse:
		return nil
	case m.isUnsigned() || m.isSigned():
		if opts.Integer == IntegerFixed {
			return r.SkipBytes(int(m.bits() / 8))
		}
		_, err := readContinuation(r, 64)
		return err
	case m == MarkerF32:
		return r.SkipBytes(4)
	case m == MarkerF64:
		return r.SkipBytes(8)
	case m == MarkerBytes || m == MarkerPack:
		n, err := readContinuation(r, 64)
		if err != nil {
			return err
		}
		return r.SkipBytes(int(n))
	case m == MarkerMap:
		n, err := readContinuation(r, 64)
		if err != nil {
			return err
		}
		count, err := checkCount(r, n)
		if err != nil {
			return err
		}
		for i := 0; i < 2*count; i++ {
			if err := skipDescriptive(r, opts, depth+1); err != nil {
				return err
			}
		}
		return nil
	case m == MarkerVariant:
		if err := skipDescriptive(r, opts, depth+1); err != nil {
			return err
		}
		return skipDescriptive(r, opts, depth+1)
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedKind, m)
	}
}

// number is one captured numeric value, in its stored representation.
type number struct {
	marker Marker
	u      uint64
	i      int64
	f      float64
}

type descriptiveDecoder struct {
	cx   *Context
	r    *Reader
	opts Options
	used bool
}

func newDescriptiveDecoder(cx *Context, r *Reader, opts Options) *descriptiveDecoder {
	return &descriptiveDecoder{cx: cx, r: r, opts: opts}
}

func (d *descriptiveDecoder) use() error {
	if d.used {
		return usagef("descriptive decoder already consumed")
	}
	d.used = true
	return nil
}

func (d *descriptiveDecoder) finish(start, off int, err error) error {
	d.cx.Advance(d.r.Offset() - off)
	if err != nil {
		return d.cx.Report(start, err)
	}
	return nil
}

// readNumber captures the next value, which must be numeric: a marker
// number or a continuation small integer.
func (d *descriptiveDecoder) readNumber() (number, error) {
	k, v, err := readTag(d.r)
	if err != nil {
		return number{}, err
	}
	if k == KindContinuation {
		return number{marker: MarkerU64, u: v}, nil
	}
	if k != KindMarker {
		return number{}, fmt.Errorf("%w: expected number, got %s(%d)", ErrUnexpectedTag, k, v)
	}
	m := Marker(v)
	switch {
	case m.isUnsigned():
		u, err := readUint(d.r, d.opts, m.bits())
		if err != nil {
			return number{}, err
		}
		return number{marker: m, u: u}, nil
	case m.isSigned():
		i, err := readInt(d.r, d.opts, m.bits())
		if err != nil {
			return number{}, err
		}
		return number{marker: m, i: i}, nil
	case m == MarkerF32:
		f, err := readFloat32(d.r, d.opts)
		if err != nil {
			return number{}, err
		}
		return number{marker: m, f: float64(f)}, nil
	case m == MarkerF64:
		f, err := readFloat64(d.r, d.opts)
		if err != nil {
			return number{}, err
		}
		return number{marker: m, f: f}, nil
	default:
		return number{}, fmt.Errorf("%w: expected number, got %s", ErrUnexpectedTag, m)
	}
}

// toUint coerces a captured number to an unsigned target of the given
// width. Signed sources must be non-negative; floats never coerce to
// integers.
func (n number) toUint(bits uint) (uint64, error) {
	switch {
	case n.marker.isUnsigned():
		if !fitsUint(n.u, bits) {
			return 0, fmt.Errorf("%w: %d does not fit u%d", ErrOverflow, n.u, bits)
		}
		return n.u, nil
	case n.marker.isSigned():
		if n.i < 0 || !fitsUint(uint64(n.i), bits) {
			return 0, fmt.Errorf("%w: %d does not fit u%d", ErrOverflow, n.i, bits)
		}
		return uint64(n.i), nil
	default:
		return 0, fmt.Errorf("%w: float does not coerce to u%d", ErrUnexpectedKind, bits)
	}
}

// toInt coerces a captured number to a signed target of the given
// width.
func (n number) toInt(bits uint) (int64, error) {
	switch {
	case n.marker.isSigned():
		if !fitsInt(n.i, bits) {
			return 0, fmt.Errorf("%w: %d does not fit i%d", ErrOverflow, n.i, bits)
		}
		return n.i, nil
	case n.marker.isUnsigned():
		if n.u > math.MaxInt64 || !fitsInt(int64(n.u), bits) {
			return 0, fmt.Errorf("%w: %d does not fit i%d", ErrOverflow, n.u, bits)
		}
		return int64(n.u), nil
	default:
		return 0, fmt.Errorf("%w: float does not coerce to i%d", ErrUnexpectedKind, bits)
	}
}

// toFloat64 coerces a captured number to float64. Integer sources must
// convert exactly.
func (n number) toFloat64() (float64, error) {
	switch {
	case n.marker == MarkerF32 || n.marker == MarkerF64:
		return n.f, nil
	case n.marker.isUnsigned():
		f := float64(n.u)
		if uint64(f) != n.u || f < 0 {
			return 0, fmt.Errorf("%w: %d is not exactly representable as f64", ErrOverflow, n.u)
		}
		return f, nil
	default:
		f := float64(n.i)
		if int64(f) != n.i {
			return 0, fmt.Errorf("%w: %d is not exactly representable as f64", ErrOverflow, n.i)
		}
		return f, nil
	}
}

func (d *descriptiveDecoder) DecodeUnit() error {
	if err := d.use(); err != nil {
		return err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	k, v, err := readTag(d.r)
	if err == nil && (k != KindMarker || Marker(v) != MarkerUnit) {
		err = fmt.Errorf("%w: expected unit, got %s(%d)", ErrUnexpectedTag, k, v)
	}
	return d.finish(start, off, err)
}

func (d *descriptiveDecoder) DecodeBool() (bool, error) {
	if err := d.use(); err != nil {
		return false, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	k, v, err := readTag(d.r)
	var out bool
	if err == nil {
		switch {
		case k == KindMarker && Marker(v) == MarkerTrue:
			out = true
		case k == KindMarker && Marker(v) == MarkerFalse:
			out = false
		default:
			err = fmt.Errorf("%w: expected boolean, got %s(%d)", ErrUnexpectedTag, k, v)
		}
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return false, ferr
	}
	return out, nil
}

func (d *descriptiveDecoder) decodeUint(bits uint) (uint64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readNumber()
	var v uint64
	if err == nil {
		v, err = n.toUint(bits)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return v, nil
}

func (d *descriptiveDecoder) DecodeUint8() (uint8, error) {
	v, err := d.decodeUint(8)
	return uint8(v), err
}

func (d *descriptiveDecoder) DecodeUint16() (uint16, error) {
	v, err := d.decodeUint(16)
	return uint16(v), err
}

func (d *descriptiveDecoder) DecodeUint32() (uint32, error) {
	v, err := d.decodeUint(32)
	return uint32(v), err
}

func (d *descriptiveDecoder) DecodeUint64() (uint64, error) {
	return d.decodeUint(64)
}

func (d *descriptiveDecoder) decodeInt(bits uint) (int64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readNumber()
	var v int64
	if err == nil {
		v, err = n.toInt(bits)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return v, nil
}

func (d *descriptiveDecoder) DecodeInt8() (int8, error) {
	v, err := d.decodeInt(8)
	return int8(v), err
}

func (d *descriptiveDecoder) DecodeInt16() (int16, error) {
	v, err := d.decodeInt(16)
	return int16(v), err
}

func (d *descriptiveDecoder) DecodeInt32() (int32, error) {
	v, err := d.decodeInt(32)
	return int32(v), err
}

func (d *descriptiveDecoder) DecodeInt64() (int64, error) {
	return d.decodeInt(64)
}

func (d *descriptiveDecoder) DecodeFloat32() (float32, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readNumber()
	var f float64
	if err == nil {
		f, err = n.toFloat64()
	}
	if err == nil && f != float64(float32(f)) && !math.IsNaN(f) {
		err = fmt.Errorf("%w: %v does not fit f32 exactly", ErrOverflow, f)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return float32(f), nil
}

func (d *descriptiveDecoder) DecodeFloat64() (float64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readNumber()
	var f float64
	if err == nil {
		f, err = n.toFloat64()
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return f, nil
}

func (d *descriptiveDecoder) DecodeString() (string, error) {
	if err := d.use(); err != nil {
		return "", err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	k, v, err := readTag(d.r)
	var b []byte
	if err == nil {
		if k != KindPrefix {
			err = fmt.Errorf("%w: expected string prefix, got %s(%d)", ErrUnexpectedTag, k, v)
		} else {
			b, err = d.r.ReadBytes(int(v))
		}
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return "", ferr
	}
	return string(b), nil
}

func (d *descriptiveDecoder) DecodeBytes() ([]byte, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	b, err := d.readMarkerRun(MarkerBytes)
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return b, nil
}

// readMarkerRun consumes a marker, a continuation length, and the
// framed bytes.
func (d *descriptiveDecoder) readMarkerRun(want Marker) ([]byte, error) {
	k, v, err := readTag(d.r)
	if err != nil {
		return nil, err
	}
	if k != KindMarker || Marker(v) != want {
		return nil, fmt.Errorf("%w: expected %s, got %s(%d)", ErrUnexpectedTag, want, k, v)
	}
	n, err := readContinuation(d.r, 64)
	if err != nil {
		return nil, err
	}
	return d.r.ReadBytes(int(n))
}

func (d *descriptiveDecoder) DecodeSequence() (SequenceDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	k, v, err := readTag(d.r)
	if err == nil && k != KindSequence {
		err = fmt.Errorf("%w: expected sequence, got %s(%d)", ErrUnexpectedTag, k, v)
	}
	var n int
	if err == nil {
		n, err = checkCount(d.r, v)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &descriptiveSequenceDecoder{cx: d.cx, r: d.r, opts: d.opts, length: n, remaining: n}, nil
}

// readMapHead consumes a map marker and its entry count.
func (d *descriptiveDecoder) readMapHead() (int, error) {
	k, v, err := readTag(d.r)
	if err != nil {
		return 0, err
	}
	if k != KindMarker || Marker(v) != MarkerMap {
		return 0, fmt.Errorf("%w: expected map, got %s(%d)", ErrUnexpectedTag, k, v)
	}
	n, err := readContinuation(d.r, 64)
	if err != nil {
		return 0, err
	}
	return checkCount(d.r, n)
}

func (d *descriptiveDecoder) DecodeMap() (MapDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readMapHead()
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &descriptiveMapDecoder{cx: d.cx, r: d.r, opts: d.opts, length: n, remaining: n}, nil
}

func (d *descriptiveDecoder) DecodeStruct() (StructDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readMapHead()
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &descriptiveStructDecoder{cx: d.cx, r: d.r, opts: d.opts, length: n, remaining: n}, nil
}

func (d *descriptiveDecoder) DecodeVariant() (VariantDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	k, v, err := readTag(d.r)
	if err == nil && (k != KindMarker || Marker(v) != MarkerVariant) {
		err = fmt.Errorf("%w: expected variant, got %s(%d)", ErrUnexpectedTag, k, v)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &descriptiveVariantDecoder{cx: d.cx, r: d.r, opts: d.opts}, nil
}

func (d *descriptiveDecoder) DecodePack() (PackDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	blob, err := d.readMarkerRun(MarkerPack)
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return newPackDecoder(d.cx, blob, d.opts), nil
}

func (d *descriptiveDecoder) Skip() error {
	if err := d.use(); err != nil {
		return err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	return d.finish(start, off, skipDescriptive(d.r, d.opts, 0))
}

type descriptiveSequenceDecoder struct {
	cx        *Context
	r         *Reader
	opts      Options
	length    int
	remaining int
	done      bool
}

func (s *descriptiveSequenceDecoder) Len() int {
	return s.length
}

func (s *descriptiveSequenceDecoder) DecodeNext() (Decoder, bool, error) {
	if s.done {
		return nil, false, usagef("sequence already ended")
	}
	if s.remaining == 0 {
		return nil, false, nil
	}
	s.remaining--
	return newDescriptiveDecoder(s.cx, s.r, s.opts), true, nil
}

func (s *descriptiveSequenceDecoder) End() error {
	if s.done {
		return usagef("sequence ended twice")
	}
	s.done = true
	off := s.r.Offset()
	for ; s.remaining > 0; s.remaining-- {
		if err := skipDescriptive(s.r, s.opts, 0); err != nil {
			s.cx.Advance(s.r.Offset() - off)
			return s.cx.Report(s.cx.Mark(), err)
		}
	}
	s.cx.Advance(s.r.Offset() - off)
	return nil
}

type descriptiveMapDecoder struct {
	cx        *Context
	r         *Reader
	opts      Options
	length    int
	remaining int
	inEntry   bool
	done      bool
}

func (m *descriptiveMapDecoder) Len() int {
	return m.length
}

func (m *descriptiveMapDecoder) DecodeKey() (Decoder, bool, error) {
	if m.done {
		return nil, false, usagef("map already ended")
	}
	if m.inEntry {
		return nil, false, usagef("map entry is missing its value")
	}
	if m.remaining == 0 {
		return nil, false, nil
	}
	m.remaining--
	m.inEntry = true
	return newDescriptiveDecoder(m.cx, m.r, m.opts), true, nil
}

func (m *descriptiveMapDecoder) DecodeValue() (Decoder, error) {
	if m.done {
		return nil, usagef("map already ended")
	}
	if !m.inEntry {
		return nil, usagef("map value without a key")
	}
	m.inEntry = false
	return newDescriptiveDecoder(m.cx, m.r, m.opts), nil
}

func (m *descriptiveMapDecoder) End() error {
	if m.done {
		return usagef("map ended twice")
	}
	if m.inEntry {
		return usagef("map ended inside an entry")
	}
	m.done = true
	off := m.r.Offset()
	for ; m.remaining > 0; m.remaining-- {
		err := skipDescriptive(m.r, m.opts, 0)
		if err == nil {
			err = skipDescriptive(m.r, m.opts, 0)
		}
		if err != nil {
			m.cx.Advance(m.r.Offset() - off)
			return m.cx.Report(m.cx.Mark(), err)
		}
	}
	m.cx.Advance(m.r.Offset() - off)
	return nil
}

type descriptiveStructDecoder struct {
	cx        *Context
	r         *Reader
	opts      Options
	length    int
	remaining int
	done      bool
}

func (s *descriptiveStructDecoder) Fields() int {
	return s.length
}

func (s *descriptiveStructDecoder) DecodeField() (FieldID, Decoder, bool, error) {
	if s.done {
		return FieldID{}, nil, false, usagef("struct already ended")
	}
	if s.remaining == 0 {
		return FieldID{}, nil, false, nil
	}
	s.remaining--
	start, off := s.cx.Mark(), s.r.Offset()
	id, err := s.readFieldID()
	s.cx.Advance(s.r.Offset() - off)
	if err != nil {
		return FieldID{}, nil, false, s.cx.Report(start, err)
	}
	return id, newDescriptiveDecoder(s.cx, s.r, s.opts), true, nil
}

// readFieldID decodes a field key: a prefix string in name mode, any
// numeric key otherwise.
func (s *descriptiveStructDecoder) readFieldID() (FieldID, error) {
	b, err := s.r.PeekByte()
	if err != nil {
		return FieldID{}, err
	}
	if Tag(b).Kind() == KindPrefix {
		_, v, err := readTag(s.r)
		if err != nil {
			return FieldID{}, err
		}
		name, err := s.r.ReadBytes(int(v))
		if err != nil {
			return FieldID{}, err
		}
		return FieldID{Name: string(name), Named: true}, nil
	}
	sub := newDescriptiveDecoder(s.cx, s.r, s.opts)
	n, err := sub.readNumber()
	if err != nil {
		return FieldID{}, err
	}
	idx, err := n.toUint(64)
	if err != nil {
		return FieldID{}, err
	}
	return FieldID{Index: idx}, nil
}

func (s *descriptiveStructDecoder) End() error {
	if s.done {
		return usagef("struct ended twice")
	}
	s.done = true
	off := s.r.Offset()
	for ; s.remaining > 0; s.remaining-- {
		err := skipDescriptive(s.r, s.opts, 0)
		if err == nil {
			err = skipDescriptive(s.r, s.opts, 0)
		}
		if err != nil {
			s.cx.Advance(s.r.Offset() - off)
			return s.cx.Report(s.cx.Mark(), err)
		}
	}
	s.cx.Advance(s.r.Offset() - off)
	return nil
}

type descriptiveVariantDecoder struct {
	cx       *Context
	r        *Reader
	opts     Options
	tagDone  bool
	valDone  bool
	finished bool
}

func (v *descriptiveVariantDecoder) DecodeTag() (Decoder, error) {
	if v.finished {
		return nil, usagef("variant already ended")
	}
	if v.tagDone {
		return nil, usagef("variant tag decoded twice")
	}
	v.tagDone = true
	return newDescriptiveDecoder(v.cx, v.r, v.opts), nil
}

func (v *descriptiveVariantDecoder) DecodeValue() (Decoder, error) {
	if v.finished {
		return nil, usagef("variant already ended")
	}
	if !v.tagDone {
		return nil, usagef("variant value before tag")
	}
	if v.valDone {
		return nil, usagef("variant value decoded twice")
	}
	v.valDone = true
	return newDescriptiveDecoder(v.cx, v.r, v.opts), nil
}

func (v *descriptiveVariantDecoder) End() error {
	if v.finished {
		return usagef("variant ended twice")
	}
	v.finished = true
	if !v.tagDone || !v.valDone {
		return usagef("variant ended before tag and value")
	}
	return nil
}
