package runic

import (
	"fmt"
	"math"
)

// The wire tier frames every value with a tag carrying enough
// kind+length information to skip the payload without interpreting it,
// which makes streams fully upgrade-stable in both directions: readers
// step over fields they do not know and default fields the stream does
// not carry.
//
// Value layout:
//
//	bool            Continuation 0/1
//	uintN variable  Continuation value
//	uintN fixed     Prefix(N/8) + raw image
//	intN            as uintN after zigzag
//	float32/64      Prefix(4/8) + IEEE image
//	string/bytes    Prefix(len) + bytes
//	unit            Sequence(0)
//	sequence        Sequence(n) + n values
//	map             Sequence(2n) + alternating key/value
//	struct          Sequence(2n) + alternating field-id/value
//	variant         Sequence(2) + tag value + payload value
//	pack            Prefix(len) + blob

// ============================================================
// Wire Encoder
// ============================================================

type wireEncoder struct {
	cx   *Context
	w    Writer
	opts Options
	used bool
}

func newWireEncoder(cx *Context, w Writer, opts Options) *wireEncoder {
	return &wireEncoder{cx: cx, w: w, opts: opts}
}

func (e *wireEncoder) use() error {
	if e.used {
		return usagef("wire encoder already consumed")
	}
	e.used = true
	return nil
}

func (e *wireEncoder) report(err error) error {
	if err == nil {
		return nil
	}
	return e.cx.Report(e.cx.Mark(), err)
}

// encodeUint routes an unsigned value per the integer mode: a
// continuation tag in variable mode, a prefix-framed raw image in
// fixed mode.
func (e *wireEncoder) encodeUint(bits uint, v uint64) error {
	if e.opts.Integer == IntegerFixed {
		width := int(bits / 8)
		if err := writeTag(e.w, KindPrefix, uint64(width)); err != nil {
			return e.report(err)
		}
		return e.report(writeFixed(e.w, e.opts.Order.order(), v, width))
	}
	return e.report(writeTag(e.w, KindContinuation, v))
}

func (e *wireEncoder) EncodeUnit() error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeTag(e.w, KindSequence, 0))
}

func (e *wireEncoder) EncodeBool(v bool) error {
	if err := e.use(); err != nil {
		return err
	}
	var u uint64
	if v {
		u = 1
	}
	return e.report(writeTag(e.w, KindContinuation, u))
}

func (e *wireEncoder) EncodeUint8(v uint8) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(8, uint64(v))
}

func (e *wireEncoder) EncodeUint16(v uint16) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(16, uint64(v))
}

func (e *wireEncoder) EncodeUint32(v uint32) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(32, uint64(v))
}

func (e *wireEncoder) EncodeUint64(v uint64) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(64, v)
}

func (e *wireEncoder) EncodeInt8(v int8) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(8, zigzag(int64(v))&0xff)
}

func (e *wireEncoder) EncodeInt16(v int16) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(16, zigzag(int64(v))&0xffff)
}

func (e *wireEncoder) EncodeInt32(v int32) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(32, zigzag(int64(v))&0xffffffff)
}

func (e *wireEncoder) EncodeInt64(v int64) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.encodeUint(64, zigzag(v))
}

func (e *wireEncoder) EncodeFloat32(v float32) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeTag(e.w, KindPrefix, 4); err != nil {
		return e.report(err)
	}
	return e.report(writeFloat32(e.w, e.opts, v))
}

func (e *wireEncoder) EncodeFloat64(v float64) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeTag(e.w, KindPrefix, 8); err != nil {
		return e.report(err)
	}
	return e.report(writeFloat64(e.w, e.opts, v))
}

func (e *wireEncoder) EncodeString(v string) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeTag(e.w, KindPrefix, uint64(len(v))); err != nil {
		return e.report(err)
	}
	return e.report(e.w.WriteString(v))
}

func (e *wireEncoder) EncodeBytes(v []byte) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeTag(e.w, KindPrefix, uint64(len(v))); err != nil {
		return e.report(err)
	}
	return e.report(e.w.Write(v))
}

func (e *wireEncoder) EncodeSequence(n int) (SequenceEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, usagef("negative sequence length %d", n)
	}
	if err := writeTag(e.w, KindSequence, uint64(n)); err != nil {
		return nil, e.report(err)
	}
	return &wireSequenceEncoder{cx: e.cx, w: e.w, opts: e.opts, remaining: n}, nil
}

func (e *wireEncoder) EncodeMap(n int) (MapEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, usagef("negative map length %d", n)
	}
	if err := writeTag(e.w, KindSequence, uint64(2*n)); err != nil {
		return nil, e.report(err)
	}
	return &wireMapEncoder{cx: e.cx, w: e.w, opts: e.opts, remaining: n}, nil
}

func (e *wireEncoder) EncodeStruct(n int) (StructEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, usagef("negative field count %d", n)
	}
	if err := writeTag(e.w, KindSequence, uint64(2*n)); err != nil {
		return nil, e.report(err)
	}
	return &wireStructEncoder{cx: e.cx, w: e.w, opts: e.opts, remaining: n}, nil
}

func (e *wireEncoder) EncodeVariant() (VariantEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if err := writeTag(e.w, KindSequence, 2); err != nil {
		return nil, e.report(err)
	}
	return &wireVariantEncoder{cx: e.cx, w: e.w, opts: e.opts}, nil
}

func (e *wireEncoder) EncodePack() (PackEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	return newPackEncoder(e.cx, e.opts, func(blob []byte) error {
		if err := writeTag(e.w, KindPrefix, uint64(len(blob))); err != nil {
			return err
		}
		return e.w.Write(blob)
	})
}

type wireSequenceEncoder struct {
	cx        *Context
	w         Writer
	opts      Options
	remaining int
	done      bool
}

func (s *wireSequenceEncoder) EncodeNext() (Encoder, error) {
	if s.done {
		return nil, usagef("sequence already ended")
	}
	if s.remaining == 0 {
		return nil, usagef("sequence is full")
	}
	s.remaining--
	return newWireEncoder(s.cx, s.w, s.opts), nil
}

func (s *wireSequenceEncoder) End() error {
	if s.done {
		return usagef("sequence ended twice")
	}
	s.done = true
	if s.remaining != 0 {
		return usagef("sequence ended with %d elements missing", s.remaining)
	}
	return nil
}

type wireMapEncoder struct {
	cx        *Context
	w         Writer
	opts      Options
	remaining int
	inEntry   bool
	done      bool
}

func (m *wireMapEncoder) EncodeKey() (Encoder, error) {
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
	return newWireEncoder(m.cx, m.w, m.opts), nil
}

func (m *wireMapEncoder) EncodeValue() (Encoder, error) {
	if m.done {
		return nil, usagef("map already ended")
	}
	if !m.inEntry {
		return nil, usagef("map value without a key")
	}
	m.inEntry = false
	return newWireEncoder(m.cx, m.w, m.opts), nil
}

func (m *wireMapEncoder) End() error {
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

type wireStructEncoder struct {
	cx        *Context
	w         Writer
	opts      Options
	remaining int
	done      bool
}

func (s *wireStructEncoder) EncodeField(name string, index uint64) (Encoder, error) {
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
	return newWireEncoder(s.cx, s.w, s.opts), nil
}

func (s *wireStructEncoder) End() error {
	if s.done {
		return usagef("struct ended twice")
	}
	s.done = true
	if s.remaining != 0 {
		return usagef("struct ended with %d fields missing", s.remaining)
	}
	return nil
}

type wireVariantEncoder struct {
	cx       *Context
	w        Writer
	opts     Options
	tagDone  bool
	valDone  bool
	finished bool
}

func (v *wireVariantEncoder) EncodeTag() (Encoder, error) {
	if v.finished {
		return nil, usagef("variant already ended")
	}
	if v.tagDone {
		return nil, usagef("variant tag encoded twice")
	}
	v.tagDone = true
	return newWireEncoder(v.cx, v.w, v.opts), nil
}

func (v *wireVariantEncoder) EncodeValue() (Encoder, error) {
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
	return newWireEncoder(v.cx, v.w, v.opts), nil
}

func (v *wireVariantEncoder) End() error {
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
// Wire Decoder
// ============================================================

// skipWire steps over one wire value using only tag and length
// information. It never interprets payload bytes.
func skipWire(r *Reader, depth int) error {
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
			if err := skipWire(r, depth+1); err != nil {
				return err
			}
		}
		return nil
	case KindContinuation:
		// Value was embedded in the tag or its escape; nothing follows.
		return nil
	default:
		return fmt.Errorf("%w: kind %s has no meaning in the wire tier", ErrUnexpectedKind, k)
	}
}

type wireDecoder struct {
	cx   *Context
	r    *Reader
	opts Options
	used bool
}

func newWireDecoder(cx *Context, r *Reader, opts Options) *wireDecoder {
	return &wireDecoder{cx: cx, r: r, opts: opts}
}

func (d *wireDecoder) use() error {
	if d.used {
		return usagef("wire decoder already consumed")
	}
	d.used = true
	return nil
}

func (d *wireDecoder) finish(start, off int, err error) error {
	d.cx.Advance(d.r.Offset() - off)
	if err != nil {
		return d.cx.Report(start, err)
	}
	return nil
}

// decodeUint reads an unsigned value per the integer mode and checks
// it against the target width.
func (d *wireDecoder) decodeUint(bits uint) (uint64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	v, err := d.readUint(bits)
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return v, nil
}

func (d *wireDecoder) readUint(bits uint) (uint64, error) {
	k, v, err := readTag(d.r)
	if err != nil {
		return 0, err
	}
	if d.opts.Integer == IntegerFixed {
		width := int(bits / 8)
		if k != KindPrefix || int(v) != width {
			return 0, fmt.Errorf("%w: expected %d-byte prefix, got %s(%d)", ErrUnexpectedTag, width, k, v)
		}
		return readFixed(d.r, d.opts.Order.order(), width)
	}
	if k != KindContinuation {
		return 0, fmt.Errorf("%w: expected continuation, got %s(%d)", ErrUnexpectedTag, k, v)
	}
	if !fitsUint(v, bits) {
		return 0, fmt.Errorf("%w: value %d exceeds %d bits", ErrBitsOverflow, v, bits)
	}
	return v, nil
}

func (d *wireDecoder) DecodeUnit() error {
	if err := d.use(); err != nil {
		return err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	k, v, err := readTag(d.r)
	if err == nil && (k != KindSequence || v != 0) {
		err = fmt.Errorf("%w: expected empty sequence, got %s(%d)", ErrUnexpectedTag, k, v)
	}
	return d.finish(start, off, err)
}

func (d *wireDecoder) DecodeBool() (bool, error) {
	if err := d.use(); err != nil {
		return false, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	k, v, err := readTag(d.r)
	if err == nil {
		if k != KindContinuation || v > 1 {
			err = fmt.Errorf("%w: expected boolean continuation, got %s(%d)", ErrUnexpectedTag, k, v)
		}
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return false, ferr
	}
	return v == 1, nil
}

func (d *wireDecoder) DecodeUint8() (uint8, error) {
	v, err := d.decodeUint(8)
	return uint8(v), err
}

func (d *wireDecoder) DecodeUint16() (uint16, error) {
	v, err := d.decodeUint(16)
	return uint16(v), err
}

func (d *wireDecoder) DecodeUint32() (uint32, error) {
	v, err := d.decodeUint(32)
	return uint32(v), err
}

func (d *wireDecoder) DecodeUint64() (uint64, error) {
	return d.decodeUint(64)
}

func (d *wireDecoder) decodeInt(bits uint) (int64, error) {
	u, err := d.decodeUint(bits)
	if err != nil {
		return 0, err
	}
	// Unzigzag at the stored width: sign-extend the width-local result.
	v := unzigzag(u)
	if bits < 64 {
		shift := 64 - bits
		v = v << shift >> shift
	}
	return v, nil
}

func (d *wireDecoder) DecodeInt8() (int8, error) {
	v, err := d.decodeInt(8)
	return int8(v), err
}

func (d *wireDecoder) DecodeInt16() (int16, error) {
	v, err := d.decodeInt(16)
	return int16(v), err
}

func (d *wireDecoder) DecodeInt32() (int32, error) {
	v, err := d.decodeInt(32)
	return int32(v), err
}

func (d *wireDecoder) DecodeInt64() (int64, error) {
	return d.decodeInt(64)
}

// readPrefix consumes a prefix tag and returns the framed bytes.
func (d *wireDecoder) readPrefix() ([]byte, error) {
	k, v, err := readTag(d.r)
	if err != nil {
		return nil, err
	}
	if k != KindPrefix {
		return nil, fmt.Errorf("%w: expected prefix, got %s(%d)", ErrUnexpectedTag, k, v)
	}
	return d.r.ReadBytes(int(v))
}

func (d *wireDecoder) DecodeFloat32() (float32, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	b, err := d.readPrefix()
	if err == nil && len(b) != 4 {
		err = fmt.Errorf("%w: expected 4-byte float image, got %d", ErrUnexpectedTag, len(b))
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return math.Float32frombits(d.opts.Order.order().Uint32(b)), nil
}

func (d *wireDecoder) DecodeFloat64() (float64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	b, err := d.readPrefix()
	if err == nil && len(b) != 8 {
		err = fmt.Errorf("%w: expected 8-byte float image, got %d", ErrUnexpectedTag, len(b))
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return math.Float64frombits(d.opts.Order.order().Uint64(b)), nil
}

func (d *wireDecoder) DecodeString() (string, error) {
	if err := d.use(); err != nil {
		return "", err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	b, err := d.readPrefix()
	if ferr := d.finish(start, off, err); ferr != nil {
		return "", ferr
	}
	return string(b), nil
}

func (d *wireDecoder) DecodeBytes() ([]byte, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	b, err := d.readPrefix()
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return b, nil
}

// readSequence consumes a sequence tag and returns its entry count.
func (d *wireDecoder) readSequence() (int, error) {
	k, v, err := readTag(d.r)
	if err != nil {
		return 0, err
	}
	if k != KindSequence {
		return 0, fmt.Errorf("%w: expected sequence, got %s(%d)", ErrUnexpectedTag, k, v)
	}
	return checkCount(d.r, v)
}

func (d *wireDecoder) DecodeSequence() (SequenceDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readSequence()
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &wireSequenceDecoder{cx: d.cx, r: d.r, opts: d.opts, length: n, remaining: n}, nil
}

func (d *wireDecoder) DecodeMap() (MapDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readSequence()
	if err == nil && n%2 != 0 {
		err = fmt.Errorf("%w: map framed with odd entry count %d", ErrUnexpectedTag, n)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &wireMapDecoder{cx: d.cx, r: d.r, opts: d.opts, length: n / 2, remaining: n / 2}, nil
}

func (d *wireDecoder) DecodeStruct() (StructDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readSequence()
	if err == nil && n%2 != 0 {
		err = fmt.Errorf("%w: struct framed with odd entry count %d", ErrUnexpectedTag, n)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &wireStructDecoder{cx: d.cx, r: d.r, opts: d.opts, length: n / 2, remaining: n / 2}, nil
}

func (d *wireDecoder) DecodeVariant() (VariantDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := d.readSequence()
	if err == nil && n != 2 {
		err = fmt.Errorf("%w: variant framed with %d entries, want 2", ErrUnexpectedTag, n)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &wireVariantDecoder{cx: d.cx, r: d.r, opts: d.opts}, nil
}

func (d *wireDecoder) DecodePack() (PackDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	blob, err := d.readPrefix()
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return newPackDecoder(d.cx, blob, d.opts), nil
}

// Skip steps over the value without materializing it.
func (d *wireDecoder) Skip() error {
	if err := d.use(); err != nil {
		return err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	return d.finish(start, off, skipWire(d.r, 0))
}

type wireSequenceDecoder struct {
	cx        *Context
	r         *Reader
	opts      Options
	length    int
	remaining int
	done      bool
}

func (s *wireSequenceDecoder) Len() int {
	return s.length
}

func (s *wireSequenceDecoder) DecodeNext() (Decoder, bool, error) {
	if s.done {
		return nil, false, usagef("sequence already ended")
	}
	if s.remaining == 0 {
		return nil, false, nil
	}
	s.remaining--
	return newWireDecoder(s.cx, s.r, s.opts), true, nil
}

// End skips any unread elements so old readers step over new trailing
// data without interpreting it.
func (s *wireSequenceDecoder) End() error {
	if s.done {
		return usagef("sequence ended twice")
	}
	s.done = true
	off := s.r.Offset()
	for ; s.remaining > 0; s.remaining-- {
		if err := skipWire(s.r, 0); err != nil {
			s.cx.Advance(s.r.Offset() - off)
			return s.cx.Report(s.cx.Mark(), err)
		}
	}
	s.cx.Advance(s.r.Offset() - off)
	return nil
}

type wireMapDecoder struct {
	cx        *Context
	r         *Reader
	opts      Options
	length    int
	remaining int
	inEntry   bool
	done      bool
}

func (m *wireMapDecoder) Len() int {
	return m.length
}

func (m *wireMapDecoder) DecodeKey() (Decoder, bool, error) {
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
	return newWireDecoder(m.cx, m.r, m.opts), true, nil
}

func (m *wireMapDecoder) DecodeValue() (Decoder, error) {
	if m.done {
		return nil, usagef("map already ended")
	}
	if !m.inEntry {
		return nil, usagef("map value without a key")
	}
	m.inEntry = false
	return newWireDecoder(m.cx, m.r, m.opts), nil
}

func (m *wireMapDecoder) End() error {
	if m.done {
		return usagef("map ended twice")
	}
	if m.inEntry {
		return usagef("map ended inside an entry")
	}
	m.done = true
	off := m.r.Offset()
	for ; m.remaining > 0; m.remaining-- {
		err := skipWire(m.r, 0)
		if err == nil {
			err = skipWire(m.r, 0)
		}
		if err != nil {
			m.cx.Advance(m.r.Offset() - off)
			return m.cx.Report(m.cx.Mark(), err)
		}
	}
	m.cx.Advance(m.r.Offset() - off)
	return nil
}

type wireStructDecoder struct {
	cx        *Context
	r         *Reader
	opts      Options
	length    int
	remaining int
	done      bool
}

func (s *wireStructDecoder) Fields() int {
	return s.length
}

func (s *wireStructDecoder) DecodeField() (FieldID, Decoder, bool, error) {
	if s.done {
		return FieldID{}, nil, false, usagef("struct already ended")
	}
	if s.remaining == 0 {
		return FieldID{}, nil, false, nil
	}
	s.remaining--
	start, off := s.cx.Mark(), s.r.Offset()
	k, v, err := readTag(s.r)
	var id FieldID
	if err == nil {
		switch k {
		case KindContinuation:
			id.Index = v
		case KindPrefix:
			var b []byte
			b, err = s.r.ReadBytes(int(v))
			id = FieldID{Name: string(b), Named: true}
		default:
			err = fmt.Errorf("%w: field identity framed as %s(%d)", ErrUnexpectedTag, k, v)
		}
	}
	s.cx.Advance(s.r.Offset() - off)
	if err != nil {
		return FieldID{}, nil, false, s.cx.Report(start, err)
	}
	return id, newWireDecoder(s.cx, s.r, s.opts), true, nil
}

// End skips any unread field pairs: old readers step over fields that
// newer writers added.
func (s *wireStructDecoder) End() error {
	if s.done {
		return usagef("struct ended twice")
	}
	s.done = true
	off := s.r.Offset()
	for ; s.remaining > 0; s.remaining-- {
		if err := skipWire(s.r, 0); err != nil {
			s.cx.Advance(s.r.Offset() - off)
			return s.cx.Report(s.cx.Mark(), err)
		}
		if err := skipWire(s.r, 0); err != nil {
			s.cx.Advance(s.r.Offset() - off)
			return s.cx.Report(s.cx.Mark(), err)
		}
	}
	s.cx.Advance(s.r.Offset() - off)
	return nil
}

type wireVariantDecoder struct {
	cx       *Context
	r        *Reader
	opts     Options
	tagDone  bool
	valDone  bool
	finished bool
}

func (v *wireVariantDecoder) DecodeTag() (Decoder, error) {
	if v.finished {
		return nil, usagef("variant already ended")
	}
	if v.tagDone {
		return nil, usagef("variant tag decoded twice")
	}
	v.tagDone = true
	return newWireDecoder(v.cx, v.r, v.opts), nil
}

func (v *wireVariantDecoder) DecodeValue() (Decoder, error) {
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
	return newWireDecoder(v.cx, v.r, v.opts), nil
}

func (v *wireVariantDecoder) End() error {
	if v.finished {
		return usagef("variant ended twice")
	}
	v.finished = true
	if !v.tagDone || !v.valDone {
		return usagef("variant ended before tag and value")
	}
	return nil
}
