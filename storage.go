package runic

import (
	"fmt"
	"math"
)

// checkStorageCount validates a framed count. Storage elements may be
// empty (unit is zero bytes), so the count is bounded only by the int
// range, not the remaining input.
func checkStorageCount(n uint64) (int, error) {
	if n > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: count %d does not fit int", ErrOverflow, n)
	}
	return int(n), nil
}

// The storage tier is the densest of the three formats: values are
// written with no per-field type framing at all. Lengths and counts
// use the options' length mode, integers the integer mode, and field
// identity the naming mode. The decoder must know the exact shape of
// the stream; unknown fields cannot be skipped (see Skip).

// ============================================================
// Storage Encoder
// ============================================================

type storageEncoder struct {
	cx   *Context
	w    Writer
	opts Options
	used bool
}

func newStorageEncoder(cx *Context, w Writer, opts Options) *storageEncoder {
	return &storageEncoder{cx: cx, w: w, opts: opts}
}

func (e *storageEncoder) use() error {
	if e.used {
		return usagef("storage encoder already consumed")
	}
	e.used = true
	return nil
}

func (e *storageEncoder) report(err error) error {
	if err == nil {
		return nil
	}
	return e.cx.Report(e.cx.Mark(), err)
}

// EncodeUnit writes nothing: unit occupies zero bytes in storage.
func (e *storageEncoder) EncodeUnit() error {
	return e.use()
}

func (e *storageEncoder) EncodeBool(v bool) error {
	if err := e.use(); err != nil {
		return err
	}
	b := byte(0)
	if v {
		b = 1
	}
	return e.report(e.w.WriteByte(b))
}

func (e *storageEncoder) EncodeUint8(v uint8) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeUint(e.w, e.opts, 8, uint64(v)))
}

func (e *storageEncoder) EncodeUint16(v uint16) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeUint(e.w, e.opts, 16, uint64(v)))
}

func (e *storageEncoder) EncodeUint32(v uint32) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeUint(e.w, e.opts, 32, uint64(v)))
}

func (e *storageEncoder) EncodeUint64(v uint64) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeUint(e.w, e.opts, 64, v))
}

func (e *storageEncoder) EncodeInt8(v int8) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeInt(e.w, e.opts, 8, int64(v)))
}

func (e *storageEncoder) EncodeInt16(v int16) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeInt(e.w, e.opts, 16, int64(v)))
}

func (e *storageEncoder) EncodeInt32(v int32) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeInt(e.w, e.opts, 32, int64(v)))
}

func (e *storageEncoder) EncodeInt64(v int64) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeInt(e.w, e.opts, 64, v))
}

func (e *storageEncoder) EncodeFloat32(v float32) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeFloat32(e.w, e.opts, v))
}

func (e *storageEncoder) EncodeFloat64(v float64) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.report(writeFloat64(e.w, e.opts, v))
}

func (e *storageEncoder) EncodeString(v string) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeLength(e.w, e.opts, uint64(len(v))); err != nil {
		return e.report(err)
	}
	return e.report(e.w.WriteString(v))
}

func (e *storageEncoder) EncodeBytes(v []byte) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := writeLength(e.w, e.opts, uint64(len(v))); err != nil {
		return e.report(err)
	}
	return e.report(e.w.Write(v))
}

func (e *storageEncoder) EncodeSequence(n int) (SequenceEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, usagef("negative sequence length %d", n)
	}
	if err := writeLength(e.w, e.opts, uint64(n)); err != nil {
		return nil, e.report(err)
	}
	return &storageSequenceEncoder{cx: e.cx, w: e.w, opts: e.opts, remaining: n}, nil
}

func (e *storageEncoder) EncodeMap(n int) (MapEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, usagef("negative map length %d", n)
	}
	if err := writeLength(e.w, e.opts, uint64(n)); err != nil {
		return nil, e.report(err)
	}
	return &storageMapEncoder{cx: e.cx, w: e.w, opts: e.opts, remaining: n}, nil
}

func (e *storageEncoder) EncodeStruct(n int) (StructEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, usagef("negative field count %d", n)
	}
	if err := writeLength(e.w, e.opts, uint64(n)); err != nil {
		return nil, e.report(err)
	}
	return &storageStructEncoder{cx: e.cx, w: e.w, opts: e.opts, remaining: n}, nil
}

func (e *storageEncoder) EncodeVariant() (VariantEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	return &storageVariantEncoder{cx: e.cx, w: e.w, opts: e.opts}, nil
}

func (e *storageEncoder) EncodePack() (PackEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	return newPackEncoder(e.cx, e.opts, func(blob []byte) error {
		if err := writeLength(e.w, e.opts, uint64(len(blob))); err != nil {
			return err
		}
		return e.w.Write(blob)
	})
}

type storageSequenceEncoder struct {
	cx        *Context
	w         Writer
	opts      Options
	remaining int
	done      bool
}

func (s *storageSequenceEncoder) EncodeNext() (Encoder, error) {
	if s.done {
		return nil, usagef("sequence already ended")
	}
	if s.remaining == 0 {
		return nil, usagef("sequence is full")
	}
	s.remaining--
	return newStorageEncoder(s.cx, s.w, s.opts), nil
}

func (s *storageSequenceEncoder) End() error {
	if s.done {
		return usagef("sequence ended twice")
	}
	s.done = true
	if s.remaining != 0 {
		return usagef("sequence ended with %d elements missing", s.remaining)
	}
	return nil
}

type storageMapEncoder struct {
	cx        *Context
	w         Writer
	opts      Options
	remaining int
	inEntry   bool
	done      bool
}

func (m *storageMapEncoder) EncodeKey() (Encoder, error) {
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
	return newStorageEncoder(m.cx, m.w, m.opts), nil
}

func (m *storageMapEncoder) EncodeValue() (Encoder, error) {
	if m.done {
		return nil, usagef("map already ended")
	}
	if !m.inEntry {
		return nil, usagef("map value without a key")
	}
	m.inEntry = false
	return newStorageEncoder(m.cx, m.w, m.opts), nil
}

func (m *storageMapEncoder) End() error {
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

type storageStructEncoder struct {
	cx        *Context
	w         Writer
	opts      Options
	remaining int
	done      bool
}

func (s *storageStructEncoder) EncodeField(name string, index uint64) (Encoder, error) {
	if s.done {
		return nil, usagef("struct already ended")
	}
	if s.remaining == 0 {
		return nil, usagef("struct is full")
	}
	s.remaining--
	if s.opts.Naming == FieldName {
		if err := writeLength(s.w, s.opts, uint64(len(name))); err != nil {
			return nil, s.cx.Report(s.cx.Mark(), err)
		}
		if err := s.w.WriteString(name); err != nil {
			return nil, s.cx.Report(s.cx.Mark(), err)
		}
	} else {
		if err := writeContinuation(s.w, index); err != nil {
			return nil, s.cx.Report(s.cx.Mark(), err)
		}
	}
	return newStorageEncoder(s.cx, s.w, s.opts), nil
}

func (s *storageStructEncoder) End() error {
	if s.done {
		return usagef("struct ended twice")
	}
	s.done = true
	if s.remaining != 0 {
		return usagef("struct ended with %d fields missing", s.remaining)
	}
	return nil
}

type storageVariantEncoder struct {
	cx       *Context
	w        Writer
	opts     Options
	tagDone  bool
	valDone  bool
	finished bool
}

func (v *storageVariantEncoder) EncodeTag() (Encoder, error) {
	if v.finished {
		return nil, usagef("variant already ended")
	}
	if v.tagDone {
		return nil, usagef("variant tag encoded twice")
	}
	v.tagDone = true
	return newStorageEncoder(v.cx, v.w, v.opts), nil
}

func (v *storageVariantEncoder) EncodeValue() (Encoder, error) {
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
	return newStorageEncoder(v.cx, v.w, v.opts), nil
}

func (v *storageVariantEncoder) End() error {
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
// Storage Decoder
// ============================================================

type storageDecoder struct {
	cx   *Context
	r    *Reader
	opts Options
	used bool
}

func newStorageDecoder(cx *Context, r *Reader, opts Options) *storageDecoder {
	return &storageDecoder{cx: cx, r: r, opts: opts}
}

func (d *storageDecoder) use() error {
	if d.used {
		return usagef("storage decoder already consumed")
	}
	d.used = true
	return nil
}

// finish advances the diagnostic mark by the bytes consumed since off
// and reports err against the byte range starting at start.
func (d *storageDecoder) finish(start, off int, err error) error {
	d.cx.Advance(d.r.Offset() - off)
	if err != nil {
		return d.cx.Report(start, err)
	}
	return nil
}

func (d *storageDecoder) DecodeUnit() error {
	return d.use()
}

func (d *storageDecoder) DecodeBool() (bool, error) {
	if err := d.use(); err != nil {
		return false, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	b, err := d.r.ReadByte()
	if err == nil && b > 1 {
		err = fmt.Errorf("%w: byte 0x%02x is not a boolean", ErrUnexpectedTag, b)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return false, ferr
	}
	return b == 1, nil
}

func (d *storageDecoder) decodeUint(bits uint) (uint64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	v, err := readUint(d.r, d.opts, bits)
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return v, nil
}

func (d *storageDecoder) DecodeUint8() (uint8, error) {
	v, err := d.decodeUint(8)
	return uint8(v), err
}

func (d *storageDecoder) DecodeUint16() (uint16, error) {
	v, err := d.decodeUint(16)
	return uint16(v), err
}

func (d *storageDecoder) DecodeUint32() (uint32, error) {
	v, err := d.decodeUint(32)
	return uint32(v), err
}

func (d *storageDecoder) DecodeUint64() (uint64, error) {
	return d.decodeUint(64)
}

func (d *storageDecoder) decodeInt(bits uint) (int64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	v, err := readInt(d.r, d.opts, bits)
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return v, nil
}

func (d *storageDecoder) DecodeInt8() (int8, error) {
	v, err := d.decodeInt(8)
	return int8(v), err
}

func (d *storageDecoder) DecodeInt16() (int16, error) {
	v, err := d.decodeInt(16)
	return int16(v), err
}

func (d *storageDecoder) DecodeInt32() (int32, error) {
	v, err := d.decodeInt(32)
	return int32(v), err
}

func (d *storageDecoder) DecodeInt64() (int64, error) {
	return d.decodeInt(64)
}

func (d *storageDecoder) DecodeFloat32() (float32, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	v, err := readFloat32(d.r, d.opts)
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return v, nil
}

func (d *storageDecoder) DecodeFloat64() (float64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	v, err := readFloat64(d.r, d.opts)
	if ferr := d.finish(start, off, err); ferr != nil {
		return 0, ferr
	}
	return v, nil
}

func (d *storageDecoder) readRun() ([]byte, error) {
	n, err := readLength(d.r, d.opts)
	if err != nil {
		return nil, err
	}
	return d.r.ReadBytes(int(n))
}

func (d *storageDecoder) DecodeString() (string, error) {
	if err := d.use(); err != nil {
		return "", err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	b, err := d.readRun()
	if ferr := d.finish(start, off, err); ferr != nil {
		return "", ferr
	}
	return string(b), nil
}

func (d *storageDecoder) DecodeBytes() ([]byte, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	b, err := d.readRun()
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return b, nil
}

func (d *storageDecoder) DecodeSequence() (SequenceDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := readLength(d.r, d.opts)
	var count int
	if err == nil {
		count, err = checkStorageCount(n)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &storageSequenceDecoder{cx: d.cx, r: d.r, opts: d.opts, length: count, remaining: count}, nil
}

func (d *storageDecoder) DecodeMap() (MapDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := readLength(d.r, d.opts)
	var count int
	if err == nil {
		count, err = checkStorageCount(n)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &storageMapDecoder{cx: d.cx, r: d.r, opts: d.opts, length: count, remaining: count}, nil
}

func (d *storageDecoder) DecodeStruct() (StructDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	n, err := readLength(d.r, d.opts)
	var count int
	if err == nil {
		count, err = checkStorageCount(n)
	}
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return &storageStructDecoder{cx: d.cx, r: d.r, opts: d.opts, length: count, remaining: count}, nil
}

func (d *storageDecoder) DecodeVariant() (VariantDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	return &storageVariantDecoder{cx: d.cx, r: d.r, opts: d.opts}, nil
}

func (d *storageDecoder) DecodePack() (PackDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	start, off := d.cx.Mark(), d.r.Offset()
	blob, err := d.readRun()
	if ferr := d.finish(start, off, err); ferr != nil {
		return nil, ferr
	}
	return newPackDecoder(d.cx, blob, d.opts), nil
}

// Skip always fails: storage values carry no framing that would make
// them syntactically skippable.
func (d *storageDecoder) Skip() error {
	if err := d.use(); err != nil {
		return err
	}
	return d.cx.Report(d.cx.Mark(),
		fmt.Errorf("%w: storage values cannot be skipped", ErrUnexpectedField))
}

type storageSequenceDecoder struct {
	cx        *Context
	r         *Reader
	opts      Options
	length    int
	remaining int
	done      bool
}

func (s *storageSequenceDecoder) Len() int {
	return s.length
}

func (s *storageSequenceDecoder) DecodeNext() (Decoder, bool, error) {
	if s.done {
		return nil, false, usagef("sequence already ended")
	}
	if s.remaining == 0 {
		return nil, false, nil
	}
	s.remaining--
	return newStorageDecoder(s.cx, s.r, s.opts), true, nil
}

// End fails while elements remain unread: without type framing the
// decoder cannot step over them.
func (s *storageSequenceDecoder) End() error {
	if s.done {
		return usagef("sequence ended twice")
	}
	s.done = true
	if s.remaining != 0 {
		return s.cx.Report(s.cx.Mark(),
			fmt.Errorf("%w: %d unread sequence elements", ErrUnexpectedField, s.remaining))
	}
	return nil
}

type storageMapDecoder struct {
	cx        *Context
	r         *Reader
	opts      Options
	length    int
	remaining int
	inEntry   bool
	done      bool
}

func (m *storageMapDecoder) Len() int {
	return m.length
}

func (m *storageMapDecoder) DecodeKey() (Decoder, bool, error) {
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
	return newStorageDecoder(m.cx, m.r, m.opts), true, nil
}

func (m *storageMapDecoder) DecodeValue() (Decoder, error) {
	if m.done {
		return nil, usagef("map already ended")
	}
	if !m.inEntry {
		return nil, usagef("map value without a key")
	}
	m.inEntry = false
	return newStorageDecoder(m.cx, m.r, m.opts), nil
}

func (m *storageMapDecoder) End() error {
	if m.done {
		return usagef("map ended twice")
	}
	m.done = true
	if m.inEntry {
		return usagef("map ended inside an entry")
	}
	if m.remaining != 0 {
		return m.cx.Report(m.cx.Mark(),
			fmt.Errorf("%w: %d unread map entries", ErrUnexpectedField, m.remaining))
	}
	return nil
}

type storageStructDecoder struct {
	cx        *Context
	r         *Reader
	opts      Options
	length    int
	remaining int
	done      bool
}

func (s *storageStructDecoder) Fields() int {
	return s.length
}

func (s *storageStructDecoder) DecodeField() (FieldID, Decoder, bool, error) {
	if s.done {
		return FieldID{}, nil, false, usagef("struct already ended")
	}
	if s.remaining == 0 {
		return FieldID{}, nil, false, nil
	}
	s.remaining--
	start, off := s.cx.Mark(), s.r.Offset()
	var id FieldID
	var err error
	if s.opts.Naming == FieldName {
		var n uint64
		n, err = readLength(s.r, s.opts)
		if err == nil {
			var b []byte
			b, err = s.r.ReadBytes(int(n))
			id = FieldID{Name: string(b), Named: true}
		}
	} else {
		id.Index, err = readContinuation(s.r, 64)
	}
	s.cx.Advance(s.r.Offset() - off)
	if err != nil {
		return FieldID{}, nil, false, s.cx.Report(start, err)
	}
	return id, newStorageDecoder(s.cx, s.r, s.opts), true, nil
}

func (s *storageStructDecoder) End() error {
	if s.done {
		return usagef("struct ended twice")
	}
	s.done = true
	if s.remaining != 0 {
		return s.cx.Report(s.cx.Mark(),
			fmt.Errorf("%w: %d unread struct fields", ErrUnexpectedField, s.remaining))
	}
	return nil
}

type storageVariantDecoder struct {
	cx       *Context
	r        *Reader
	opts     Options
	tagDone  bool
	valDone  bool
	finished bool
}

func (v *storageVariantDecoder) DecodeTag() (Decoder, error) {
	if v.finished {
		return nil, usagef("variant already ended")
	}
	if v.tagDone {
		return nil, usagef("variant tag decoded twice")
	}
	v.tagDone = true
	return newStorageDecoder(v.cx, v.r, v.opts), nil
}

func (v *storageVariantDecoder) DecodeValue() (Decoder, error) {
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
	return newStorageDecoder(v.cx, v.r, v.opts), nil
}

func (v *storageVariantDecoder) End() error {
	if v.finished {
		return usagef("variant ended twice")
	}
	v.finished = true
	if !v.tagDone || !v.valDone {
		return usagef("variant ended before tag and value")
	}
	return nil
}
