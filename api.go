package runic

import (
	"io"
)

// ============================================================
// Encodings
// ============================================================

// An Encoding binds one of the three formats to an immutable Options
// bundle. Encodings are cheap values; the Default* variables cover the
// common cases and WithOptions derives customized ones.
type Encoding struct {
	format format
	opts   Options
}

type format uint8

const (
	formatStorage format = iota
	formatWire
	formatDescriptive
)

// String returns the format name.
func (f format) String() string {
	switch f {
	case formatStorage:
		return "storage"
	case formatWire:
		return "wire"
	case formatDescriptive:
		return "descriptive"
	default:
		return "unknown"
	}
}

var (
	// DefaultStorage is the dense storage format with default
	// options. Fields carry no type framing; reader and writer must
	// agree on the schema exactly.
	DefaultStorage = Encoding{format: formatStorage, opts: DefaultOptions()}

	// DefaultWire is the tag-framed wire format with default
	// options. Unknown fields skip, so schemas can grow.
	DefaultWire = Encoding{format: formatWire, opts: DefaultOptions()}

	// DefaultDescriptive is the self-describing format with default
	// options. Streams decode without a schema and numbers coerce.
	DefaultDescriptive = Encoding{format: formatDescriptive, opts: DefaultOptions()}
)

// Storage returns a storage encoding with the given options.
func Storage(opts Options) Encoding {
	return Encoding{format: formatStorage, opts: opts}
}

// Wire returns a wire encoding with the given options.
func Wire(opts Options) Encoding {
	return Encoding{format: formatWire, opts: opts}
}

// Descriptive returns a descriptive encoding with the given options.
func Descriptive(opts Options) Encoding {
	return Encoding{format: formatDescriptive, opts: opts}
}

// Options returns the option bundle the encoding was built with.
func (e Encoding) Options() Options {
	return e.opts
}

// Format returns the format name: "storage", "wire" or "descriptive".
func (e Encoding) Format() string {
	return e.format.String()
}

// NewEncoder returns a fresh value encoder writing to w under this
// encoding. Most callers use EncodeBytes or Encode instead.
func (e Encoding) NewEncoder(cx *Context, w Writer) Encoder {
	switch e.format {
	case formatStorage:
		return newStorageEncoder(cx, w, e.opts)
	case formatWire:
		return newWireEncoder(cx, w, e.opts)
	default:
		return newDescriptiveEncoder(cx, w, e.opts)
	}
}

// NewDecoder returns a fresh value decoder reading from r under this
// encoding.
func (e Encoding) NewDecoder(cx *Context, r *Reader) Decoder {
	switch e.format {
	case formatStorage:
		return newStorageDecoder(cx, r, e.opts)
	case formatWire:
		return newWireDecoder(cx, r, e.opts)
	default:
		return newDescriptiveDecoder(cx, r, e.opts)
	}
}

// ============================================================
// One-shot entry points
// ============================================================

// EncodeBytes marshals v and returns the encoded bytes.
func (e Encoding) EncodeBytes(v Marshaler) ([]byte, error) {
	cx := NewContext(StrategySame, NewSystem())
	return e.EncodeBytesWith(cx, v)
}

// EncodeBytesWith marshals v under an explicit context, so the caller
// picks the error strategy and allocator.
func (e Encoding) EncodeBytesWith(cx *Context, v Marshaler) ([]byte, error) {
	w := NewBufWriter(64)
	if err := v.MarshalRunic(cx, e.NewEncoder(cx, w)); err != nil {
		return nil, err
	}
	if err := cx.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeFixed marshals v into the caller's buffer and returns the
// encoded prefix. Both the output and all scratch allocations are
// bounded: the context uses a Fixed allocator over scratch.
func (e Encoding) EncodeFixed(buf []byte, scratch []byte, v Marshaler) ([]byte, error) {
	cx := NewContext(StrategySame, NewFixed(scratch))
	w := NewFixedWriter(buf)
	if err := v.MarshalRunic(cx, e.NewEncoder(cx, w)); err != nil {
		return nil, err
	}
	if err := cx.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Encode marshals v and writes the encoded bytes to w.
func (e Encoding) Encode(w io.Writer, v Marshaler) error {
	data, err := e.EncodeBytes(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// DecodeBytes unmarshals v from the encoded bytes.
func (e Encoding) DecodeBytes(data []byte, v Unmarshaler) error {
	cx := NewContext(StrategySame, NewSystem())
	return e.DecodeBytesWith(cx, data, v)
}

// DecodeBytesWith unmarshals v under an explicit context.
func (e Encoding) DecodeBytesWith(cx *Context, data []byte, v Unmarshaler) error {
	if err := v.UnmarshalRunic(cx, e.NewDecoder(cx, NewReader(data))); err != nil {
		return err
	}
	return cx.Err()
}

// Decode reads everything from r and unmarshals v from it.
func (e Encoding) Decode(r io.Reader, v Unmarshaler) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return e.DecodeBytes(data, v)
}

// DecodeValue decodes one value from data into a dynamic tree. Only
// the descriptive format carries enough type information for this.
func (e Encoding) DecodeValue(data []byte) (*Value, error) {
	cx := NewContext(StrategySame, NewSystem())
	return e.DecodeValueWith(cx, data)
}

// DecodeValueWith decodes a dynamic tree under an explicit context.
func (e Encoding) DecodeValueWith(cx *Context, data []byte) (*Value, error) {
	if e.format != formatDescriptive {
		return nil, usagef("dynamic decoding needs the descriptive format, not %s", e.format)
	}
	v, err := decodeValue(cx, newDescriptiveDecoder(cx, NewReader(data), e.opts), 0)
	if err != nil {
		return nil, err
	}
	if err := cx.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeValue marshals a dynamic tree under this encoding. The tree
// must fit the format: storage and wire reject nothing structurally,
// but only descriptive output round-trips back through DecodeValue.
func (e Encoding) EncodeValue(v *Value) ([]byte, error) {
	return e.EncodeBytes(v)
}
