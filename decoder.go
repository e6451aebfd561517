package runic

import "strconv"

// Unmarshaler is implemented by types that can decode themselves.
type Unmarshaler interface {
	UnmarshalRunic(cx *Context, dec Decoder) error
}

// Decoder is the typed read cursor at one stream position. Decoding a
// scalar consumes the cursor; decoding a compound returns a sub-cursor
// that must be closed with End.
//
// Skip walks the same state machine without materializing the typed
// result. It is purely syntactic (tag and length based) in the wire
// and descriptive tiers; the storage tier cannot skip and reports
// ErrUnexpectedField.
type Decoder interface {
	DecodeUnit() error

	DecodeBool() (bool, error)

	DecodeUint8() (uint8, error)
	DecodeUint16() (uint16, error)
	DecodeUint32() (uint32, error)
	DecodeUint64() (uint64, error)

	DecodeInt8() (int8, error)
	DecodeInt16() (int16, error)
	DecodeInt32() (int32, error)
	DecodeInt64() (int64, error)

	DecodeFloat32() (float32, error)
	DecodeFloat64() (float64, error)

	DecodeString() (string, error)

	// DecodeBytes returns a slice aliasing the input. Callers that
	// need ownership copy it.
	DecodeBytes() ([]byte, error)

	DecodeSequence() (SequenceDecoder, error)
	DecodeMap() (MapDecoder, error)
	DecodeStruct() (StructDecoder, error)
	DecodeVariant() (VariantDecoder, error)
	DecodePack() (PackDecoder, error)

	Skip() error
}

// SequenceDecoder decodes sequence elements in order.
type SequenceDecoder interface {
	// Len returns the framed element count.
	Len() int

	// DecodeNext yields the cursor for the next element, or ok=false
	// at the end of the sequence.
	DecodeNext() (dec Decoder, ok bool, err error)

	// End closes the sequence. In the wire and descriptive tiers any
	// unread elements are skipped; in the storage tier unread elements
	// are a usage error.
	End() error
}

// MapDecoder decodes map entries as alternating key/value cursors.
type MapDecoder interface {
	Len() int

	// DecodeKey yields the next entry's key cursor, or ok=false at the
	// end of the map. Each DecodeKey must be followed by DecodeValue.
	DecodeKey() (dec Decoder, ok bool, err error)

	DecodeValue() (Decoder, error)

	End() error
}

// FieldID is the identity a struct field was framed with: an index or
// a name, depending on the encoding's Options.
type FieldID struct {
	Index uint64
	Name  string

	// Named reports which of Index and Name is meaningful.
	Named bool
}

// Match reports whether the framed identity refers to the field the
// caller knows as (name, index). Works in both naming modes.
func (f FieldID) Match(name string, index uint64) bool {
	if f.Named {
		return f.Name == name
	}
	return f.Index == index
}

// String renders the identity for diagnostics.
func (f FieldID) String() string {
	if f.Named {
		return f.Name
	}
	return "#" + strconv.FormatUint(f.Index, 10)
}

// StructDecoder decodes struct fields in framed order.
type StructDecoder interface {
	// Fields returns the framed field count.
	Fields() int

	// DecodeField yields the next field's identity and value cursor,
	// or ok=false when all fields are read. Unknown fields are skipped
	// by calling Skip on the value cursor (wire/descriptive only).
	DecodeField() (id FieldID, dec Decoder, ok bool, err error)

	End() error
}

// VariantDecoder decodes a tagged union: tag cursor, value cursor, End.
type VariantDecoder interface {
	DecodeTag() (Decoder, error)
	DecodeValue() (Decoder, error)
	End() error
}

// PackDecoder reads fixed-width fields back to back from one packed
// blob. End fails unless the blob was consumed exactly.
type PackDecoder interface {
	Uint8() (uint8, error)
	Uint16() (uint16, error)
	Uint32() (uint32, error)
	Uint64() (uint64, error)

	Int8() (int8, error)
	Int16() (int16, error)
	Int32() (int32, error)
	Int64() (int64, error)

	Float32() (float32, error)
	Float64() (float64, error)

	Bytes(n int) ([]byte, error)

	End() error
}
