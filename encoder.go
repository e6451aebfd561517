package runic

// The cursor protocol. Each format's Encoder is a one-shot cursor
// bound to a forward-only write position and a Context. Encoding a
// scalar consumes the cursor; encoding a compound returns a sub-cursor
// scoped to that compound, which must be closed with End exactly once.
// Misuse (operating on a finished cursor, ending twice, leaving a
// sub-cursor open) fails with ErrUsage.
//
// This protocol is the code-generation target: generated or
// hand-written Marshaler implementations call only these interfaces and
// never inspect tag bytes directly.

// Marshaler is implemented by types that can encode themselves.
type Marshaler interface {
	MarshalRunic(cx *Context, enc Encoder) error
}

// Encoder is the typed write cursor at one stream position.
type Encoder interface {
	// EncodeUnit encodes the unit (empty) value.
	EncodeUnit() error

	EncodeBool(v bool) error

	EncodeUint8(v uint8) error
	EncodeUint16(v uint16) error
	EncodeUint32(v uint32) error
	EncodeUint64(v uint64) error

	EncodeInt8(v int8) error
	EncodeInt16(v int16) error
	EncodeInt32(v int32) error
	EncodeInt64(v int64) error

	EncodeFloat32(v float32) error
	EncodeFloat64(v float64) error

	EncodeString(v string) error
	EncodeBytes(v []byte) error

	// EncodeSequence begins a sequence of n elements.
	EncodeSequence(n int) (SequenceEncoder, error)

	// EncodeMap begins a map of n entries.
	EncodeMap(n int) (MapEncoder, error)

	// EncodeStruct begins a struct of n fields.
	EncodeStruct(n int) (StructEncoder, error)

	// EncodeVariant begins a tagged union value.
	EncodeVariant() (VariantEncoder, error)

	// EncodePack begins a packed blob: fixed-width fields with zero
	// per-field framing inside one length-framed byte run.
	EncodePack() (PackEncoder, error)
}

// SequenceEncoder encodes the elements of a sequence.
type SequenceEncoder interface {
	// EncodeNext yields the cursor for the next element. The returned
	// cursor must be consumed before the next EncodeNext or End call.
	EncodeNext() (Encoder, error)

	// End closes the sequence. Fails unless exactly the declared
	// number of elements was encoded.
	End() error
}

// MapEncoder encodes map entries as alternating key/value cursors.
type MapEncoder interface {
	EncodeKey() (Encoder, error)
	EncodeValue() (Encoder, error)
	End() error
}

// StructEncoder encodes struct fields. Whether name or index identifies
// the field on the wire is decided by the encoding's Options; callers
// always supply both.
type StructEncoder interface {
	EncodeField(name string, index uint64) (Encoder, error)
	End() error
}

// VariantEncoder encodes a tagged union: a tag cursor, then a value
// cursor, then End.
type VariantEncoder interface {
	EncodeTag() (Encoder, error)
	EncodeValue() (Encoder, error)
	End() error
}

// PackEncoder writes fixed-width fields back to back with no per-field
// framing. The blob is framed once, by End.
type PackEncoder interface {
	PackUint8(v uint8) error
	PackUint16(v uint16) error
	PackUint32(v uint32) error
	PackUint64(v uint64) error

	PackInt8(v int8) error
	PackInt16(v int16) error
	PackInt32(v int32) error
	PackInt64(v int64) error

	PackFloat32(v float32) error
	PackFloat64(v float64) error

	// PackBytes appends raw bytes verbatim.
	PackBytes(p []byte) error

	End() error
}
