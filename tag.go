package runic

import "fmt"

// One framing byte:
//
//	bit7 bit6 | bit5 bit4 bit3 bit2 bit1 bit0
//	 Kind(2)  |          Data(6)
//
// Data == 63 escapes: the actual length/value follows as a
// continuation-encoded unsigned integer.

// Kind is the 2-bit semantic category a tag declares. The four bit
// patterns partition the byte space with no overlap; which patterns are
// legal depends on the format tier.
type Kind uint8

const (
	// KindPrefix frames a length-delimited byte run: strings, raw
	// bytes, packed blobs, fixed-width scalar images.
	KindPrefix Kind = 0

	// KindSequence frames a count-delimited run of typed entries:
	// struct fields, tuple/array elements, map pairs.
	KindSequence Kind = 1

	// KindContinuation carries a small unsigned integer inline, or
	// escapes to a trailing continuation encoding.
	KindContinuation Kind = 2

	// KindMarker is only legal in the descriptive tier. Its data slot
	// enumerates explicit type markers (see Marker).
	KindMarker Kind = 3
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPrefix:
		return "prefix"
	case KindSequence:
		return "sequence"
	case KindContinuation:
		return "continuation"
	case KindMarker:
		return "marker"
	default:
		return "invalid"
	}
}

const (
	tagDataMask   = 0x3f
	tagDataEscape = 0x3f

	// MaxInline is the largest length/value the 6-bit data slot holds
	// without escaping.
	MaxInline = 62
)

// Tag is one framing byte.
type Tag byte

// newTag packs a kind and an inline data value. Data must have gone
// through the escape decision already; values >= 63 never reach here.
func newTag(k Kind, data uint8) Tag {
	if data > MaxInline {
		panic(usagef("tag data %d does not fit the inline slot", data))
	}
	return Tag(uint8(k)<<6 | data)
}

// escapeTag packs a kind with the escape marker in the data slot.
func escapeTag(k Kind) Tag {
	return Tag(uint8(k)<<6 | tagDataEscape)
}

// Kind returns the tag's 2-bit kind.
func (t Tag) Kind() Kind {
	return Kind(t >> 6)
}

// Data returns the tag's 6-bit data slot.
func (t Tag) Data() uint8 {
	return uint8(t) & tagDataMask
}

// IsEscape reports whether the data slot holds the escape marker.
func (t Tag) IsEscape() bool {
	return t.Data() == tagDataEscape
}

// writeTag emits a tag for value under kind k, inline when the value
// fits the 6-bit slot and escaped otherwise.
func writeTag(w Writer, k Kind, value uint64) error {
	if value <= MaxInline {
		return w.WriteByte(byte(newTag(k, uint8(value))))
	}
	if err := w.WriteByte(byte(escapeTag(k))); err != nil {
		return err
	}
	return writeContinuation(w, value)
}

// readTag consumes one tag and resolves its value, following the
// escape to a trailing continuation when present.
func readTag(r *Reader) (Kind, uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	t := Tag(b)
	if !t.IsEscape() {
		return t.Kind(), uint64(t.Data()), nil
	}
	v, err := readContinuation(r, 64)
	if err != nil {
		return 0, 0, err
	}
	return t.Kind(), v, nil
}

// Marker enumerates the descriptive tier's explicit type markers,
// carried in the data slot of a KindMarker tag. Values are protocol
// constants; changing them breaks stream compatibility.
type Marker uint8

const (
	MarkerUnit  Marker = 0
	MarkerTrue  Marker = 1
	MarkerFalse Marker = 2

	// Number markers carry the bit width and signedness of the payload
	// that follows. MarkerU8 doubles as the byte marker.
	MarkerU8  Marker = 8
	MarkerU16 Marker = 9
	MarkerU32 Marker = 10
	MarkerU64 Marker = 11
	MarkerI8  Marker = 12
	MarkerI16 Marker = 13
	MarkerI32 Marker = 14
	MarkerI64 Marker = 15
	MarkerF32 Marker = 16
	MarkerF64 Marker = 17

	// Compound markers: the payload framing follows the marker.
	MarkerBytes   Marker = 32
	MarkerMap     Marker = 33
	MarkerVariant Marker = 34
	MarkerPack    Marker = 35
)

// String returns the marker name.
func (m Marker) String() string {
	switch m {
	case MarkerUnit:
		return "unit"
	case MarkerTrue:
		return "true"
	case MarkerFalse:
		return "false"
	case MarkerU8:
		return "u8"
	case MarkerU16:
		return "u16"
	case MarkerU32:
		return "u32"
	case MarkerU64:
		return "u64"
	case MarkerI8:
		return "i8"
	case MarkerI16:
		return "i16"
	case MarkerI32:
		return "i32"
	case MarkerI64:
		return "i64"
	case MarkerF32:
		return "f32"
	case MarkerF64:
		return "f64"
	case MarkerBytes:
		return "bytes"
	case MarkerMap:
		return "map"
	case MarkerVariant:
		return "variant"
	case MarkerPack:
		return "pack"
	default:
		return fmt.Sprintf("marker(%d)", uint8(m))
	}
}

// bits returns the payload bit width of a number marker.
func (m Marker) bits() uint {
	switch m {
	case MarkerU8, MarkerI8:
		return 8
	case MarkerU16, MarkerI16:
		return 16
	case MarkerU32, MarkerI32, MarkerF32:
		return 32
	case MarkerU64, MarkerI64, MarkerF64:
		return 64
	default:
		return 0
	}
}

// isUnsigned reports whether m is an unsigned number marker.
func (m Marker) isUnsigned() bool {
	return m >= MarkerU8 && m <= MarkerU64
}

// isSigned reports whether m is a signed integer marker.
func (m Marker) isSigned() bool {
	return m >= MarkerI8 && m <= MarkerI64
}

// writeMarker emits a KindMarker tag for m. Marker codes all fit the
// inline slot.
func writeMarker(w Writer, m Marker) error {
	return w.WriteByte(byte(newTag(KindMarker, uint8(m))))
}
