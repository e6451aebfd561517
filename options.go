package runic

import "encoding/binary"

// Options is the immutable configuration bundle an Encoding captures at
// construction. Call sites treat the captured value as a constant; it
// is never mutated mid-stream.

// IntegerMode selects how integer payloads are laid out.
type IntegerMode uint8

const (
	// IntegerVariable encodes integers with the continuation codec
	// (signed values through zigzag first).
	IntegerVariable IntegerMode = iota

	// IntegerFixed writes integers as raw byte arrays of the type's
	// natural width, in the configured byte order.
	IntegerFixed
)

// ByteOrder selects the byte order for fixed-width payloads.
type ByteOrder uint8

const (
	OrderLittle ByteOrder = iota
	OrderBig
	OrderNative
)

// order resolves the configured order to a concrete binary.ByteOrder.
func (o ByteOrder) order() binary.ByteOrder {
	switch o {
	case OrderBig:
		return binary.BigEndian
	case OrderNative:
		return binary.NativeEndian
	default:
		return binary.LittleEndian
	}
}

// LengthMode selects how the storage tier writes lengths and counts.
// The wire and descriptive tiers always frame lengths through the tag
// scheme and ignore this setting.
type LengthMode uint8

const (
	// LengthVariable encodes lengths with the continuation codec.
	LengthVariable LengthMode = iota
	Length8
	Length16
	Length32
	Length64
)

// bits returns the fixed width in bits, or 0 for LengthVariable.
func (m LengthMode) bits() uint {
	switch m {
	case Length8:
		return 8
	case Length16:
		return 16
	case Length32:
		return 32
	case Length64:
		return 64
	default:
		return 0
	}
}

// FieldNaming selects how field and variant identity is carried.
// Independent of the format tier.
type FieldNaming uint8

const (
	// FieldIndex carries identity as a small continuation-encoded index.
	FieldIndex FieldNaming = iota

	// FieldName carries identity as a length-prefixed UTF-8 name.
	FieldName
)

// Options bundles the four configuration axes.
type Options struct {
	Integer IntegerMode
	Order   ByteOrder
	Length  LengthMode
	Naming  FieldNaming
}

// DefaultOptions returns the default configuration: variable integers,
// little-endian fixed payloads, variable lengths, index field naming.
func DefaultOptions() Options {
	return Options{
		Integer: IntegerVariable,
		Order:   OrderLittle,
		Length:  LengthVariable,
		Naming:  FieldIndex,
	}
}
