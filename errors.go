package runic

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by all format tiers.
var (
	// ErrBufferUnderflow reports a read past the end of the input.
	ErrBufferUnderflow = errors.New("runic: buffer underflow")

	// ErrBufferOverflow reports a write past a bounded output's capacity.
	ErrBufferOverflow = errors.New("runic: buffer overflow")

	// ErrBitsOverflow reports a continuation-encoded value wider than the
	// target integer type.
	ErrBitsOverflow = errors.New("runic: continuation bits overflow")

	// ErrUnexpectedTag reports a framing byte that does not match what the
	// current tier expects at this position.
	ErrUnexpectedTag = errors.New("runic: unexpected tag")

	// ErrUnexpectedKind reports a tag whose kind bit pattern has no meaning
	// in the current tier.
	ErrUnexpectedKind = errors.New("runic: unexpected kind")

	// ErrMissingField reports a required field the stream does not
	// carry. Required-ness is the decode callback's decision: a
	// callback raises this through cx.Custom when a field it needs
	// never arrives; the cursor protocol itself only reports what the
	// stream contains.
	ErrMissingField = errors.New("runic: missing field")

	// ErrUnexpectedField reports a storage-tier field the decoder does not
	// know. Storage values carry no framing, so unknown fields cannot be
	// skipped.
	ErrUnexpectedField = errors.New("runic: unexpected field")

	// ErrOverflow reports a numeric coercion whose captured value does not
	// fit the requested target type.
	ErrOverflow = errors.New("runic: numeric value out of range")

	// ErrUsage reports cursor protocol misuse: operating on a finished
	// cursor, closing twice, or closing with pending sub-cursors.
	ErrUsage = errors.New("runic: cursor usage error")

	// ErrAlloc reports an exhausted fixed allocator.
	ErrAlloc = errors.New("runic: allocator exhausted")

	// ErrFailed is the only detail the Ignore context strategy retains.
	ErrFailed = errors.New("runic: operation failed")

	// ErrTooDeep reports framing nested past the recursion limit.
	ErrTooDeep = errors.New("runic: nesting too deep")
)

// maxNestingDepth bounds recursive descent through nested framing, so
// short hostile inputs cannot exhaust the stack.
const maxNestingDepth = 1024

// usagef wraps ErrUsage with a description of the misuse.
func usagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}
