package runic

import (
	"fmt"
	"strconv"
)

// Context carries the per-operation state of one top-level encode or
// decode: a byte-offset mark, a structural path stack, an error-capture
// strategy, and a borrowed allocator. Create one per operation and drop
// it at the end; it is not safe for concurrent use.

// Strategy selects how much diagnostic detail a Context retains,
// trading detail for cost.
type Strategy uint8

const (
	// StrategySame captures nothing; errors pass through unchanged.
	StrategySame Strategy = iota

	// StrategyIgnore discards all detail and records only that an
	// error occurred. Reported errors collapse to ErrFailed, so the
	// strategy never allocates.
	StrategyIgnore

	// StrategyCapture retains the first error; later ones are dropped.
	StrategyCapture

	// StrategyRich accumulates a (path, byte-range, error) report per
	// failure, using the allocator for path rendering.
	StrategyRich
)

// StepKind identifies one structural path step.
type StepKind uint8

const (
	StepField        StepKind = iota // named struct field
	StepUnnamedField                 // tuple field by position
	StepType                         // struct/enum type name
	StepVariant                      // enum variant name
	StepIndex                        // sequence index
	StepKey                          // map key
)

// Step is one entry on the structural path stack.
type Step struct {
	Kind  StepKind
	Name  string
	Index int
}

// Report is one captured failure under StrategyRich.
type Report struct {
	Path  string
	Start int
	End   int
	Err   error
}

// String renders a report as "path at bytes start-end: err".
func (r Report) String() string {
	return fmt.Sprintf("%s at bytes %d-%d: %v", r.Path, r.Start, r.End, r.Err)
}

// Context is the per-operation diagnostic carrier.
type Context struct {
	strategy Strategy
	alloc    Allocator
	mark     int
	path     []Step
	failed   bool
	first    error
	reports  []Report
}

// NewContext creates a context with the given strategy and allocator.
func NewContext(strategy Strategy, alloc Allocator) *Context {
	return &Context{strategy: strategy, alloc: alloc}
}

// Alloc exposes the borrowed allocator to encoders and decoders.
func (cx *Context) Alloc() Allocator {
	return cx.alloc
}

// ============================================================
// Mark Tracking
// ============================================================

// Mark returns the current diagnostic byte offset. It advances
// monotonically and is used only for reporting, never for seeking.
func (cx *Context) Mark() int {
	return cx.mark
}

// Advance moves the mark forward by n bytes.
func (cx *Context) Advance(n int) {
	cx.mark += n
}

// ============================================================
// Path Stack
// ============================================================

// EnterField pushes a named struct field.
func (cx *Context) EnterField(name string) {
	cx.push(Step{Kind: StepField, Name: name})
}

// EnterUnnamedField pushes a tuple field by position.
func (cx *Context) EnterUnnamedField(index int) {
	cx.push(Step{Kind: StepUnnamedField, Index: index})
}

// EnterType pushes a struct or enum type name.
func (cx *Context) EnterType(name string) {
	cx.push(Step{Kind: StepType, Name: name})
}

// EnterVariant pushes an enum variant name.
func (cx *Context) EnterVariant(name string) {
	cx.push(Step{Kind: StepVariant, Name: name})
}

// EnterIndex pushes a sequence index.
func (cx *Context) EnterIndex(index int) {
	cx.push(Step{Kind: StepIndex, Index: index})
}

// EnterKey pushes a map key.
func (cx *Context) EnterKey(key string) {
	cx.push(Step{Kind: StepKey, Name: key})
}

// Leave pops the innermost path step. Every Enter call must be paired
// with exactly one Leave.
func (cx *Context) Leave() {
	if len(cx.path) == 0 {
		panic(usagef("path stack underflow"))
	}
	cx.path = cx.path[:len(cx.path)-1]
}

// Depth returns the current path depth.
func (cx *Context) Depth() int {
	return len(cx.path)
}

func (cx *Context) push(s Step) {
	cx.path = append(cx.path, s)
}

// Path renders the current structural path, e.g. "Order.items[2].sku".
// Rendering goes through an allocator scratch buffer so rich contexts
// reuse regions across many reports.
func (cx *Context) Path() string {
	if len(cx.path) == 0 {
		return "."
	}
	buf, ok := cx.alloc.Alloc()
	if !ok {
		// Bounded allocator exhausted; fall back to a bare rendering.
		return cx.pathFallback()
	}
	defer buf.Release()
	for i, s := range cx.path {
		switch s.Kind {
		case StepField:
			if i > 0 {
				buf.WriteByte('.')
			}
			buf.WriteString(s.Name)
		case StepUnnamedField:
			if i > 0 {
				buf.WriteByte('.')
			}
			buf.WriteString(strconv.Itoa(s.Index))
		case StepType, StepVariant:
			if i > 0 {
				buf.WriteByte('.')
			}
			buf.WriteString(s.Name)
		case StepIndex:
			buf.WriteByte('[')
			buf.WriteString(strconv.Itoa(s.Index))
			buf.WriteByte(']')
		case StepKey:
			buf.WriteByte('{')
			buf.WriteString(s.Name)
			buf.WriteByte('}')
		}
	}
	return string(buf.Bytes())
}

func (cx *Context) pathFallback() string {
	out := ""
	for i, s := range cx.path {
		switch s.Kind {
		case StepIndex:
			out += "[" + strconv.Itoa(s.Index) + "]"
		case StepKey:
			out += "{" + s.Name + "}"
		case StepUnnamedField:
			if i > 0 {
				out += "."
			}
			out += strconv.Itoa(s.Index)
		default:
			if i > 0 {
				out += "."
			}
			out += s.Name
		}
	}
	return out
}

// ============================================================
// Error Capture
// ============================================================

// Report records err against the byte range [start, Mark()] under the
// configured strategy and returns the error the caller should
// propagate. Nothing is swallowed: even StrategyIgnore returns a
// non-nil marker (ErrFailed).
func (cx *Context) Report(start int, err error) error {
	if err == nil {
		return nil
	}
	switch cx.strategy {
	case StrategySame:
		return err
	case StrategyIgnore:
		cx.failed = true
		return ErrFailed
	case StrategyCapture:
		cx.failed = true
		if cx.first == nil {
			cx.first = err
		}
		return err
	default: // StrategyRich
		cx.failed = true
		cx.reports = append(cx.reports, Report{
			Path:  cx.Path(),
			Start: start,
			End:   cx.mark,
			Err:   err,
		})
		return err
	}
}

// Message reports a caller-supplied diagnostic at the current mark.
func (cx *Context) Message(msg string) error {
	return cx.Report(cx.mark, fmt.Errorf("runic: %s", msg))
}

// Errorf reports a formatted caller diagnostic at the current mark.
func (cx *Context) Errorf(format string, args ...any) error {
	return cx.Report(cx.mark, fmt.Errorf("runic: "+format, args...))
}

// Custom reports a caller-native error at the current mark.
func (cx *Context) Custom(err error) error {
	return cx.Report(cx.mark, err)
}

// Failed reports whether any error was recorded.
func (cx *Context) Failed() bool {
	return cx.failed || cx.first != nil || len(cx.reports) > 0
}

// Err returns the first captured error, or nil.
func (cx *Context) Err() error {
	if cx.first != nil {
		return cx.first
	}
	if len(cx.reports) > 0 {
		return cx.reports[0].Err
	}
	if cx.failed {
		return ErrFailed
	}
	return nil
}

// Reports returns the accumulated failure reports under StrategyRich.
func (cx *Context) Reports() []Report {
	return cx.reports
}
