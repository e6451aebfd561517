package runic

// Scratch-buffer allocation. Regions are recycled across many
// short-lived allocations within one Context's lifetime instead of
// being individually heap-allocated and freed. The free list is
// intrusive over array indices; a region is owned either by the free
// list or by exactly one live Buf, never both.

// Allocator hands out reusable scratch buffers.
type Allocator interface {
	// Alloc returns a zero-length scratch buffer, or false when the
	// allocator's capacity is exhausted.
	Alloc() (Buf, bool)
}

// Buf is one borrowed scratch buffer. Writes report failure instead of
// panicking so bounded allocators degrade cleanly.
type Buf interface {
	Write(p []byte) bool
	WriteByte(b byte) bool
	WriteString(s string) bool
	Len() int
	Bytes() []byte

	// Reset truncates to zero length without releasing the region.
	Reset()

	// Release returns the region to the allocator's free list. The Buf
	// must not be used afterwards.
	Release()
}

// ============================================================
// System Allocator (heap-backed arena)
// ============================================================

// region is one reusable byte buffer plus its free-list link.
type region struct {
	data []byte
	next int // index of the next free region, -1 for end of list
}

// System is the heap-backed arena allocator: a growable region array
// with an intrusive free list over indices. Alloc pops the free head
// when available and creates a fresh region otherwise; Release clears
// the region (length zero, capacity kept) and pushes it back.
type System struct {
	regions  []region
	freeHead int
}

// NewSystem creates an empty system allocator.
func NewSystem() *System {
	return &System{freeHead: -1}
}

// Alloc returns a zero-length scratch buffer. Never fails.
func (s *System) Alloc() (Buf, bool) {
	var idx int
	if s.freeHead >= 0 {
		idx = s.freeHead
		s.freeHead = s.regions[idx].next
		s.regions[idx].next = -1
	} else {
		idx = len(s.regions)
		s.regions = append(s.regions, region{next: -1})
	}
	return &systemBuf{owner: s, idx: idx}, true
}

// regionCount returns how many regions the arena has ever created.
func (s *System) regionCount() int {
	return len(s.regions)
}

type systemBuf struct {
	owner    *System
	idx      int
	released bool
}

func (b *systemBuf) Write(p []byte) bool {
	if b.released {
		return false
	}
	r := &b.owner.regions[b.idx]
	r.data = append(r.data, p...)
	return true
}

func (b *systemBuf) WriteByte(c byte) bool {
	if b.released {
		return false
	}
	r := &b.owner.regions[b.idx]
	r.data = append(r.data, c)
	return true
}

func (b *systemBuf) WriteString(s string) bool {
	if b.released {
		return false
	}
	r := &b.owner.regions[b.idx]
	r.data = append(r.data, s...)
	return true
}

func (b *systemBuf) Len() int {
	if b.released {
		return 0
	}
	return len(b.owner.regions[b.idx].data)
}

func (b *systemBuf) Bytes() []byte {
	if b.released {
		return nil
	}
	return b.owner.regions[b.idx].data
}

func (b *systemBuf) Reset() {
	if b.released {
		return
	}
	r := &b.owner.regions[b.idx]
	r.data = r.data[:0]
}

func (b *systemBuf) Release() {
	if b.released {
		return
	}
	b.released = true
	r := &b.owner.regions[b.idx]
	r.data = r.data[:0]
	r.next = b.owner.freeHead
	b.owner.freeHead = b.idx
}

// ============================================================
// Fixed Allocator (caller-backed, bounded)
// ============================================================

// fixedSlot is one window into the fixed backing slice.
type fixedSlot struct {
	off  int // window start in the backing slice
	len  int // live length
	cap  int // window capacity reserved by a previous borrow
	next int // free-list link, -1 for end
}

// Fixed is the no-alloc allocator variant: the same free-list
// discipline as System, backed by a single caller-supplied byte slice
// (typically an array on the caller's stack). It bump-allocates from
// the backing slice and is bounded: allocations and writes fail once
// the capacity is exhausted, rather than growing.
type Fixed struct {
	backing  []byte
	bump     int
	slots    []fixedSlot
	freeHead int
}

// NewFixed creates a fixed allocator over backing.
func NewFixed(backing []byte) *Fixed {
	return &Fixed{backing: backing, freeHead: -1}
}

// Alloc returns a zero-length scratch buffer. It prefers a recycled
// slot; otherwise it opens a fresh window at the bump position.
func (f *Fixed) Alloc() (Buf, bool) {
	if f.freeHead >= 0 {
		idx := f.freeHead
		f.freeHead = f.slots[idx].next
		f.slots[idx].next = -1
		f.slots[idx].len = 0
		return &fixedBuf{owner: f, idx: idx}, true
	}
	if f.bump >= len(f.backing) {
		return nil, false
	}
	idx := len(f.slots)
	f.slots = append(f.slots, fixedSlot{off: f.bump, next: -1})
	return &fixedBuf{owner: f, idx: idx}, true
}

type fixedBuf struct {
	owner    *Fixed
	idx      int
	released bool
}

// grow makes room for n more bytes. A slot grows into the bump region
// only while it is the topmost allocation; recycled slots are limited
// to the capacity they reserved in a previous life.
func (b *fixedBuf) grow(n int) bool {
	f := b.owner
	s := &f.slots[b.idx]
	if s.len+n <= s.cap {
		s.len += n
		return true
	}
	if s.off+s.cap != f.bump {
		return false
	}
	need := s.len + n - s.cap
	if f.bump+need > len(f.backing) {
		return false
	}
	f.bump += need
	s.cap += need
	s.len += n
	return true
}

func (b *fixedBuf) Write(p []byte) bool {
	if b.released {
		return false
	}
	s := &b.owner.slots[b.idx]
	at := s.off + s.len
	if !b.grow(len(p)) {
		return false
	}
	copy(b.owner.backing[at:], p)
	return true
}

func (b *fixedBuf) WriteByte(c byte) bool {
	if b.released {
		return false
	}
	s := &b.owner.slots[b.idx]
	at := s.off + s.len
	if !b.grow(1) {
		return false
	}
	b.owner.backing[at] = c
	return true
}

func (b *fixedBuf) WriteString(str string) bool {
	if b.released {
		return false
	}
	s := &b.owner.slots[b.idx]
	at := s.off + s.len
	if !b.grow(len(str)) {
		return false
	}
	copy(b.owner.backing[at:], str)
	return true
}

func (b *fixedBuf) Len() int {
	if b.released {
		return 0
	}
	return b.owner.slots[b.idx].len
}

func (b *fixedBuf) Bytes() []byte {
	if b.released {
		return nil
	}
	s := b.owner.slots[b.idx]
	return b.owner.backing[s.off : s.off+s.len]
}

func (b *fixedBuf) Reset() {
	if b.released {
		return
	}
	b.owner.slots[b.idx].len = 0
}

func (b *fixedBuf) Release() {
	if b.released {
		return
	}
	b.released = true
	f := b.owner
	s := &f.slots[b.idx]
	s.len = 0
	s.next = f.freeHead
	f.freeHead = b.idx
}
