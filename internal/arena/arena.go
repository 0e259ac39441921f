// Package arena provides flat, handle-addressed storage for octree nodes.
//
// Nodes are referenced by Handle (slot index + generation) instead of
// pointers. Freed slots are recycled; the generation counter is bumped on
// every free so a stale handle is always detected and fails with
// ErrInvalidHandle rather than silently aliasing a recycled slot.
//
// Storage is paged: slots live in fixed-size pages that are appended but
// never reallocated, so a *T obtained from Get stays valid across later
// allocations. Child links in the tree rely on that stability.
package arena

import "errors"

// ErrInvalidHandle is returned when a handle is nil, stale (freed and
// possibly recycled) or otherwise not backed by a live slot. It signals an
// internal consistency fault in the caller, not recoverable user input.
var ErrInvalidHandle = errors.New("arena: invalid handle")

const (
	pageBits = 9
	pageSize = 1 << pageBits // 512 slots per page
	pageMask = pageSize - 1
)

// Handle is a stable reference to an allocated slot. The zero value is Nil
// and never refers to a live slot (generations start at 1).
type Handle struct {
	idx uint32
	gen uint32
}

// Nil is the zero handle.
var Nil Handle

// IsNil reports whether h is the nil handle.
func (h Handle) IsNil() bool { return h.gen == 0 }

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

type page[T any] struct {
	slots [pageSize]slot[T]
}

// Stats tracks arena usage.
type Stats struct {
	Live        int    // slots currently allocated
	Free        int    // recycled slots available for reuse
	TotalAllocs uint64 // cumulative allocation count
	TotalFrees  uint64 // cumulative free count
}

// Arena is a paged slot allocator with generational handles. It is not
// safe for concurrent use; the owning index serializes access.
type Arena[T any] struct {
	pages []*page[T]
	free  []uint32
	next  uint32
	stats Stats
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc stores v and returns a handle that stays valid until Free.
func (a *Arena[T]) Alloc(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = a.next
		a.next++
		if int(idx>>pageBits) >= len(a.pages) {
			a.pages = append(a.pages, &page[T]{})
		}
	}

	s := &a.pages[idx>>pageBits].slots[idx&pageMask]
	if s.gen == 0 {
		s.gen = 1
	}
	s.live = true
	s.val = v

	a.stats.Live++
	a.stats.TotalAllocs++

	return Handle{idx: idx, gen: s.gen}
}

// Get returns a pointer to the slot referenced by h. The pointer stays
// valid across later Alloc calls but not across Free(h).
func (a *Arena[T]) Get(h Handle) (*T, error) {
	s := a.lookup(h)
	if s == nil {
		return nil, ErrInvalidHandle
	}
	return &s.val, nil
}

// Free releases the slot referenced by h. Double frees and stale handles
// fail with ErrInvalidHandle.
func (a *Arena[T]) Free(h Handle) error {
	s := a.lookup(h)
	if s == nil {
		return ErrInvalidHandle
	}

	var zero T
	s.val = zero
	s.live = false
	s.gen++

	a.free = append(a.free, h.idx)
	a.stats.Live--
	a.stats.TotalFrees++

	return nil
}

// Len returns the number of live slots.
func (a *Arena[T]) Len() int { return a.stats.Live }

// Stats returns a snapshot of the arena counters.
func (a *Arena[T]) Stats() Stats {
	st := a.stats
	st.Free = len(a.free)
	return st
}

func (a *Arena[T]) lookup(h Handle) *slot[T] {
	if h.IsNil() || h.idx >= a.next {
		return nil
	}
	s := &a.pages[h.idx>>pageBits].slots[h.idx&pageMask]
	if !s.live || s.gen != h.gen {
		return nil
	}
	return s
}
