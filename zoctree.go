package zoctree

import (
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/zoctree/internal/arena"
	"github.com/hupe1980/zoctree/morton"
)

// Entry pairs a coordinate with its opaque payload identifier. The index
// never interprets the id; it only requires uniqueness.
type Entry struct {
	Point morton.Point
	ID    uint64
}

// Octree is a Morton-encoded octree spatial index. It is safe for
// concurrent use: mutations are writer-exclusive, lookups and queries
// share a read lock.
type Octree struct {
	mu       sync.RWMutex
	enc      *morton.Encoder
	capacity int
	maxDepth int
	nodes    *arena.Arena[node]
	root     arena.Handle
	ids      map[uint64]location
	live     *roaring64.Bitmap
	logger   *Logger
	metrics  MetricsCollector
}

// New creates an octree indexing coordinates of the given per-axis bit
// width (space 0..2^bitWidth-1 per axis). It fails with ErrInvalidConfig
// for an unsupported bit width, a non-positive leaf capacity or a max
// depth beyond full resolution.
func New(bitWidth int, optFns ...func(o *Options)) (*Octree, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	enc, err := morton.NewEncoder(bitWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if opts.LeafCapacity <= 0 {
		return nil, fmt.Errorf("%w: leaf capacity must be positive, got %d", ErrInvalidConfig, opts.LeafCapacity)
	}
	if opts.MaxDepth < 0 || opts.MaxDepth > bitWidth {
		return nil, fmt.Errorf("%w: max depth %d out of range [0, %d]", ErrInvalidConfig, opts.MaxDepth, bitWidth)
	}

	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = bitWidth
	}

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	ot := &Octree{
		enc:      enc,
		capacity: opts.LeafCapacity,
		maxDepth: maxDepth,
		nodes:    arena.New[node](),
		ids:      make(map[uint64]location),
		live:     roaring64.New(),
		logger:   logger,
		metrics:  metrics,
	}
	// The root is created once and never freed; it may become an empty
	// leaf again after deletions.
	ot.root = ot.nodes.Alloc(node{leaf: true})
	return ot, nil
}

// BitWidth returns the configured per-axis bit width.
func (ot *Octree) BitWidth() int { return ot.enc.Bits() }

// Insert adds a point under the given payload id. It fails with
// ErrOutOfRange if the coordinate exceeds the configured bit width and
// with ErrDuplicateID if the id is already live. A failed insert leaves
// the index unchanged.
func (ot *Octree) Insert(p morton.Point, id uint64) error {
	start := time.Now()
	err := ot.insert(p, id)
	ot.metrics.RecordInsert(time.Since(start), err)
	ot.logger.LogMutation("insert", id, err)
	return err
}

func (ot *Octree) insert(p morton.Point, id uint64) error {
	code, err := ot.enc.Encode(p)
	if err != nil {
		return err
	}

	ot.mu.Lock()
	defer ot.mu.Unlock()

	if ot.live.Contains(id) {
		return &ErrDuplicateID{ID: id}
	}
	if err := ot.insertLocked(p, code, id); err != nil {
		return err
	}
	ot.ids[id] = location{code: code, point: p}
	ot.live.Add(id)
	return nil
}

// BatchInsert inserts entries one by one and returns a per-entry error
// slice; a nil element means the corresponding insert succeeded. It is the
// rebuild path for hosts that persisted the output of Entries.
func (ot *Octree) BatchInsert(entries []Entry) []error {
	start := time.Now()
	errs := make([]error, len(entries))
	failed := 0
	for i, e := range entries {
		errs[i] = ot.insert(e.Point, e.ID)
		if errs[i] != nil {
			failed++
		}
	}
	duration := time.Since(start)

	if failed > 0 {
		ot.logger.Warn("batch insert completed with failures",
			"total", len(entries),
			"failed", failed,
			"duration", duration,
		)
	} else {
		ot.logger.Debug("batch insert completed",
			"count", len(entries),
			"duration", duration,
		)
	}
	return errs
}

// Delete removes the entry for id. It fails with ErrNotFound if the id is
// not live.
func (ot *Octree) Delete(id uint64) error {
	start := time.Now()
	err := ot.delete(id)
	ot.metrics.RecordDelete(time.Since(start), err)
	ot.logger.LogMutation("delete", id, err)
	return err
}

func (ot *Octree) delete(id uint64) error {
	ot.mu.Lock()
	defer ot.mu.Unlock()

	loc, ok := ot.ids[id]
	if !ok {
		return &ErrNotFound{ID: id}
	}
	if err := ot.deleteLocked(id, loc); err != nil {
		return err
	}
	delete(ot.ids, id)
	ot.live.Remove(id)
	return nil
}

// Update moves an existing id to a new coordinate. Semantically equal to
// Delete followed by Insert, but the common small-displacement case stays
// within the entry's leaf and skips the merge/split machinery. It fails
// with ErrNotFound or ErrOutOfRange, leaving the index unchanged.
func (ot *Octree) Update(id uint64, p morton.Point) error {
	start := time.Now()
	err := ot.update(id, p)
	ot.metrics.RecordUpdate(time.Since(start), err)
	ot.logger.LogMutation("update", id, err)
	return err
}

func (ot *Octree) update(id uint64, p morton.Point) error {
	code, err := ot.enc.Encode(p)
	if err != nil {
		return err
	}

	ot.mu.Lock()
	defer ot.mu.Unlock()

	loc, ok := ot.ids[id]
	if !ok {
		return &ErrNotFound{ID: id}
	}
	if err := ot.updateLocked(id, loc, p, code); err != nil {
		return err
	}
	ot.ids[id] = location{code: code, point: p}
	return nil
}

// Lookup returns the coordinate stored under id, or false if the id is not
// live. O(1) via the id index.
func (ot *Octree) Lookup(id uint64) (morton.Point, bool) {
	ot.mu.RLock()
	defer ot.mu.RUnlock()

	loc, ok := ot.ids[id]
	if !ok {
		return morton.Point{}, false
	}
	return loc.point, true
}

// Len returns the number of live entries.
func (ot *Octree) Len() int {
	ot.mu.RLock()
	defer ot.mu.RUnlock()
	return len(ot.ids)
}

// IDs returns a copy of the live payload id set. Callers can intersect or
// subtract it with their own bitmaps for set-based filtering.
func (ot *Octree) IDs() *roaring64.Bitmap {
	ot.mu.RLock()
	defer ot.mu.RUnlock()
	return ot.live.Clone()
}

// Entries returns all live entries in Morton-code order as a lazy,
// restartable sequence over a consistent snapshot. Enumerate-and-reinsert
// is the supported persistence path for host applications.
func (ot *Octree) Entries() iter.Seq[Entry] {
	ot.mu.RLock()
	type rec struct {
		code morton.Code
		e    Entry
	}
	all := make([]rec, 0, len(ot.ids))
	for id, loc := range ot.ids {
		all = append(all, rec{code: loc.code, e: Entry{Point: loc.point, ID: id}})
	}
	ot.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].code != all[j].code {
			return all[i].code < all[j].code
		}
		return all[i].e.ID < all[j].e.ID
	})

	return func(yield func(Entry) bool) {
		for _, r := range all {
			if !yield(r.e) {
				return
			}
		}
	}
}

// Stats describes the current tree shape. Faults counts reachable node
// handles the arena refused to resolve; it is zero unless the index is
// corrupted.
type Stats struct {
	Entries       int
	Nodes         int
	Leaves        int
	MaxDepthInUse int
	Faults        int
	Arena         arena.Stats
}

// Stats returns a snapshot of the tree shape counters.
func (ot *Octree) Stats() Stats {
	ot.mu.RLock()
	defer ot.mu.RUnlock()

	st := Stats{
		Entries: len(ot.ids),
		Arena:   ot.nodes.Stats(),
	}

	stack := []arena.Handle{ot.root}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := ot.nodes.Get(h)
		if err != nil {
			st.Faults++
			ot.logger.Error("stats walk hit unresolvable node", "error", err)
			continue
		}
		st.Nodes++
		if int(n.depth) > st.MaxDepthInUse {
			st.MaxDepthInUse = int(n.depth)
		}
		if n.leaf {
			st.Leaves++
			continue
		}
		for _, ch := range n.children {
			if !ch.IsNil() {
				stack = append(stack, ch)
			}
		}
	}
	return st
}
