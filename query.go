package zoctree

import (
	"iter"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/zoctree/internal/arena"
	"github.com/hupe1980/zoctree/morton"
)

// Box is an axis-aligned, inclusive query region.
type Box struct {
	Min, Max morton.Point
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p morton.Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b Box) valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// covers reports whether the box fully contains the cell [min, max].
func (b Box) covers(min, max morton.Point) bool {
	return b.Min.X <= min.X && max.X <= b.Max.X &&
		b.Min.Y <= min.Y && max.Y <= b.Max.Y &&
		b.Min.Z <= min.Z && max.Z <= b.Max.Z
}

// intersects reports whether the box overlaps the cell [min, max].
func (b Box) intersects(min, max morton.Point) bool {
	return b.Min.X <= max.X && min.X <= b.Max.X &&
		b.Min.Y <= max.Y && min.Y <= b.Max.Y &&
		b.Min.Z <= max.Z && min.Z <= b.Max.Z
}

// RangeQuery returns all entries whose coordinate lies inside box, in
// Morton-code order. It fails with ErrInvalidQuery when min exceeds max on
// an axis; an empty index yields an empty sequence, not an error.
//
// The returned sequence is lazy, finite and restartable. Matches are
// collected under the read lock, so every invocation sees a consistent
// snapshot that stays valid regardless of concurrent mutations.
func (ot *Octree) RangeQuery(box Box) (iter.Seq[Entry], error) {
	start := time.Now()
	matches, err := ot.rangeQuery(box)
	ot.metrics.RecordRangeQuery(len(matches), time.Since(start), err)
	ot.logger.LogQuery("range query", len(matches), err)
	if err != nil {
		return nil, err
	}
	return entrySeq(matches), nil
}

func (ot *Octree) rangeQuery(box Box) ([]Entry, error) {
	if !box.valid() {
		return nil, &ErrInvalidQuery{Box: box}
	}
	clamped, ok := ot.clampBox(box)
	if !ok {
		return nil, nil
	}
	minCode, _ := ot.enc.Encode(clamped.Min)
	maxCode, _ := ot.enc.Encode(clamped.Max)

	ot.mu.RLock()
	defer ot.mu.RUnlock()

	return ot.collectRange(ot.root, clamped, minCode, maxCode, nil)
}

// CollectRange is the eager variant of RangeQuery. When the root has
// split, collection fans out across its octants in parallel; results are
// concatenated in octant order, preserving the Morton-code sort.
func (ot *Octree) CollectRange(box Box) ([]Entry, error) {
	start := time.Now()
	matches, err := ot.collectRangeParallel(box)
	ot.metrics.RecordRangeQuery(len(matches), time.Since(start), err)
	ot.logger.LogQuery("range query", len(matches), err)
	return matches, err
}

func (ot *Octree) collectRangeParallel(box Box) ([]Entry, error) {
	if !box.valid() {
		return nil, &ErrInvalidQuery{Box: box}
	}
	clamped, ok := ot.clampBox(box)
	if !ok {
		return nil, nil
	}
	minCode, _ := ot.enc.Encode(clamped.Min)
	maxCode, _ := ot.enc.Encode(clamped.Max)

	ot.mu.RLock()
	defer ot.mu.RUnlock()

	root, err := ot.nodes.Get(ot.root)
	if err != nil {
		return nil, err
	}
	if root.leaf {
		return ot.scanLeaf(root, clamped, minCode, maxCode, nil), nil
	}

	var g errgroup.Group
	var parts [8][]Entry
	for ci, ch := range root.children {
		if ch.IsNil() {
			continue
		}
		g.Go(func() error {
			buf, err := ot.collectRange(ch, clamped, minCode, maxCode, nil)
			if err != nil {
				return err
			}
			parts[ci] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]Entry, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

// RadiusQuery returns all entries within Euclidean distance radius of
// center, in Morton-code order. It fails with ErrOutOfRange if center lies
// outside the indexed space.
func (ot *Octree) RadiusQuery(center morton.Point, radius uint32) (iter.Seq[Entry], error) {
	start := time.Now()
	matches, err := ot.radiusQuery(center, radius)
	ot.metrics.RecordRangeQuery(len(matches), time.Since(start), err)
	ot.logger.LogQuery("radius query", len(matches), err)
	if err != nil {
		return nil, err
	}
	return entrySeq(matches), nil
}

func (ot *Octree) radiusQuery(center morton.Point, radius uint32) ([]Entry, error) {
	if _, err := ot.enc.Encode(center); err != nil {
		return nil, err
	}

	// Bounding cube with saturating arithmetic, then exact distance filter.
	box := Box{
		Min: morton.Point{
			X: satSub(center.X, radius),
			Y: satSub(center.Y, radius),
			Z: satSub(center.Z, radius),
		},
		Max: morton.Point{
			X: satAdd(center.X, radius, ot.enc.Max()),
			Y: satAdd(center.Y, radius, ot.enc.Max()),
			Z: satAdd(center.Z, radius, ot.enc.Max()),
		},
	}

	cube, err := ot.rangeQuery(box)
	if err != nil {
		return nil, err
	}

	r2 := uint64(radius) * uint64(radius)
	matches := cube[:0]
	for _, e := range cube {
		if dist2(center, e.Point) <= r2 {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// collectRange appends all entries of the subtree at h that lie inside box.
// Subtrees whose cell is disjoint from the box are skipped entirely; fully
// covered subtrees are drained without per-point checks; partially covered
// leaves are skip-scanned via BIGMIN.
func (ot *Octree) collectRange(h arena.Handle, box Box, minCode, maxCode morton.Code, buf []Entry) ([]Entry, error) {
	n, err := ot.nodes.Get(h)
	if err != nil {
		return nil, err
	}

	cellMin, cellMax := ot.enc.CellBox(n.prefix, int(n.depth))
	if !box.intersects(cellMin, cellMax) {
		return buf, nil
	}
	if box.covers(cellMin, cellMax) {
		return ot.appendSubtree(n, buf)
	}
	if n.leaf {
		return ot.scanLeaf(n, box, minCode, maxCode, buf), nil
	}

	for _, ch := range n.children {
		if ch.IsNil() {
			continue
		}
		buf, err = ot.collectRange(ch, box, minCode, maxCode, buf)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// scanLeaf scans a leaf's sorted entries within [minCode, maxCode]. On an
// entry outside the box it jumps forward to the BIGMIN code instead of
// testing every intervening entry.
func (ot *Octree) scanLeaf(n *node, box Box, minCode, maxCode morton.Code, buf []Entry) []Entry {
	entries := n.entries
	i := sort.Search(len(entries), func(i int) bool { return entries[i].code >= minCode })
	for i < len(entries) {
		e := entries[i]
		if e.code > maxCode {
			break
		}
		if box.Contains(e.point) {
			buf = append(buf, Entry{Point: e.point, ID: e.id})
			i++
			continue
		}
		next, ok := ot.enc.BigMin(e.code, minCode, maxCode)
		if !ok {
			break
		}
		rest := entries[i+1:]
		i += 1 + sort.Search(len(rest), func(k int) bool { return rest[k].code >= next })
	}
	return buf
}

// appendSubtree appends every entry below n in Morton order.
func (ot *Octree) appendSubtree(n *node, buf []Entry) ([]Entry, error) {
	if n.leaf {
		for _, e := range n.entries {
			buf = append(buf, Entry{Point: e.point, ID: e.id})
		}
		return buf, nil
	}
	for _, ch := range n.children {
		if ch.IsNil() {
			continue
		}
		c, err := ot.nodes.Get(ch)
		if err != nil {
			return nil, err
		}
		buf, err = ot.appendSubtree(c, buf)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// clampBox clips box to the indexed space. ok is false when the box lies
// entirely outside it.
func (ot *Octree) clampBox(b Box) (Box, bool) {
	max := ot.enc.Max()
	if b.Min.X > max || b.Min.Y > max || b.Min.Z > max {
		return Box{}, false
	}
	if b.Max.X > max {
		b.Max.X = max
	}
	if b.Max.Y > max {
		b.Max.Y = max
	}
	if b.Max.Z > max {
		b.Max.Z = max
	}
	return b, true
}

func entrySeq(entries []Entry) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}
}

func satSub(a, b uint32) uint32 {
	if a < b {
		return 0
	}
	return a - b
}

func satAdd(a, b, max uint32) uint32 {
	if s := uint64(a) + uint64(b); s < uint64(max) {
		return uint32(s)
	}
	return max
}
