package zoctree

import (
	"fmt"
	"sort"

	"github.com/hupe1980/zoctree/internal/arena"
	"github.com/hupe1980/zoctree/morton"
)

// node is one cubic cell of the octree, identified by the Morton-code
// prefix of its depth. A leaf holds entries sorted by (code, id); an
// internal node holds up to eight child handles indexed by octant.
// count is the number of entries in the whole subtree, kept current on
// every mutation so merge checks are O(1).
type node struct {
	prefix   morton.Code
	depth    uint8
	leaf     bool
	count    int
	entries  []leafEntry
	children [8]arena.Handle
}

// leafEntry retains the original coordinate next to its code so queries
// never need to decode.
type leafEntry struct {
	code  morton.Code
	id    uint64
	point morton.Point
}

// location is the id-index record for a live entry.
type location struct {
	code  morton.Code
	point morton.Point
}

type pathStep struct {
	h arena.Handle
	n *node
}

// searchEntries returns the insertion point for (code, id) in a leaf's
// sorted entries.
func searchEntries(entries []leafEntry, code morton.Code, id uint64) int {
	return sort.Search(len(entries), func(i int) bool {
		e := entries[i]
		if e.code != code {
			return e.code > code
		}
		return e.id >= id
	})
}

// insertLocked descends from the root to the leaf owning code, inserts the
// entry in sorted position and splits while the leaf is over capacity and
// above the depth bound. Caller holds the write lock and has already
// rejected duplicates, so no failure can leave the tree half-mutated.
func (ot *Octree) insertLocked(p morton.Point, code morton.Code, id uint64) error {
	h := ot.root
	var n *node
	for {
		var err error
		n, err = ot.nodes.Get(h)
		if err != nil {
			return err
		}
		n.count++
		if n.leaf {
			break
		}
		ci := ot.enc.ChildIndex(code, int(n.depth))
		child := n.children[ci]
		if child.IsNil() {
			child = ot.nodes.Alloc(node{
				prefix: ot.enc.Prefix(code, int(n.depth)+1),
				depth:  n.depth + 1,
				leaf:   true,
			})
			// Paged arena: Alloc never moves n.
			n.children[ci] = child
		}
		h = child
	}

	i := searchEntries(n.entries, code, id)
	n.entries = append(n.entries, leafEntry{})
	copy(n.entries[i+1:], n.entries[i:])
	n.entries[i] = leafEntry{code: code, id: id, point: p}

	// At most one child can inherit more than capacity entries, so the
	// split cascades along a single path. At maxDepth the leaf is allowed
	// to exceed capacity: the depth bound wins.
	for int(n.depth) < ot.maxDepth && len(n.entries) > ot.capacity {
		over := ot.splitLeaf(n)
		if over == nil {
			break
		}
		n = over
	}
	return nil
}

// splitLeaf converts an overfull leaf into an internal node, redistributing
// its entries into child leaves by octant. Entries are sorted by code, so
// each octant's entries form a contiguous, already-sorted run. Returns the
// child that is still over capacity, if any.
func (ot *Octree) splitLeaf(n *node) *node {
	depth := int(n.depth)
	entries := n.entries

	var over *node
	i := 0
	for i < len(entries) {
		ci := ot.enc.ChildIndex(entries[i].code, depth)
		j := i + 1
		for j < len(entries) && ot.enc.ChildIndex(entries[j].code, depth) == ci {
			j++
		}
		group := make([]leafEntry, j-i)
		copy(group, entries[i:j])

		h := ot.nodes.Alloc(node{
			prefix:  ot.enc.Prefix(entries[i].code, depth+1),
			depth:   uint8(depth + 1),
			leaf:    true,
			count:   len(group),
			entries: group,
		})
		n.children[ci] = h
		if len(group) > ot.capacity {
			over, _ = ot.nodes.Get(h)
		}
		i = j
	}

	n.leaf = false
	n.entries = nil
	return over
}

// deleteLocked removes the entry for id, then merges upward: the
// shallowest ancestor whose subtree count refits in a single leaf is
// collapsed, and an empty non-root leaf is unlinked from its parent.
// Caller holds the write lock and guarantees id is live.
func (ot *Octree) deleteLocked(id uint64, loc location) error {
	var path [morton.MaxBits + 1]pathStep
	depth := 0
	h := ot.root
	for {
		n, err := ot.nodes.Get(h)
		if err != nil {
			return err
		}
		path[depth] = pathStep{h: h, n: n}
		if n.leaf {
			break
		}
		child := n.children[ot.enc.ChildIndex(loc.code, int(n.depth))]
		if child.IsNil() {
			return fmt.Errorf("zoctree: id %d not reachable in tree: %w", id, ErrInvalidHandle)
		}
		h = child
		depth++
	}

	leaf := path[depth].n
	i := searchEntries(leaf.entries, loc.code, id)
	if i >= len(leaf.entries) || leaf.entries[i].code != loc.code || leaf.entries[i].id != id {
		return fmt.Errorf("zoctree: id %d missing from its leaf: %w", id, ErrInvalidHandle)
	}
	leaf.entries = append(leaf.entries[:i], leaf.entries[i+1:]...)

	for d := 0; d <= depth; d++ {
		path[d].n.count--
	}

	for d := 0; d <= depth; d++ {
		step := path[d]
		if step.n.count > ot.capacity {
			continue
		}
		if !step.n.leaf {
			if err := ot.collapse(step.n); err != nil {
				return err
			}
		}
		if step.n.count == 0 && d > 0 {
			parent := path[d-1].n
			parent.children[ot.enc.ChildIndex(loc.code, int(parent.depth))] = arena.Nil
			if err := ot.nodes.Free(step.h); err != nil {
				return err
			}
		}
		break
	}
	return nil
}

// collapse turns an internal node back into a leaf holding all entries of
// its subtree, freeing the descendants. Draining children in octant order
// preserves the global (code, id) sort.
func (ot *Octree) collapse(n *node) error {
	buf := make([]leafEntry, 0, n.count)
	buf, err := ot.drain(n, buf)
	if err != nil {
		return err
	}
	n.leaf = true
	n.entries = buf
	return nil
}

func (ot *Octree) drain(n *node, buf []leafEntry) ([]leafEntry, error) {
	for ci, ch := range n.children {
		if ch.IsNil() {
			continue
		}
		c, err := ot.nodes.Get(ch)
		if err != nil {
			return nil, err
		}
		if c.leaf {
			buf = append(buf, c.entries...)
		} else {
			buf, err = ot.drain(c, buf)
			if err != nil {
				return nil, err
			}
		}
		if err := ot.nodes.Free(ch); err != nil {
			return nil, err
		}
		n.children[ci] = arena.Nil
	}
	return buf, nil
}

// updateLocked moves id to a new coordinate. When the new code still
// belongs to the leaf that holds the entry, it is repositioned in place;
// otherwise the move degenerates to delete + insert, with identical
// post-conditions.
func (ot *Octree) updateLocked(id uint64, loc location, p morton.Point, code morton.Code) error {
	h := ot.root
	for {
		n, err := ot.nodes.Get(h)
		if err != nil {
			return err
		}
		if n.leaf {
			if ot.enc.Prefix(code, int(n.depth)) != n.prefix {
				break
			}
			i := searchEntries(n.entries, loc.code, id)
			if i >= len(n.entries) || n.entries[i].code != loc.code || n.entries[i].id != id {
				return fmt.Errorf("zoctree: id %d missing from its leaf: %w", id, ErrInvalidHandle)
			}
			n.entries = append(n.entries[:i], n.entries[i+1:]...)
			j := searchEntries(n.entries, code, id)
			n.entries = append(n.entries, leafEntry{})
			copy(n.entries[j+1:], n.entries[j:])
			n.entries[j] = leafEntry{code: code, id: id, point: p}
			return nil
		}
		child := n.children[ot.enc.ChildIndex(loc.code, int(n.depth))]
		if child.IsNil() {
			return fmt.Errorf("zoctree: id %d not reachable in tree: %w", id, ErrInvalidHandle)
		}
		h = child
	}

	if err := ot.deleteLocked(id, loc); err != nil {
		return err
	}
	return ot.insertLocked(p, code, id)
}
