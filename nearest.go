package zoctree

import (
	"time"

	"github.com/hupe1980/zoctree/internal/arena"
	"github.com/hupe1980/zoctree/internal/queue"
	"github.com/hupe1980/zoctree/morton"
)

// Result is a nearest-neighbor match. Distance is the squared Euclidean
// distance, exact in integer arithmetic.
type Result struct {
	Point    morton.Point
	ID       uint64
	Distance uint64
}

// Nearest returns up to k entries ordered by ascending distance to p.
// Ties at equal distance break by ascending Morton code, then payload id,
// so results are deterministic. It fails with ErrInvalidK for k <= 0 and
// ErrOutOfRange for a probe point outside the indexed space; an empty
// index yields an empty result, not an error.
func (ot *Octree) Nearest(p morton.Point, k int) ([]Result, error) {
	start := time.Now()
	res, err := ot.nearest(p, k)
	ot.metrics.RecordNearest(k, time.Since(start), err)
	ot.logger.LogQuery("nearest", len(res), err)
	return res, err
}

func (ot *Octree) nearest(p morton.Point, k int) ([]Result, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if _, err := ot.enc.Encode(p); err != nil {
		return nil, err
	}

	ot.mu.RLock()
	defer ot.mu.RUnlock()

	if len(ot.ids) == 0 {
		return nil, nil
	}

	// Branch and bound: expand tree cells by ascending minimum possible
	// distance, keep the k best entries in a bounded max-heap and stop
	// once no unexplored cell can beat the current k-th best.
	// The result heap never grows past k+1, but pre-allocating from a
	// caller-supplied k would let a huge k allocate unboundedly; the live
	// entry count caps what the heap can ever hold.
	bestCap := k
	if n := len(ot.ids); bestCap > n {
		bestCap = n
	}
	cand := queue.NewMin[arena.Handle](64)
	best := queue.NewMax[morton.Point](bestCap + 1)

	cand.PushItem(queue.Item[arena.Handle]{Value: ot.root})
	for cand.Len() > 0 {
		c, _ := cand.PopItem()
		if best.Len() == k {
			// Strict comparison: an equal-distance cell can still hold an
			// entry winning the (code, id) tie-break.
			if w, _ := best.TopItem(); c.Dist > w.Dist {
				break
			}
		}

		n, err := ot.nodes.Get(c.Value)
		if err != nil {
			return nil, err
		}

		if n.leaf {
			for _, e := range n.entries {
				item := queue.Item[morton.Point]{
					Value: e.point,
					Dist:  dist2(p, e.point),
					Code:  uint64(e.code),
					ID:    e.id,
				}
				if best.Len() < k {
					best.PushItem(item)
				} else if w, _ := best.TopItem(); item.Before(w) {
					best.PushItem(item)
					best.PopItem()
				}
			}
			continue
		}

		for _, ch := range n.children {
			if ch.IsNil() {
				continue
			}
			cn, err := ot.nodes.Get(ch)
			if err != nil {
				return nil, err
			}
			cellMin, cellMax := ot.enc.CellBox(cn.prefix, int(cn.depth))
			d := distToCell(p, cellMin, cellMax)
			if best.Len() == k {
				if w, _ := best.TopItem(); d > w.Dist {
					continue
				}
			}
			cand.PushItem(queue.Item[arena.Handle]{
				Value: ch,
				Dist:  d,
				Code:  uint64(cn.prefix),
			})
		}
	}

	out := make([]Result, best.Len())
	for i := best.Len() - 1; i >= 0; i-- {
		it, _ := best.PopItem()
		out[i] = Result{Point: it.Value, ID: it.ID, Distance: it.Dist}
	}
	return out, nil
}

// dist2 returns the squared Euclidean distance between two points.
func dist2(a, b morton.Point) uint64 {
	dx := int64(a.X) - int64(b.X)
	dy := int64(a.Y) - int64(b.Y)
	dz := int64(a.Z) - int64(b.Z)
	return uint64(dx*dx + dy*dy + dz*dz)
}

// distToCell returns the squared distance from p to the nearest point of
// the cell [min, max], zero when p lies inside it.
func distToCell(p, min, max morton.Point) uint64 {
	return axisDist2(p.X, min.X, max.X) +
		axisDist2(p.Y, min.Y, max.Y) +
		axisDist2(p.Z, min.Z, max.Z)
}

func axisDist2(v, lo, hi uint32) uint64 {
	if v < lo {
		d := uint64(lo - v)
		return d * d
	}
	if v > hi {
		d := uint64(v - hi)
		return d * d
	}
	return 0
}
