// Package queue provides the bounded priority queues used by the
// branch-and-bound nearest-neighbor search.
package queue

// Item is a prioritized queue element. Ordering is lexicographic over
// (Dist, Code, ID) so that equal-distance results are deterministic.
// Value carries an arbitrary payload (a node reference or an entry).
type Item[T any] struct {
	Value T
	Dist  uint64 // squared Euclidean distance (primary priority)
	Code  uint64 // Morton code tie-break
	ID    uint64 // payload identifier tie-break
}

// Before reports whether a orders strictly before b.
func (a Item[T]) Before(b Item[T]) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	if a.Code != b.Code {
		return a.Code < b.Code
	}
	return a.ID < b.ID
}

// PriorityQueue is a value-based binary heap. Min-heaps order the smallest
// item on top (candidate expansion); max-heaps order the largest item on
// top (bounded best-k result set, evicting the current worst).
type PriorityQueue[T any] struct {
	isMaxHeap bool
	items     []Item[T]
}

// NewMin initializes a min-ordered priority queue.
func NewMin[T any](capacity int) *PriorityQueue[T] {
	return &PriorityQueue[T]{items: make([]Item[T], 0, capacity)}
}

// NewMax initializes a max-ordered priority queue.
func NewMax[T any](capacity int) *PriorityQueue[T] {
	return &PriorityQueue[T]{isMaxHeap: true, items: make([]Item[T], 0, capacity)}
}

// Len returns the number of elements in the queue.
func (pq *PriorityQueue[T]) Len() int { return len(pq.items) }

// TopItem returns the top element without removing it.
func (pq *PriorityQueue[T]) TopItem() (Item[T], bool) {
	if len(pq.items) == 0 {
		return Item[T]{}, false
	}
	return pq.items[0], true
}

// PushItem inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue[T]) PushItem(item Item[T]) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PopItem removes and returns the top element.
func (pq *PriorityQueue[T]) PopItem() (Item[T], bool) {
	n := len(pq.items)
	if n == 0 {
		return Item[T]{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items[n-1] = Item[T]{}
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

// Reset clears the queue for reuse.
func (pq *PriorityQueue[T]) Reset() {
	pq.items = pq.items[:0]
}

func (pq *PriorityQueue[T]) less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.items[j].Before(pq.items[i])
	}
	return pq.items[i].Before(pq.items[j])
}

func (pq *PriorityQueue[T]) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue[T]) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && pq.less(r, l) {
			best = r
		}
		if !pq.less(best, i) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
