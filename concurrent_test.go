package zoctree

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/zoctree/morton"
)

// TestConcurrentReadersAndWriters drives mutations and queries from
// separate goroutines against one tree. Run with -race. Readers check
// per-result sanity while the tree churns; the final shape is verified
// after the writers drain.
func TestConcurrentReadersAndWriters(t *testing.T) {
	const (
		writers      = 4
		readers      = 4
		opsPerWriter = 300
		idsPerWriter = 1000
	)

	ot, err := New(6, WithLeafCapacity(4))
	require.NoError(t, err)

	done := make(chan struct{})
	var readerWG sync.WaitGroup
	readerWG.Add(readers)
	for r := 0; r < readers; r++ {
		go func(seed int64) {
			defer readerWG.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-done:
					return
				default:
				}

				seq, err := ot.RangeQuery(Box{Max: morton.Point{X: 63, Y: 63, Z: 63}})
				if err != nil {
					t.Errorf("range query: %v", err)
					return
				}
				for e := range seq {
					if e.Point.X > 63 || e.Point.Y > 63 || e.Point.Z > 63 {
						t.Errorf("entry %d outside the indexed space: %+v", e.ID, e.Point)
						return
					}
				}

				probe := morton.Point{
					X: rng.Uint32() & 63,
					Y: rng.Uint32() & 63,
					Z: rng.Uint32() & 63,
				}
				res, err := ot.Nearest(probe, 1+rng.Intn(8))
				if err != nil {
					t.Errorf("nearest: %v", err)
					return
				}
				for i := 1; i < len(res); i++ {
					if res[i].Distance < res[i-1].Distance {
						t.Errorf("nearest results out of distance order")
						return
					}
				}

				ot.Lookup(uint64(1 + rng.Intn(writers*idsPerWriter)))
				n := 0
				for range ot.Entries() {
					if n++; n == 5 {
						break
					}
				}
				ot.Stats()
			}
		}(int64(100 + r))
	}

	// Each writer owns a disjoint id range, so every mutation has a
	// deterministic expected outcome regardless of interleaving.
	kept := make([]int, writers)
	var writerWG sync.WaitGroup
	writerWG.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer writerWG.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			base := uint64(w*idsPerWriter + 1)
			for i := 0; i < opsPerWriter; i++ {
				id := base + uint64(i)
				p := morton.Point{
					X: rng.Uint32() & 63,
					Y: rng.Uint32() & 63,
					Z: rng.Uint32() & 63,
				}
				if err := ot.Insert(p, id); err != nil {
					t.Errorf("insert %d: %v", id, err)
					return
				}
				if i%3 == 0 {
					q := morton.Point{
						X: rng.Uint32() & 63,
						Y: rng.Uint32() & 63,
						Z: rng.Uint32() & 63,
					}
					if err := ot.Update(id, q); err != nil {
						t.Errorf("update %d: %v", id, err)
						return
					}
				}
				if i%2 == 0 {
					if err := ot.Delete(id); err != nil {
						t.Errorf("delete %d: %v", id, err)
						return
					}
				} else {
					kept[w]++
				}
			}
		}(w)
	}

	writerWG.Wait()
	close(done)
	readerWG.Wait()

	want := 0
	for _, k := range kept {
		want += k
	}
	assert.Equal(t, want, ot.Len())

	st := ot.Stats()
	assert.Equal(t, want, st.Entries)
	assert.Equal(t, st.Nodes, st.Arena.Live)
	assert.Zero(t, st.Faults)
}
