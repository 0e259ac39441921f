// Package zoctree provides an in-memory spatial index for 3D integer
// points, built on a Morton-encoded (linearized) octree.
//
// Points are addressed by a Morton code: the bits of the three coordinate
// axes interleaved into a single integer whose total order approximates
// spatial locality. The octree is stored flat in a node arena with stable
// handles instead of pointers, and leaf entries are kept sorted by code so
// range queries can skip-scan with the litmax/bigmin decomposition.
//
// Supported operations:
//
//   - Insert / Delete / Update / Lookup keyed by an opaque payload id
//   - RangeQuery over an axis-aligned box (lazy, snapshot-consistent)
//   - RadiusQuery around a center point
//   - Nearest: exact k-nearest-neighbor search with branch-and-bound pruning
//
// # Quick Start
//
//	ot, err := zoctree.New(16) // 16 bits per axis, coordinates 0..65535
//	if err != nil {
//	    panic(err)
//	}
//
//	_ = ot.Insert(morton.Point{X: 1, Y: 2, Z: 3}, 42)
//
//	seq, err := ot.RangeQuery(zoctree.Box{
//	    Min: morton.Point{X: 0, Y: 0, Z: 0},
//	    Max: morton.Point{X: 10, Y: 10, Z: 10},
//	})
//	if err != nil {
//	    panic(err)
//	}
//	for e := range seq {
//	    fmt.Println(e.ID, e.Point)
//	}
//
// # Concurrency
//
// An Octree is safe for concurrent use. Mutations take an exclusive lock;
// lookups and queries share a read lock, so readers never observe a node
// mid-split or mid-merge. Query sequences are collected under the read
// lock and stay valid indefinitely, regardless of later mutations.
//
// # Persistence
//
// The index is purely in-memory. A host application that needs durability
// serializes the output of Entries (Morton-ordered) and rebuilds the index
// with BatchInsert.
package zoctree
