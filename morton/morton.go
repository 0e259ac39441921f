// Package morton implements 3D Morton (Z-order) encoding for unsigned
// integer coordinates.
//
// A Morton code interleaves the bits of the three coordinate axes so that
// bit i of axis a lands at position 3i+a of the code. The resulting total
// order over codes approximates spatial locality and is the foundation for
// the linearized octree in the parent package: the top 3d bits of a code
// identify the octree node containing the point at depth d.
//
// All operations are exact integer bit manipulation. No floating point is
// involved anywhere.
package morton

import "fmt"

// MaxBits is the maximum supported per-axis bit width. Three axes at 21
// bits each occupy 63 bits of a 64-bit code.
const MaxBits = 21

// Code is a 3D Morton code. For an encoder with bit width w, only the low
// 3w bits are ever set.
type Code uint64

// Point is a 3D coordinate with unsigned integer axes.
type Point struct {
	X, Y, Z uint32
}

// ErrOutOfRange is returned when a coordinate axis exceeds the encoder's
// configured bit width.
type ErrOutOfRange struct {
	Axis  string // "x", "y" or "z"
	Value uint32
	Max   uint32
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("morton: axis %s value %d out of range [0, %d]", e.Axis, e.Value, e.Max)
}

// ErrInvalidBits is returned by NewEncoder for an unsupported bit width.
type ErrInvalidBits struct {
	Bits int
}

func (e *ErrInvalidBits) Error() string {
	return fmt.Sprintf("morton: invalid bit width %d (must be 1..%d)", e.Bits, MaxBits)
}

// Encoder converts coordinates to Morton codes and back for a fixed
// per-axis bit width. The bit width is immutable: changing it would
// invalidate every code produced so far.
type Encoder struct {
	bits int
	max  uint32
}

// NewEncoder creates an Encoder for the given per-axis bit width.
func NewEncoder(bits int) (*Encoder, error) {
	if bits < 1 || bits > MaxBits {
		return nil, &ErrInvalidBits{Bits: bits}
	}
	return &Encoder{
		bits: bits,
		max:  uint32(1)<<bits - 1,
	}, nil
}

// Bits returns the configured per-axis bit width.
func (e *Encoder) Bits() int { return e.bits }

// Max returns the largest valid value for any axis.
func (e *Encoder) Max() uint32 { return e.max }

// Encode interleaves the bits of p into a Morton code. It fails with
// ErrOutOfRange if any axis exceeds the configured bit width.
func (e *Encoder) Encode(p Point) (Code, error) {
	if p.X > e.max {
		return 0, &ErrOutOfRange{Axis: "x", Value: p.X, Max: e.max}
	}
	if p.Y > e.max {
		return 0, &ErrOutOfRange{Axis: "y", Value: p.Y, Max: e.max}
	}
	if p.Z > e.max {
		return 0, &ErrOutOfRange{Axis: "z", Value: p.Z, Max: e.max}
	}
	return Code(split3(p.X) | split3(p.Y)<<1 | split3(p.Z)<<2), nil
}

// Decode is the exact inverse of Encode for any code Encode produced.
func (e *Encoder) Decode(c Code) Point {
	return Point{
		X: compact3(uint64(c)),
		Y: compact3(uint64(c) >> 1),
		Z: compact3(uint64(c) >> 2),
	}
}

// Prefix masks c to its top 3*depth bits, identifying the octree node at
// the given depth that contains c. Depth must be in [0, Bits()].
func (e *Encoder) Prefix(c Code, depth int) Code {
	if depth <= 0 {
		return 0
	}
	if depth >= e.bits {
		return c
	}
	return c &^ (Code(1)<<(3*(e.bits-depth)) - 1)
}

// ChildIndex extracts the 3-bit octant index selecting the child one level
// below a node at the given depth. Depth must be in [0, Bits()-1].
func (e *Encoder) ChildIndex(c Code, depth int) int {
	return int(c>>(3*(e.bits-depth-1))) & 7
}

// CellBox returns the inclusive coordinate bounds of the cubic region
// identified by a node prefix at the given depth.
func (e *Encoder) CellBox(prefix Code, depth int) (min, max Point) {
	min = e.Decode(prefix)
	span := uint32(1)<<(e.bits-depth) - 1
	max = Point{X: min.X + span, Y: min.Y + span, Z: min.Z + span}
	return min, max
}

// split3 spreads the low 21 bits of v so that bit i lands at bit 3i.
// Magic masks per the canonical 64-bit three-way interleave.
func split3(v uint32) uint64 {
	x := uint64(v) & 0x1fffff
	x = (x | x<<32) & 0x1f00000000ffff
	x = (x | x<<16) & 0x1f0000ff0000ff
	x = (x | x<<8) & 0x100f00f00f00f00f
	x = (x | x<<4) & 0x10c30c30c30c30c3
	x = (x | x<<2) & 0x1249249249249249
	return x
}

// compact3 is the inverse of split3: collects every third bit of x.
func compact3(x uint64) uint32 {
	x &= 0x1249249249249249
	x = (x ^ x>>2) & 0x10c30c30c30c30c3
	x = (x ^ x>>4) & 0x100f00f00f00f00f
	x = (x ^ x>>8) & 0x1f0000ff0000ff
	x = (x ^ x>>16) & 0x1f00000000ffff
	x = (x ^ x>>32) & 0x1fffff
	return uint32(x)
}
