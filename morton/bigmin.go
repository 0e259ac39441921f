package morton

// dim0Mask has a bit set at every position belonging to axis 0 (x). Shifting
// it left by 1 or 2 gives the y and z masks.
const dim0Mask = 0x1249249249249249

// BigMin implements the BIGMIN step of the Tropf/Herzog litmax/bigmin range
// decomposition: given a code c that lies outside the axis-aligned box spanned
// by minCode and maxCode, it returns the smallest code inside the box that is
// greater than c. The second return value is false when no such code exists.
//
// The query engine uses it to skip-scan sorted leaf entries: on the first
// entry whose coordinate falls outside the box, the scan jumps forward to
// BigMin instead of testing every intervening code.
func (e *Encoder) BigMin(c, minCode, maxCode Code) (Code, bool) {
	zc, zmin, zmax := uint64(c), uint64(minCode), uint64(maxCode)

	var bigmin uint64
	have := false

	for pos := 3*e.bits - 1; pos >= 0; pos-- {
		bit := uint64(1) << pos
		// Bits of the same axis strictly below pos.
		lower := (uint64(dim0Mask) << (pos % 3)) & (bit - 1)

		switch {
		case zc&bit == 0 && zmin&bit == 0 && zmax&bit == 0:
			// 000: nothing to decide at this position.
		case zc&bit == 0 && zmin&bit == 0 && zmax&bit != 0:
			// 001: the box spans both halves along this axis. The upper
			// half is a candidate (load 1000.. into min), the search
			// continues in the lower half (load 0111.. into max).
			bigmin = (zmin &^ (bit | lower)) | bit
			have = true
			zmax = (zmax &^ (bit | lower)) | lower
		case zc&bit == 0 && zmin&bit != 0:
			// 011: the whole box is above c.
			return Code(zmin), true
		case zc&bit != 0 && zmax&bit == 0:
			// 100: the whole box is below c.
			return Code(bigmin), have
		case zc&bit != 0 && zmin&bit == 0 && zmax&bit != 0:
			// 101: continue in the upper half (load 1000.. into min).
			zmin = (zmin &^ (bit | lower)) | bit
		default:
			// 111: nothing to decide at this position.
		}
	}

	return Code(bigmin), have
}
