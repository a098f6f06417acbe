package value

import "math"

// HashBytes implements spec.md §4.1's string hash: length-mixed sampling
// that walks backward from the end of the buffer in steps of (len>>5)+1,
// ported directly from the reference implementation's string-hashing loop
// (`src/cobj.c`'s hashing helper in the original Cosmo sources).
func HashBytes(b []byte) uint32 {
	length := len(b)
	h := uint32(length)
	step := uint32(length>>5) + 1

	for i := uint32(length); i >= step; i -= step {
		h = (h << 5) + (h >> 2) + uint32(b[i-1])
	}

	return h
}

// HashNumber implements spec.md §4.1's number hash: xor the 32-bit halves of
// the IEEE-754 bit pattern, forcing zero (including -0.0) to hash to 0 so
// the two collide as the invariants in spec.md §8 require.
func HashNumber(n float64) uint32 {
	if n == 0 {
		return 0
	}

	bits := math.Float64bits(n)

	return uint32(bits) ^ uint32(bits>>32)
}

// HashValue hashes a Value per the object-type-specific rule in spec.md
// §4.1: strings hash by content (cached on the string object), numbers by
// HashNumber, everything else contributes 0 (tables never key booleans/nil
// in Cosmo's surface language, and non-string references are compared by
// identity so their hash only needs to be stable, not distinguishing).
func HashValue(v Value) uint32 {
	switch v.typ {
	case TypeNumber:
		return HashNumber(v.num)
	case TypeRef:
		return hashRef(v.ref)
	default:
		return 0
	}
}

// hasher lets package object's String type plug its cached hash in without
// package value needing to know about CObjString's layout.
type hasher interface {
	Hash() uint32
}

func hashRef(r Ref) uint32 {
	if h, ok := r.(hasher); ok {
		return h.Hash()
	}

	return 0
}
