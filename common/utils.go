package common

import "math/bits"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// AlignUp rounds size up to the next multiple of alignment. Alignment must be a power of two.
//
// Parameters:
//   - size: the value to round
//   - alignment: the power of two boundary
//
// Returns:
//   - uint64: the smallest multiple of alignment that is >= size
func AlignUp(size, alignment uint64) uint64 {
	return (size + alignment - 1) &^ (alignment - 1)
}

// MipLevelCount returns the length of a full log2 mip chain for the given dimensions,
// floor(log2(max(width, height))) + 1. Zero sized images still get one level.
//
// Parameters:
//   - width: the base level width in pixels
//   - height: the base level height in pixels
//
// Returns:
//   - uint32: the number of mip levels
func MipLevelCount(width, height uint32) uint32 {
	m := max(width, height)
	if m == 0 {
		return 1
	}
	return uint32(bits.Len32(m))
}

// MipExtent returns the size of one dimension at the given mip level (minimum 1).
func MipExtent(base, level uint32) uint32 {
	return max(base>>level, 1)
}
