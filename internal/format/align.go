package format

// Alignment utilities for mixin storage buffers.
// All alignments are powers of two; callers validate with IsPow2 first.

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignUp returns n aligned up to the next multiple of align.
//
// Example:
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 16) = 16
func AlignUp(n, align uintptr) uintptr {
	mask := align - 1
	return (n + mask) &^ mask
}

// Padding returns how many bytes must be added to n to reach the next
// multiple of align.
//
// Example:
//
//	Padding(0, 8)  = 0
//	Padding(9, 8)  = 7
//	Padding(17, 4) = 3
func Padding(n, align uintptr) uintptr {
	return (align - n&(align-1)) & (align - 1)
}

// Aligned reports whether n is a multiple of align.
func Aligned(n, align uintptr) bool {
	return n&(align-1) == 0
}
