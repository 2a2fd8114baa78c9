// Package format holds the low-level layout arithmetic shared by the mixin
// allocation strategies: power-of-two alignment and the little-endian
// encoding of the owner back-reference stored in front of every mixin.
// It is kept independent from the public API so strategies living outside
// this module can reproduce the exact same layout through mixin/alloc.
package format

import "unsafe"

const (
	// PtrSize is the width of the owner back-reference slot in bytes.
	// It matches the platform pointer size.
	PtrSize = int(unsafe.Sizeof(uintptr(0)))

	// MaxAlign is the largest mixin alignment accepted by the runtime (one page).
	MaxAlign = 4096

	// MinAlign is the smallest legal alignment.
	MinAlign = 1
)
