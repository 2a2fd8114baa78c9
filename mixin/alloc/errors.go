package alloc

import "errors"

var (
	// ErrAllocationFailure indicates the strategy could not provide storage.
	ErrAllocationFailure = errors.New("alloc: allocation failure")

	// ErrAllocatorMismatch indicates memory was released through a strategy
	// that did not allocate it. Only reported in mixdebug builds.
	ErrAllocatorMismatch = errors.New("alloc: allocator mismatch")

	// ErrArrayUnsupported is returned by MixinOnly for slot array requests.
	ErrArrayUnsupported = errors.New("alloc: mixin-only strategy cannot allocate slot arrays")

	// ErrInvalidLayout indicates a size/alignment combination no strategy
	// can honour, or a release whose block or count does not match what
	// the strategy handed out.
	ErrInvalidLayout = errors.New("alloc: invalid mixin layout")
)
