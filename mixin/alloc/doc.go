// Package alloc provides the pluggable allocation strategies behind mixin
// storage and per-object mixin metadata.
//
// # Overview
//
// Every object keeps an array of Slot values (one per attached mixin) and
// every attached mixin lives in its own Block. Both are obtained through a
// Strategy, so applications can control where mixins live without the
// object or dispatch layers knowing about it.
//
// # Strategy Interface
//
// The core abstraction is the Strategy interface:
//
//   - AllocMixinArray(count, owner): storage for count slots
//   - DeallocMixinArray(arr, count, owner): release it; count matches the allocation
//   - AllocMixin(layout, owner): a buffer plus the offset of the mixin inside it
//   - DeallocMixin(block, layout, owner): release it with the exact same arguments
//
// MixinAllocator is the restricted two-method variant. Per-mixin allocators
// registered with a mixin definition implement only that; MixinOnly adapts
// one to a full Strategy that refuses the array operations.
//
// # Buffer Layout
//
// A mixin buffer is laid out as
//
//	[owner back-reference (PtrSize)][padding][mixin bytes]
//
// MixinBufferSize and MixinOffset are the two pure helpers every strategy
// must use so the back-reference always sits immediately before the mixin,
// whichever strategy produced the buffer. OwnerAt reads it back from a bare
// mixin pointer in O(1).
//
// The back-reference is an Owner handle, not a Go pointer: strategies may
// hand out memory the collector does not scan.
//
// # Implementations
//
// Heap: the default. Plain make([]byte) buffers for pointer-free mixins and
// typed cells (see NewCell) for mixins holding Go pointers.
//
// Pool: size-class segregated sync.Pool free lists for pointer-free buffers
// and slot arrays.
//
// Arena: page-granular mmap arena with per-class free lists. Pointer-free
// mixins only.
//
// Counting: decorator collecting allocation metrics.
//
// Tracked: decorator recording whether it ever allocated and which buffers
// it produced. Built with the mixdebug tag it reports ErrAllocatorMismatch
// when asked to release memory it never handed out.
//
// # Thread Safety
//
// Heap, Pool, Arena, Counting and Tracked are safe for concurrent use.
// Custom strategies shared between objects must be as well when mutations
// run concurrently.
package alloc
