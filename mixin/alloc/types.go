package alloc

import (
	"reflect"
	"unsafe"

	"github.com/joshuapare/mixkit/mixin/ident"
)

// Owner is the back-reference written in front of every mixin: the handle of
// the object hosting it. Zero means "no owner".
type Owner uintptr

// Layout describes the storage a mixin needs.
type Layout struct {
	Mixin ident.Mixin
	Size  uintptr
	Align uintptr

	// Type is the Go type of the mixin instance. It is nil for raw mixins
	// that are described only by size and alignment.
	Type reflect.Type

	// HasPointers reports whether Type contains Go pointers. Such mixins
	// must live in memory the collector scans.
	HasPointers bool
}

// Block is one mixin storage buffer and the offset of the mixin inside it.
type Block struct {
	Buf    []byte
	Offset uintptr
}

// Valid reports whether b refers to storage.
func (b Block) Valid() bool { return len(b.Buf) != 0 }

// Ptr returns the address of the mixin instance.
func (b Block) Ptr() unsafe.Pointer {
	return unsafe.Pointer(&b.Buf[b.Offset])
}

// Base returns the address of the first byte of the buffer.
func (b Block) Base() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b.Buf)))
}

// Slot is one mixin-data-in-object entry. It carries everything needed to
// release the mixin exactly the way it was allocated.
type Slot struct {
	Mixin     ident.Mixin
	Block     Block
	Layout    Layout
	Allocator MixinAllocator
}

// MixinAllocator allocates individual mixin instances.
//
// Implementations:
//   - Heap, Pool, Arena: concrete strategies
//   - Counting, Tracked: decorators
//
// Allocators registered for a single mixin type only need this half of the
// contract.
type MixinAllocator interface {
	// AllocMixin returns a buffer and the offset at which the mixin starts.
	// The offset satisfies l.Align and leaves PtrSize bytes in front of it
	// for the owner back-reference. Use MixinBufferSize and MixinOffset.
	AllocMixin(l Layout, owner Owner) (Block, error)

	// DeallocMixin releases a block obtained from AllocMixin. It is called
	// with the exact block, layout and owner used at allocation.
	DeallocMixin(b Block, l Layout, owner Owner) error
}

// Strategy is the full allocation contract used by objects.
type Strategy interface {
	MixinAllocator

	// AllocMixinArray returns storage for count slots.
	AllocMixinArray(count int, owner Owner) ([]Slot, error)

	// DeallocMixinArray releases an array from AllocMixinArray. count is the
	// count used at allocation; strategies may rely on it instead of
	// storing the length themselves.
	DeallocMixinArray(arr []Slot, count int, owner Owner) error
}
