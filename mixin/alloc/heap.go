package alloc

import "fmt"

// Heap is the default strategy: ordinary Go heap allocations honouring the
// buffer layout contract. Releasing is left to the collector.
type Heap struct{}

var defaultHeap Strategy = Heap{}

// Default returns the strategy used when none is configured.
func Default() Strategy { return defaultHeap }

// AllocMixinArray allocates count slots.
func (Heap) AllocMixinArray(count int, _ Owner) ([]Slot, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative slot count %d", ErrAllocationFailure, count)
	}
	return make([]Slot, count), nil
}

// DeallocMixinArray leaves the array to the collector. Readers that loaded
// it before the swap may still be walking it.
func (Heap) DeallocMixinArray(arr []Slot, count int, _ Owner) error {
	if count > len(arr) {
		return fmt.Errorf("%w: releasing %d slots of a %d slot array", ErrInvalidLayout, count, len(arr))
	}
	return nil
}

// AllocMixin allocates a raw buffer, or a typed cell for pointer-bearing mixins.
func (Heap) AllocMixin(l Layout, _ Owner) (Block, error) {
	if l.HasPointers {
		return NewCell(l)
	}
	return NewRawBlock(make([]byte, MixinBufferSize(l.Size, l.Align)), l.Align), nil
}

// DeallocMixin is a no-op; the buffer becomes garbage once unreferenced.
func (Heap) DeallocMixin(Block, Layout, Owner) error { return nil }
