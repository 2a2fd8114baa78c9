package alloc

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Tracked wraps a Strategy and remembers whether it has ever allocated.
// With DebugChecks it also records every buffer and array it produced and
// refuses to release anything else with ErrAllocatorMismatch, instead of
// letting the inner strategy free memory it does not own.
type Tracked struct {
	inner     Strategy
	allocated atomic.Bool

	mu     sync.Mutex
	blocks map[uintptr]struct{}
	arrays map[*Slot]struct{}
}

// Track wraps s.
func Track(s Strategy) *Tracked {
	t := &Tracked{inner: s}
	if DebugChecks {
		t.blocks = make(map[uintptr]struct{})
		t.arrays = make(map[*Slot]struct{})
	}
	return t
}

// HasAllocated reports whether any allocation went through t.
func (t *Tracked) HasAllocated() bool { return t.allocated.Load() }

func (t *Tracked) AllocMixinArray(count int, owner Owner) ([]Slot, error) {
	arr, err := t.inner.AllocMixinArray(count, owner)
	if err != nil {
		return nil, err
	}
	t.allocated.Store(true)
	if DebugChecks && len(arr) > 0 {
		t.mu.Lock()
		t.arrays[unsafe.SliceData(arr)] = struct{}{}
		t.mu.Unlock()
	}
	return arr, nil
}

func (t *Tracked) DeallocMixinArray(arr []Slot, count int, owner Owner) error {
	if DebugChecks && len(arr) > 0 {
		key := unsafe.SliceData(arr)
		t.mu.Lock()
		_, ok := t.arrays[key]
		delete(t.arrays, key)
		t.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: slot array %p was not allocated by this strategy", ErrAllocatorMismatch, key)
		}
	}
	return t.inner.DeallocMixinArray(arr, count, owner)
}

func (t *Tracked) AllocMixin(l Layout, owner Owner) (Block, error) {
	b, err := t.inner.AllocMixin(l, owner)
	if err != nil {
		return Block{}, err
	}
	t.allocated.Store(true)
	if DebugChecks {
		t.mu.Lock()
		t.blocks[b.Base()] = struct{}{}
		t.mu.Unlock()
	}
	return b, nil
}

func (t *Tracked) DeallocMixin(b Block, l Layout, owner Owner) error {
	if DebugChecks {
		t.mu.Lock()
		_, ok := t.blocks[b.Base()]
		delete(t.blocks, b.Base())
		t.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s buffer %#x was not allocated by this strategy", ErrAllocatorMismatch, l.Mixin, b.Base())
		}
	}
	return t.inner.DeallocMixin(b, l, owner)
}

// Unwrap returns the wrapped strategy.
func (t *Tracked) Unwrap() Strategy { return t.inner }
