package alloc

import (
	"fmt"
	"sync"
)

// Pool is a strategy recycling pointer-free mixin buffers and slot arrays
// through size-class segregated sync.Pools. Pointer-bearing mixins get typed
// cells from the heap; they are never pooled since a recycled cell could
// keep stale references alive.
//
// Released slot arrays are reused immediately, so a Pool does not suit
// objects whose mixins are dispatched concurrently with mutation.
type Pool struct {
	classes *sizeClassTable
	buffers []sync.Pool // one per class, holding *[]byte
	arrays  sync.Map    // slot count -> *sync.Pool of *[]Slot
}

// NewPool creates a pooling strategy with the given size classes.
func NewPool(cfg SizeClassConfig) *Pool {
	t := newSizeClassTable(cfg)
	p := &Pool{
		classes: t,
		buffers: make([]sync.Pool, t.NumClasses()),
	}
	for i := range p.buffers {
		size := t.classSize(i)
		p.buffers[i].New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
	return p
}

func (p *Pool) arrayPool(count int) *sync.Pool {
	if sp, ok := p.arrays.Load(count); ok {
		return sp.(*sync.Pool)
	}
	sp := &sync.Pool{New: func() any {
		arr := make([]Slot, count)
		return &arr
	}}
	actual, _ := p.arrays.LoadOrStore(count, sp)
	return actual.(*sync.Pool)
}

// AllocMixinArray returns a zeroed array of count slots.
func (p *Pool) AllocMixinArray(count int, _ Owner) ([]Slot, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative slot count %d", ErrAllocationFailure, count)
	}
	if count == 0 {
		return nil, nil
	}
	return *p.arrayPool(count).Get().(*[]Slot), nil
}

// DeallocMixinArray clears the array and returns it to the pool for count.
func (p *Pool) DeallocMixinArray(arr []Slot, count int, _ Owner) error {
	if count == 0 || arr == nil {
		return nil
	}
	arr = arr[:count]
	clear(arr)
	p.arrayPool(count).Put(&arr)
	return nil
}

// AllocMixin hands out a pooled buffer large enough for l.
func (p *Pool) AllocMixin(l Layout, _ Owner) (Block, error) {
	if l.HasPointers {
		return NewCell(l)
	}
	need := MixinBufferSize(l.Size, l.Align)
	cls := p.classes.classOf(need)
	if cls >= p.classes.NumClasses() {
		return NewRawBlock(make([]byte, need), l.Align), nil
	}
	buf := *p.buffers[cls].Get().(*[]byte)
	clear(buf)
	return NewRawBlock(buf, l.Align), nil
}

// DeallocMixin returns pooled buffers to their class.
func (p *Pool) DeallocMixin(b Block, l Layout, _ Owner) error {
	if l.HasPointers || !b.Valid() {
		return nil
	}
	cls := p.classes.classOf(MixinBufferSize(l.Size, l.Align))
	if cls >= p.classes.NumClasses() {
		return nil
	}
	buf := b.Buf[:cap(b.Buf)]
	if uintptr(len(buf)) != p.classes.classSize(cls) {
		return fmt.Errorf("%w: buffer of %d bytes does not belong to class %d", ErrInvalidLayout, len(buf), cls)
	}
	p.buffers[cls].Put(&buf)
	return nil
}

// Classes returns the name of the size class configuration.
func (p *Pool) Classes() string { return p.classes.String() }
