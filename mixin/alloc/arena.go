package alloc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joshuapare/mixkit/internal/format"
)

const (
	// arenaGranule is the rounding applied to every arena buffer.
	arenaGranule = 16

	// defaultChunkPages is the number of pages mapped at a time.
	defaultChunkPages = 16
)

// ArenaOptions configures an Arena.
type ArenaOptions struct {
	// ChunkPages is how many pages are mapped per growth step.
	ChunkPages int

	// Limit caps the total mapped bytes. Zero means unlimited.
	Limit uintptr
}

// Arena is a bump allocator over anonymous memory mappings with free lists
// per rounded buffer size. Mixins live outside the Go heap, so the arena
// refuses pointer-bearing layouts. Slot arrays hold Go pointers as well and
// are delegated to the heap.
//
// An Arena must outlive every mixin allocated from it; Close fails while any
// are still live.
type Arena struct {
	mu       sync.Mutex
	pageSize uintptr
	opts     ArenaOptions

	chunks [][]byte // every mapping, for Close
	cur    []byte   // unused tail of the newest chunk
	mapped uintptr
	free   map[uintptr][][]byte
	out    map[*byte]struct{} // first byte of every live buffer
	closed bool
}

// NewArena creates an empty arena. Memory is mapped on first use.
func NewArena(opts ArenaOptions) *Arena {
	if opts.ChunkPages <= 0 {
		opts.ChunkPages = defaultChunkPages
	}
	return &Arena{
		pageSize: uintptr(pageSize()),
		opts:     opts,
		free:     make(map[uintptr][][]byte),
		out:      make(map[*byte]struct{}),
	}
}

// AllocMixinArray delegates to the heap.
func (a *Arena) AllocMixinArray(count int, owner Owner) ([]Slot, error) {
	return defaultHeap.AllocMixinArray(count, owner)
}

// DeallocMixinArray delegates to the heap.
func (a *Arena) DeallocMixinArray(arr []Slot, count int, owner Owner) error {
	return defaultHeap.DeallocMixinArray(arr, count, owner)
}

// AllocMixin carves a buffer out of the arena.
func (a *Arena) AllocMixin(l Layout, _ Owner) (Block, error) {
	if l.HasPointers {
		return Block{}, fmt.Errorf("%w: arena cannot host pointer-bearing mixin %s", ErrAllocationFailure, l.Type)
	}
	need := format.AlignUp(MixinBufferSize(l.Size, l.Align), arenaGranule)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return Block{}, fmt.Errorf("%w: arena closed", ErrAllocationFailure)
	}

	if list := a.free[need]; len(list) > 0 {
		buf := list[len(list)-1]
		a.free[need] = list[:len(list)-1]
		clear(buf)
		a.out[&buf[0]] = struct{}{}
		return NewRawBlock(buf, l.Align), nil
	}

	if uintptr(len(a.cur)) < need {
		if err := a.grow(need); err != nil {
			return Block{}, err
		}
	}
	buf := a.cur[:need:need]
	a.cur = a.cur[need:]
	a.out[&buf[0]] = struct{}{}
	return NewRawBlock(buf, l.Align), nil
}

// DeallocMixin puts the buffer on the free list for its size. Releasing a
// buffer the arena does not have outstanding fails and leaves the free
// lists alone.
func (a *Arena) DeallocMixin(b Block, l Layout, _ Owner) error {
	need := format.AlignUp(MixinBufferSize(l.Size, l.Align), arenaGranule)

	a.mu.Lock()
	defer a.mu.Unlock()
	if uintptr(cap(b.Buf)) != need {
		return fmt.Errorf("%w: block of %d bytes released for a %d byte layout", ErrInvalidLayout, cap(b.Buf), need)
	}
	key := &b.Buf[:1][0]
	if _, ok := a.out[key]; !ok {
		return fmt.Errorf("%w: block at %p is not outstanding in this arena", ErrInvalidLayout, key)
	}
	delete(a.out, key)
	a.free[need] = append(a.free[need], b.Buf[:need])
	return nil
}

// grow maps a new chunk large enough for need bytes. The unused tail of the
// previous chunk is abandoned.
func (a *Arena) grow(need uintptr) error {
	size := format.AlignUp(max(need, a.pageSize*uintptr(a.opts.ChunkPages)), a.pageSize)
	if a.opts.Limit != 0 && a.mapped+size > a.opts.Limit {
		return fmt.Errorf("%w: arena limit %d bytes reached (%d mapped, %d requested)",
			ErrAllocationFailure, a.opts.Limit, a.mapped, size)
	}
	chunk, err := mapPages(int(size))
	if err != nil {
		return fmt.Errorf("%w: map %d bytes: %w", ErrAllocationFailure, size, err)
	}
	a.chunks = append(a.chunks, chunk)
	a.mapped += size
	a.cur = chunk
	return nil
}

// Mapped returns the number of bytes currently mapped.
func (a *Arena) Mapped() uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mapped
}

// Live returns the number of outstanding mixin buffers.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.out)
}

// Close unmaps every chunk. It fails if mixins are still allocated.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	if len(a.out) > 0 {
		return fmt.Errorf("alloc: arena close with %d live mixins", len(a.out))
	}
	var errs []error
	for _, c := range a.chunks {
		if err := unmapPages(c); err != nil {
			errs = append(errs, err)
		}
	}
	a.chunks, a.cur, a.free = nil, nil, nil
	a.mapped = 0
	a.closed = true
	return errors.Join(errs...)
}
