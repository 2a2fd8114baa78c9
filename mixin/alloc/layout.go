package alloc

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/joshuapare/mixkit/internal/format"
)

// PtrSize is the size of the owner back-reference in bytes.
const PtrSize = uintptr(format.PtrSize)

// MaxAlign is the largest supported mixin alignment.
const MaxAlign = uintptr(format.MaxAlign)

// MixinBufferSize returns the buffer size needed to hold a mixin of the given
// size and alignment plus its leading back-reference, whatever the address
// of the buffer turns out to be. Zero-sized mixins are given one byte so the
// mixin address stays inside the buffer.
//
// Example (PtrSize = 8):
//
//	MixinBufferSize(4, 4)   = 4 + 3 + 8   = 15
//	MixinBufferSize(16, 64) = 16 + 63 + 8 = 87
func MixinBufferSize(size, align uintptr) uintptr {
	if size == 0 {
		size = 1
	}
	return size + align - 1 + PtrSize
}

// MixinOffset returns the offset of the mixin inside a buffer starting at
// base: the first address at least PtrSize bytes past base that satisfies
// align.
func MixinOffset(base, align uintptr) uintptr {
	return PtrSize + format.Padding(base+PtrSize, align)
}

// ValidateLayout checks that l can be honoured by the runtime's strategies.
func ValidateLayout(l Layout) error {
	if !format.IsPow2(l.Align) || l.Align > MaxAlign {
		return fmt.Errorf("%w: alignment %d must be a power of two <= %d", ErrInvalidLayout, l.Align, MaxAlign)
	}
	if l.Type != nil {
		if l.Size != l.Type.Size() {
			return fmt.Errorf("%w: size %d does not match %s (%d)", ErrInvalidLayout, l.Size, l.Type, l.Type.Size())
		}
		if l.Align < uintptr(l.Type.Align()) {
			return fmt.Errorf("%w: alignment %d below natural alignment of %s (%d)",
				ErrInvalidLayout, l.Align, l.Type, l.Type.Align())
		}
	}
	if l.HasPointers {
		if l.Type == nil {
			return fmt.Errorf("%w: pointer-bearing mixin needs a Go type", ErrInvalidLayout)
		}
		if l.Align > PtrSize {
			return fmt.Errorf("%w: pointer-bearing mixin %s cannot be over-aligned to %d", ErrInvalidLayout, l.Type, l.Align)
		}
	}
	return nil
}

// LayoutOf derives the layout of a Go mixin type at its natural alignment.
func LayoutOf(t reflect.Type) Layout {
	return Layout{
		Size:        t.Size(),
		Align:       uintptr(t.Align()),
		Type:        t,
		HasPointers: HasPointers(t),
	}
}

// NewRawBlock wraps a freshly obtained buffer, placing the mixin at the
// offset MixinOffset computes for the buffer's address. buf must be at least
// MixinBufferSize(size, align) bytes.
func NewRawBlock(buf []byte, align uintptr) Block {
	b := Block{Buf: buf}
	b.Offset = MixinOffset(b.Base(), align)
	return b
}

// PutOwner writes the owner back-reference immediately before the mixin.
func PutOwner(b Block, owner Owner) {
	format.PutUintptr(b.Buf, int(b.Offset-PtrSize), uintptr(owner))
}

// OwnerAt reads the back-reference stored in front of the mixin at p.
// p must point at a mixin allocated through a Strategy.
func OwnerAt(p unsafe.Pointer) Owner {
	hdr := unsafe.Slice((*byte)(unsafe.Add(p, -int(PtrSize))), PtrSize)
	return Owner(format.ReadUintptr(hdr, 0))
}

// HasPointers reports whether values of t contain anything the Go collector
// must trace.
func HasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return t.Len() > 0 && HasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if HasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

var cellTypes sync.Map // reflect.Type -> reflect.Type

// cellType returns struct{ Owner uintptr; Mixin T }, the typed twin of the
// raw buffer layout. Its Mixin field sits at MixinOffset for any alignment
// up to PtrSize.
func cellType(t reflect.Type) reflect.Type {
	if ct, ok := cellTypes.Load(t); ok {
		return ct.(reflect.Type)
	}
	ct := reflect.StructOf([]reflect.StructField{
		{Name: "Owner", Type: reflect.TypeFor[uintptr]()},
		{Name: "Mixin", Type: t},
	})
	actual, _ := cellTypes.LoadOrStore(t, ct)
	return actual.(reflect.Type)
}

// NewCell allocates collector-visible storage for a mixin type that holds Go
// pointers. The returned block has the same shape as a raw block.
func NewCell(l Layout) (Block, error) {
	if l.Type == nil {
		return Block{}, fmt.Errorf("%w: typed cell needs a Go type", ErrInvalidLayout)
	}
	ct := cellType(l.Type)
	cell := reflect.New(ct)
	base := cell.UnsafePointer()
	b := Block{
		Buf:    unsafe.Slice((*byte)(base), ct.Size()),
		Offset: ct.Field(1).Offset,
	}
	if b.Offset != MixinOffset(uintptr(base), l.Align) {
		return Block{}, fmt.Errorf("%w: %s alignment %d not reachable in a typed cell", ErrInvalidLayout, l.Type, l.Align)
	}
	return b, nil
}
