package object

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
	"weak"

	"github.com/joshuapare/mixkit/mixin/alloc"
)

// Mixin buffers may live outside the Go heap, so the back-reference in
// front of a mixin is a handle rather than a pointer. The table maps
// handles to weak pointers; it never keeps an object alive.
var (
	handles    sync.Map // alloc.Owner -> weak.Pointer[Object]
	nextHandle atomic.Uintptr
)

func registerHandle(o *Object) alloc.Owner {
	h := alloc.Owner(nextHandle.Add(1))
	handles.Store(h, weak.Make(o))
	runtime.AddCleanup(o, func(h alloc.Owner) { handles.Delete(h) }, h)
	return h
}

func dropHandle(h alloc.Owner) { handles.Delete(h) }

func resolve(h alloc.Owner) (*Object, bool) {
	if h == 0 {
		return nil, false
	}
	v, ok := handles.Load(h)
	if !ok {
		return nil, false
	}
	o := v.(weak.Pointer[Object]).Value()
	return o, o != nil
}

// OwnerOf returns the object hosting the mixin instance at p. p must be a
// pointer obtained from an object (Get, As, Lookup or a dispatched
// implementation); anything else is undefined behaviour.
func OwnerOf(p unsafe.Pointer) (*Object, bool) {
	if p == nil {
		return nil, false
	}
	return resolve(alloc.OwnerAt(p))
}

// Owner is OwnerOf for a typed mixin pointer.
func Owner[T any](m *T) (*Object, bool) {
	return OwnerOf(unsafe.Pointer(m))
}
