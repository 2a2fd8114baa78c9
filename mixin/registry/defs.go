package registry

import (
	"reflect"
	"unsafe"

	"github.com/joshuapare/mixkit/mixin/alloc"
)

// MixinDef describes a mixin a module defines.
type MixinDef struct {
	// Name identifies the mixin across modules. It defaults to the
	// package-qualified name of Type.
	Name string

	// Type is the Go type of the mixin. It may be nil for raw mixins
	// described by Size and Align only.
	Type reflect.Type

	// Size and Align default to those of Type. Align may be raised above
	// the natural alignment for pointer-free mixins.
	Size  uintptr
	Align uintptr

	// Allocator overrides the object's strategy for this mixin's storage.
	Allocator alloc.MixinAllocator

	// Init runs on freshly zeroed storage; Destroy runs before the storage
	// is released. Both are optional.
	Init    func(p unsafe.Pointer)
	Destroy func(p unsafe.Pointer)

	// Copy fills dst, freshly allocated and zeroed, from src. Objects
	// holding a mixin without Copy cannot be copied.
	Copy func(dst, src unsafe.Pointer)

	// Impls lists the messages the mixin implements.
	Impls []Impl
}

// MessageDef describes a message: its name and the Go signature of its
// callers, func(A) R.
type MessageDef struct {
	Name      string
	Signature reflect.Type
}

// Impl binds a message to a type-erased implementation. Fn must have the
// type func(unsafe.Pointer, A) R for a message of signature func(A) R; the
// dispatch package builds these.
type Impl struct {
	Message  MessageDef
	Priority int
	Fn       any
}

// Mixin returns a definition for the Go type T.
func Mixin[T any](name string, impls ...Impl) MixinDef {
	return MixinDef{Name: name, Type: reflect.TypeFor[T](), Impls: impls}
}

// InitFunc adapts a typed constructor to MixinDef.Init.
func InitFunc[T any](f func(*T)) func(unsafe.Pointer) {
	return func(p unsafe.Pointer) { f((*T)(p)) }
}

// DestroyFunc adapts a typed destructor to MixinDef.Destroy.
func DestroyFunc[T any](f func(*T)) func(unsafe.Pointer) {
	return func(p unsafe.Pointer) { f((*T)(p)) }
}

// CopyFunc adapts a typed copy function to MixinDef.Copy.
func CopyFunc[T any](f func(dst, src *T)) func(dst, src unsafe.Pointer) {
	return func(dst, src unsafe.Pointer) { f((*T)(dst), (*T)(src)) }
}

// AssignCopy is a MixinDef.Copy that assigns the whole value.
func AssignCopy[T any]() func(dst, src unsafe.Pointer) {
	return CopyFunc(func(dst, src *T) { *dst = *src })
}

// erasedSignature returns func(unsafe.Pointer, A) R for func(A) R.
func erasedSignature(sig reflect.Type) reflect.Type {
	in := make([]reflect.Type, 0, sig.NumIn()+1)
	in = append(in, reflect.TypeFor[unsafe.Pointer]())
	for i := range sig.NumIn() {
		in = append(in, sig.In(i))
	}
	out := make([]reflect.Type, 0, sig.NumOut())
	for i := range sig.NumOut() {
		out = append(out, sig.Out(i))
	}
	return reflect.FuncOf(in, out, false)
}
