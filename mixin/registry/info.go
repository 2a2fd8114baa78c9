package registry

import (
	"reflect"
	"unsafe"

	"github.com/joshuapare/mixkit/mixin/alloc"
	"github.com/joshuapare/mixkit/mixin/ident"
)

// MixinInfo is a published registry entry. Entries are immutable; callers
// must not modify them.
type MixinInfo struct {
	ID        ident.Mixin
	Name      string
	Layout    alloc.Layout
	Allocator alloc.MixinAllocator
	Init      func(unsafe.Pointer)
	Destroy   func(unsafe.Pointer)
	Copy      func(dst, src unsafe.Pointer)
	Impls     []BoundImpl

	// Defined is false for mixins that are only declared so far.
	Defined bool

	byMessage map[ident.Message]int
	pending   []Impl // unbound impls while a Builder owns the entry
}

// BoundImpl is an implementation with its message resolved.
type BoundImpl struct {
	Message  ident.Message
	Priority int
	Fn       any
}

// Impl returns the mixin's implementation of msg.
func (m *MixinInfo) Impl(msg ident.Message) (BoundImpl, bool) {
	i, ok := m.byMessage[msg]
	if !ok {
		return BoundImpl{}, false
	}
	return m.Impls[i], true
}

// Implements reports whether the mixin implements msg.
func (m *MixinInfo) Implements(msg ident.Message) bool {
	_, ok := m.byMessage[msg]
	return ok
}

// MessageInfo is a published message entry.
type MessageInfo struct {
	ID        ident.Message
	Name      string
	Signature reflect.Type
}

// ModuleInfo summarizes a registered module.
type ModuleInfo struct {
	Name     string
	Defines  []string
	Declares []string
	Messages []string
}
