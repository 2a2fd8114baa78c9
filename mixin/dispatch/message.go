package dispatch

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/mixkit/mixin/ident"
	"github.com/joshuapare/mixkit/mixin/registry"
)

// Message is a typed handle for the message name with signature func(A) R.
// Handles are cheap; several handles for the same name resolve to the same
// identifier. Messages without an argument use struct{} for A.
type Message[A, R any] struct {
	name  string
	sig   reflect.Type
	cache atomic.Pointer[resolution]
}

type resolution struct {
	reg *registry.Registry
	gen uint64
	id  ident.Message
	err error
}

// NewMessage creates a handle for the message name.
func NewMessage[A, R any](name string) *Message[A, R] {
	return &Message[A, R]{name: name, sig: reflect.TypeFor[func(A) R]()}
}

// Name returns the message name.
func (m *Message[A, R]) Name() string { return m.name }

// Def returns the registry definition of the message.
func (m *Message[A, R]) Def() registry.MessageDef {
	return registry.MessageDef{Name: m.name, Signature: m.sig}
}

// ID resolves the message identifier in reg's current view.
func (m *Message[A, R]) ID(reg *registry.Registry) (ident.Message, error) {
	return m.resolve(reg, reg.View())
}

func (m *Message[A, R]) resolve(reg *registry.Registry, v *registry.View) (ident.Message, error) {
	if c := m.cache.Load(); c != nil && c.reg == reg && c.gen == v.Generation() {
		return c.id, c.err
	}
	r := &resolution{reg: reg, gen: v.Generation(), id: ident.InvalidMessage}
	if id, ok := v.MessageID(m.name); !ok {
		r.err = fmt.Errorf("%w: %q", registry.ErrUnsupportedMessage, m.name)
	} else if have := v.Message(id).Signature; have != m.sig {
		r.err = fmt.Errorf("%w: %q registered as %s, called as %s", registry.ErrSignatureMismatch, m.name, have, m.sig)
	} else {
		r.id = id
	}
	m.cache.Store(r)
	return r.id, r.err
}

// ImplOption adjusts an implementation.
type ImplOption func(*registry.Impl)

// WithPriority sets the implementation's priority. Unicast only considers
// the implementers with the highest priority; multicast ignores it.
func WithPriority(p int) ImplOption {
	return func(impl *registry.Impl) { impl.Priority = p }
}

// Implement binds fn as T's implementation of msg.
func Implement[T, A, R any](msg *Message[A, R], fn func(*T, A) R, opts ...ImplOption) registry.Impl {
	impl := registry.Impl{
		Message: msg.Def(),
		Fn:      func(p unsafe.Pointer, arg A) R { return fn((*T)(p), arg) },
	}
	for _, opt := range opts {
		opt(&impl)
	}
	return impl
}
