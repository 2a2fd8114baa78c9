package dispatch

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/joshuapare/mixkit/mixin/config"
	"github.com/joshuapare/mixkit/mixin/ident"
	"github.com/joshuapare/mixkit/mixin/object"
	"github.com/joshuapare/mixkit/mixin/registry"
)

type target[A, R any] struct {
	mixin    ident.Mixin
	ptr      unsafe.Pointer
	priority int
	fn       func(unsafe.Pointer, A) R
}

// implementers walks o's attached mixins in attachment order and calls
// visit for each implementer of msg until visit returns false.
func implementers[A, R any](o *object.Object, msg *Message[A, R], visit func(target[A, R]) bool) error {
	reg := o.Registry()
	v := reg.View()
	id, err := msg.resolve(reg, v)
	if err != nil {
		return err
	}
	for _, s := range o.Slots() {
		info := v.Mixin(s.Mixin)
		if info == nil {
			continue
		}
		impl, ok := info.Impl(id)
		if !ok {
			continue
		}
		t := target[A, R]{
			mixin:    s.Mixin,
			ptr:      s.Block.Ptr(),
			priority: impl.Priority,
			fn:       impl.Fn.(func(unsafe.Pointer, A) R),
		}
		if !visit(t) {
			break
		}
	}
	return nil
}

// Unicast calls msg on the single implementer attached to o. Among several
// implementers only those with the highest priority are candidates; if
// more than one remains the registry's unicast policy decides between
// ErrAmbiguousMessage and the earliest attached candidate.
func Unicast[A, R any](o *object.Object, msg *Message[A, R], arg A) (R, error) {
	var (
		zero  R
		best  target[A, R]
		found int
	)
	err := implementers(o, msg, func(t target[A, R]) bool {
		switch {
		case found == 0 || t.priority > best.priority:
			best, found = t, 1
		case t.priority == best.priority:
			found++
		}
		return true
	})
	if err != nil {
		return zero, err
	}
	if found == 0 {
		return zero, fmt.Errorf("%w: %q has no implementer on object %d", registry.ErrUnsupportedMessage, msg.name, o.Handle())
	}
	if found > 1 && o.Registry().Config().UnicastPolicy == config.PolicyStrict {
		return zero, fmt.Errorf("%w: %q has %d implementers at priority %d", ErrAmbiguousMessage, msg.name, found, best.priority)
	}
	return best.fn(best.ptr, arg), nil
}

// Call invokes mixin's implementation of msg on o.
func Call[A, R any](o *object.Object, mixin ident.Mixin, msg *Message[A, R], arg A) (R, error) {
	var zero R
	reg := o.Registry()
	v := reg.View()
	id, err := msg.resolve(reg, v)
	if err != nil {
		return zero, err
	}
	p, err := o.Get(mixin)
	if err != nil {
		return zero, err
	}
	info := v.Mixin(mixin)
	if info == nil {
		return zero, fmt.Errorf("%w: %s", registry.ErrUnknownMixin, mixin)
	}
	impl, ok := info.Impl(id)
	if !ok {
		return zero, fmt.Errorf("%w: %q is not implemented by %q", registry.ErrUnsupportedMessage, msg.name, info.Name)
	}
	return impl.Fn.(func(unsafe.Pointer, A) R)(p, arg), nil
}

// Multicast calls msg on every implementer attached to o in attachment
// order and folds the results with comb. With no implementers, or when the
// message is not registered at all, the result is comb's identity.
func Multicast[A, R, S any](o *object.Object, msg *Message[A, R], arg A, comb Combinator[R, S]) (S, error) {
	acc := comb.Identity()
	err := implementers(o, msg, func(t target[A, R]) bool {
		var more bool
		acc, more = comb.Step(acc, t.fn(t.ptr, arg))
		return more
	})
	if err != nil && !isUnregistered(err) {
		return comb.Identity(), err
	}
	return acc, nil
}

// Broadcast calls msg on every implementer attached to o and discards the
// results.
func Broadcast[A, R any](o *object.Object, msg *Message[A, R], arg A) error {
	_, err := Multicast(o, msg, arg, Discard[R]())
	return err
}

// Implements reports whether any mixin attached to o implements msg.
func Implements[A, R any](o *object.Object, msg *Message[A, R]) bool {
	return ImplementerCount(o, msg) > 0
}

// ImplementerCount returns how many attached mixins implement msg.
func ImplementerCount[A, R any](o *object.Object, msg *Message[A, R]) int {
	n := 0
	_ = implementers(o, msg, func(target[A, R]) bool {
		n++
		return true
	})
	return n
}

func isUnregistered(err error) bool {
	return errors.Is(err, registry.ErrUnsupportedMessage)
}
