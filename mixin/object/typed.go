package object

import (
	"fmt"
	"reflect"

	"github.com/joshuapare/mixkit/mixin/alloc"
	"github.com/joshuapare/mixkit/mixin/ident"
	"github.com/joshuapare/mixkit/mixin/registry"
)

// As returns the attached mixin registered for the Go type T.
func As[T any](o *Object) (*T, error) {
	t := reflect.TypeFor[T]()
	id, ok := o.reg.View().MixinTypeID(t)
	if !ok {
		return nil, fmt.Errorf("%w: type %s", registry.ErrUnknownMixin, t)
	}
	return Lookup[T](o, id)
}

// Lookup returns the attached mixin id viewed as a T. T must be the
// mixin's registered type, or a pointer-free type that fits the storage of
// a pointer-free mixin.
func Lookup[T any](o *Object, id ident.Mixin) (*T, error) {
	st := o.state.Load()
	pos, ok := st.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMixinNotPresent, id)
	}
	s := st.slots[pos]
	if err := fits(reflect.TypeFor[T](), s.Layout); err != nil {
		return nil, err
	}
	return (*T)(s.Block.Ptr()), nil
}

func fits(t reflect.Type, l alloc.Layout) error {
	if l.Type == t {
		return nil
	}
	if l.HasPointers {
		return fmt.Errorf("%w: %s registered as %s, not %s", ErrTypeMismatch, l.Mixin, l.Type, t)
	}
	if alloc.HasPointers(t) || t.Size() > l.Size || uintptr(t.Align()) > l.Align {
		return fmt.Errorf("%w: %s does not fit raw %s (size %d, align %d)", ErrTypeMismatch, t, l.Mixin, l.Size, l.Align)
	}
	return nil
}
