package object

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/joshuapare/mixkit/mixin/alloc"
	"github.com/joshuapare/mixkit/mixin/ident"
	"github.com/joshuapare/mixkit/mixin/registry"
)

// CopyFrom replaces the mixins of o with copies of the mixins of src, in
// src's attachment order. Every copy is allocated through o's strategy (or
// the mixin's own allocator) and filled by the mixin's Copy function before
// o changes; the previous mixins of o are then destroyed. On failure o is
// unchanged.
func (o *Object) CopyFrom(src *Object) error {
	if src == o {
		return nil
	}
	if src.reg != o.reg {
		return ErrForeignObject
	}
	unlock := o.lock()
	defer unlock()
	if o.closed.Load() || src.closed.Load() {
		return ErrClosed
	}

	v := o.reg.View()
	from := src.state.Load()
	final := make([]ident.Mixin, len(from.slots))
	added := make(map[ident.Mixin]*registry.MixinInfo, len(from.slots))
	origin := make(map[ident.Mixin]unsafe.Pointer, len(from.slots))
	for i, s := range from.slots {
		info := v.Mixin(s.Mixin)
		if info == nil {
			return fmt.Errorf("%w: %s", registry.ErrUnknownMixin, s.Mixin)
		}
		if info.Copy == nil {
			return fmt.Errorf("%w: %q", ErrNotCopyable, info.Name)
		}
		final[i] = s.Mixin
		added[s.Mixin] = info
		origin[s.Mixin] = s.Block.Ptr()
	}

	cur := o.state.Load()
	next, err := o.build(empty, final, added, func(s alloc.Slot, info *registry.MixinInfo) {
		info.Copy(s.Block.Ptr(), origin[s.Mixin])
	})
	if err != nil {
		return fmt.Errorf("copy object: %w", err)
	}
	return o.swap(v, cur, next, added, cur.slots)
}

// Clone returns a new object with the same registry, strategy and locking
// as o, holding copies of o's mixins.
func (o *Object) Clone() (*Object, error) {
	locked := o.mu != nil
	c := New(o.reg, &Options{Strategy: o.Strategy(), Locked: &locked})
	if err := c.CopyFrom(o); err != nil {
		return nil, errors.Join(err, c.Close())
	}
	return c, nil
}
