package object

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/joshuapare/mixkit/mixin/alloc"
	"github.com/joshuapare/mixkit/mixin/ident"
	"github.com/joshuapare/mixkit/mixin/registry"
)

type opKind uint8

const (
	opAdd opKind = iota
	opRemove
)

type op struct {
	kind opKind
	id   ident.Mixin
	name string       // resolved at Apply when set
	typ  reflect.Type // resolved at Apply when set
}

// Mutation batches adds and removes into one all-or-nothing change with a
// single array swap.
//
//	err := o.Mutate().Add(pos).Add(vel).Remove(frozen).Apply()
type Mutation struct {
	o   *Object
	ops []op
}

// Mutate starts a batch.
func (o *Object) Mutate() *Mutation { return &Mutation{o: o} }

// Add queues attaching mixin id.
func (m *Mutation) Add(id ident.Mixin) *Mutation {
	m.ops = append(m.ops, op{kind: opAdd, id: id})
	return m
}

// AddByName queues attaching the mixin called name.
func (m *Mutation) AddByName(name string) *Mutation {
	m.ops = append(m.ops, op{kind: opAdd, id: ident.InvalidMixin, name: name})
	return m
}

// AddType queues attaching the mixin registered for the Go type t.
func (m *Mutation) AddType(t reflect.Type) *Mutation {
	m.ops = append(m.ops, op{kind: opAdd, id: ident.InvalidMixin, typ: t})
	return m
}

// Remove queues detaching mixin id.
func (m *Mutation) Remove(id ident.Mixin) *Mutation {
	m.ops = append(m.ops, op{kind: opRemove, id: id})
	return m
}

// RemoveByName queues detaching the mixin called name.
func (m *Mutation) RemoveByName(name string) *Mutation {
	m.ops = append(m.ops, op{kind: opRemove, id: ident.InvalidMixin, name: name})
	return m
}

// RemoveType queues detaching the mixin registered for t.
func (m *Mutation) RemoveType(t reflect.Type) *Mutation {
	m.ops = append(m.ops, op{kind: opRemove, id: ident.InvalidMixin, typ: t})
	return m
}

// Apply performs the queued operations in order. Adding an attached mixin
// is a no-op; removing one that is not attached (at that point of the
// sequence) fails. On failure the object is unchanged.
func (m *Mutation) Apply() error {
	o := m.o
	unlock := o.lock()
	defer unlock()
	if o.closed.Load() {
		return ErrClosed
	}
	return o.apply(m.ops)
}

// Add attaches mixin id. Adding a mixin that is already attached does
// nothing.
func (o *Object) Add(id ident.Mixin) error { return o.Mutate().Add(id).Apply() }

// AddByName attaches the mixin called name.
func (o *Object) AddByName(name string) error { return o.Mutate().AddByName(name).Apply() }

// Remove detaches mixin id.
func (o *Object) Remove(id ident.Mixin) error { return o.Mutate().Remove(id).Apply() }

// RemoveByName detaches the mixin called name.
func (o *Object) RemoveByName(name string) error { return o.Mutate().RemoveByName(name).Apply() }

// AddType attaches the mixin registered for T.
func AddType[T any](o *Object) error {
	return o.Mutate().AddType(reflect.TypeFor[T]()).Apply()
}

// RemoveType detaches the mixin registered for T.
func RemoveType[T any](o *Object) error {
	return o.Mutate().RemoveType(reflect.TypeFor[T]()).Apply()
}

// Clear detaches every mixin.
func (o *Object) Clear() error {
	unlock := o.lock()
	defer unlock()
	return o.clearLocked()
}

// Close detaches every mixin and invalidates the object's handle. Owner
// lookups from stale mixin pointers fail afterwards. Close is idempotent.
func (o *Object) Close() error {
	unlock := o.lock()
	defer unlock()
	if o.closed.Load() {
		return nil
	}
	err := o.clearLocked()
	if o.Len() == 0 {
		o.closed.Store(true)
		dropHandle(o.handle)
	}
	return err
}

func (o *Object) clearLocked() error {
	st := o.state.Load()
	ops := make([]op, len(st.slots))
	for i, s := range st.slots {
		ops[i] = op{kind: opRemove, id: s.Mixin}
	}
	return o.apply(ops)
}

// resolveOp turns a queued name or type into an id.
func (o *Object) resolveOp(v *registry.View, p op) (ident.Mixin, error) {
	switch {
	case p.name != "":
		id, ok := v.MixinID(p.name)
		if !ok || v.Mixin(id) == nil {
			return ident.InvalidMixin, fmt.Errorf("%w: %q", registry.ErrUnknownMixin, p.name)
		}
		return id, nil
	case p.typ != nil:
		id, ok := v.MixinTypeID(p.typ)
		if !ok || v.Mixin(id) == nil {
			return ident.InvalidMixin, fmt.Errorf("%w: type %s", registry.ErrUnknownMixin, p.typ)
		}
		return id, nil
	}
	return p.id, nil
}

// apply runs ops against the current state. Callers hold the mutation lock.
//
// The replacement array and every new mixin buffer are allocated before
// anything visible changes; only then is the array swapped in and the
// detached mixins destroyed and released.
func (o *Object) apply(ops []op) error {
	if len(ops) == 0 {
		return nil
	}
	v := o.reg.View()
	cur := o.state.Load()

	// Replay the ops on the list of ids to find the final set.
	final := make([]ident.Mixin, len(cur.slots), len(cur.slots)+len(ops))
	for i, s := range cur.slots {
		final[i] = s.Mixin
	}
	added := make(map[ident.Mixin]*registry.MixinInfo)
	for _, p := range ops {
		id, err := o.resolveOp(v, p)
		if err != nil {
			return err
		}
		at := indexOf(final, id)
		switch p.kind {
		case opAdd:
			info := v.Mixin(id)
			if info == nil {
				return fmt.Errorf("%w: %s", registry.ErrUnknownMixin, id)
			}
			if at >= 0 {
				continue
			}
			final = append(final, id)
			if _, was := cur.find(id); !was {
				added[id] = info
			}
		case opRemove:
			if at < 0 {
				return fmt.Errorf("%w: %s", ErrMixinNotPresent, id)
			}
			final = append(final[:at], final[at+1:]...)
			delete(added, id)
		}
	}

	var removed []alloc.Slot
	for _, s := range cur.slots {
		if indexOf(final, s.Mixin) < 0 {
			removed = append(removed, s)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	next, err := o.build(cur, final, added, initMixin)
	if err != nil {
		return err
	}
	return o.swap(v, cur, next, added, removed)
}

// swap publishes next, then destroys and releases the removed slots and
// the array of cur.
func (o *Object) swap(v *registry.View, cur, next *state, added map[ident.Mixin]*registry.MixinInfo, removed []alloc.Slot) error {
	o.state.Store(next)

	for id := range added {
		o.reg.Acquire(id)
	}
	var errs []error
	for _, s := range removed {
		if err := o.release(v, s); err != nil {
			errs = append(errs, err)
		}
		o.reg.Release(s.Mixin)
	}
	if len(cur.slots) > 0 {
		if err := o.strategy.DeallocMixinArray(cur.slots, len(cur.slots), o.handle); err != nil {
			errs = append(errs, fmt.Errorf("release slot array: %w", err))
		}
	}

	o.log.Trace().
		Uint64("handle", uint64(o.handle)).
		Int("added", len(added)).
		Int("removed", len(removed)).
		Int("mixins", len(next.slots)).
		Msg("object mutated")
	return errors.Join(errs...)
}

// fillFunc sets up a freshly allocated, zeroed mixin.
type fillFunc func(s alloc.Slot, info *registry.MixinInfo)

func initMixin(s alloc.Slot, info *registry.MixinInfo) {
	if info.Init != nil {
		info.Init(s.Block.Ptr())
	}
}

// build allocates the state holding final, reusing the slots of cur and
// allocating fresh mixins for added, which fill sets up once every
// allocation succeeded. Nothing is leaked on failure.
func (o *Object) build(cur *state, final []ident.Mixin, added map[ident.Mixin]*registry.MixinInfo, fill fillFunc) (*state, error) {
	if len(final) == 0 {
		return empty, nil
	}
	arr, err := o.strategy.AllocMixinArray(len(final), o.handle)
	if err != nil {
		return nil, fmt.Errorf("allocate %d slots: %w", len(final), err)
	}

	var fresh []alloc.Slot
	undo := func(cause error) (*state, error) {
		errs := []error{cause}
		for _, s := range fresh {
			if err := s.Allocator.DeallocMixin(s.Block, s.Layout, o.handle); err != nil {
				errs = append(errs, err)
			}
		}
		if err := o.strategy.DeallocMixinArray(arr, len(final), o.handle); err != nil {
			errs = append(errs, err)
		}
		return nil, errors.Join(errs...)
	}

	for i, id := range final {
		if pos, ok := cur.find(id); ok {
			arr[i] = cur.slots[pos]
			continue
		}
		s, err := o.allocate(added[id])
		if err != nil {
			return undo(err)
		}
		fresh = append(fresh, s)
		arr[i] = s
	}

	for _, s := range fresh {
		fill(s, added[s.Mixin])
	}
	return newState(arr), nil
}

// allocate obtains zeroed storage for one mixin and stamps the owner
// handle in front of it.
func (o *Object) allocate(info *registry.MixinInfo) (alloc.Slot, error) {
	var a alloc.MixinAllocator = o.strategy
	if info.Allocator != nil {
		a = info.Allocator
	}
	l := info.Layout
	b, err := a.AllocMixin(l, o.handle)
	if err != nil {
		return alloc.Slot{}, fmt.Errorf("allocate %q: %w", info.Name, err)
	}
	if uintptr(b.Ptr())%l.Align != 0 || b.Offset < alloc.PtrSize ||
		b.Offset+max(l.Size, 1) > uintptr(len(b.Buf)) {
		err := fmt.Errorf("%w: %q placed at offset %d of a %d byte buffer", alloc.ErrInvalidLayout, info.Name, b.Offset, len(b.Buf))
		return alloc.Slot{}, errors.Join(err, a.DeallocMixin(b, l, o.handle))
	}
	if l.HasPointers {
		reflect.NewAt(l.Type, b.Ptr()).Elem().SetZero()
	} else {
		clear(unsafe.Slice((*byte)(b.Ptr()), l.Size))
	}
	alloc.PutOwner(b, o.handle)
	return alloc.Slot{Mixin: info.ID, Block: b, Layout: l, Allocator: a}, nil
}

// release destroys a detached mixin and returns its storage.
func (o *Object) release(v *registry.View, s alloc.Slot) error {
	if info := v.Mixin(s.Mixin); info != nil && info.Destroy != nil {
		info.Destroy(s.Block.Ptr())
	}
	alloc.PutOwner(s.Block, 0)
	if err := s.Allocator.DeallocMixin(s.Block, s.Layout, o.handle); err != nil {
		return fmt.Errorf("release %s: %w", s.Mixin, err)
	}
	return nil
}

func indexOf(ids []ident.Mixin, id ident.Mixin) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
