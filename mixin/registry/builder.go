package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/joshuapare/mixkit/mixin/alloc"
	"github.com/joshuapare/mixkit/mixin/config"
	"github.com/joshuapare/mixkit/mixin/ident"
)

// Builder collects one module's definitions. It is only valid inside the
// RegisterModule callback that received it.
type Builder struct {
	r   *Registry
	v   *View
	rec *moduleRecord
}

// RegisterModule registers everything define adds to the Builder on
// behalf of the module called name. Either all of it becomes visible or,
// if define or any definition fails, none of it does.
func (r *Registry) RegisterModule(name string, define func(b *Builder) error) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: module name is empty", ErrInvalidDefinition)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.View()
	if _, ok := cur.modules[name]; ok {
		return fmt.Errorf("%w: %q", ErrModuleExists, name)
	}

	b := &Builder{
		r: r,
		v: cur.clone(),
		rec: &moduleRecord{
			name:     name,
			mixins:   make(map[ident.Mixin]refKind),
			messages: make(map[ident.Message]struct{}),
			defs:     make(map[ident.Mixin]*MixinInfo),
		},
	}
	if err := define(b); err != nil {
		return fmt.Errorf("register module %q: %w", name, err)
	}
	b.v.modules[name] = b.rec
	r.publish(b.v)

	r.log.Debug().
		Str("module", name).
		Int("mixins", len(b.rec.mixins)).
		Int("messages", len(b.rec.messages)).
		Uint64("generation", b.v.gen).
		Msg("module registered")
	return nil
}

// Module returns the name of the module being registered.
func (b *Builder) Module() string { return b.rec.name }

// DefineMessage registers a message, or confirms an existing one with the
// same signature.
func (b *Builder) DefineMessage(def MessageDef) (ident.Message, error) {
	name := canonicalName(def.Name)
	if name == "" {
		return ident.InvalidMessage, fmt.Errorf("%w: message name is empty", ErrInvalidDefinition)
	}
	if def.Signature == nil || def.Signature.Kind() != reflect.Func {
		return ident.InvalidMessage, fmt.Errorf("%w: message %q needs a func signature", ErrInvalidDefinition, name)
	}

	id, ok := b.v.msgNames[name]
	if ok {
		if have := b.v.messages[id].Signature; have != def.Signature {
			return ident.InvalidMessage, fmt.Errorf("%w: %q registered as %s, redefined as %s",
				ErrSignatureMismatch, name, have, def.Signature)
		}
	} else {
		id, ok = b.v.allocMessageID(b.r.cfg.MaxMessages)
		if !ok {
			return ident.InvalidMessage, fmt.Errorf("%w: limit %d reached defining %q",
				ErrTooManyMessages, b.r.cfg.MaxMessages, name)
		}
		b.v.messages[id] = &MessageInfo{ID: id, Name: name, Signature: def.Signature}
		b.v.msgNames[name] = id
	}

	if _, held := b.rec.messages[id]; !held {
		b.rec.messages[id] = struct{}{}
		b.v.msgRefs[id]++
	}
	return id, nil
}

// DeclareMixin references a mixin by name without defining it. The id is
// shared with whichever module defines the mixin. Under type identity the
// mixin must already be defined.
func (b *Builder) DeclareMixin(name string) (ident.Mixin, error) {
	name = canonicalName(name)
	if name == "" {
		return ident.InvalidMixin, fmt.Errorf("%w: mixin name is empty", ErrInvalidDefinition)
	}
	id, ok := b.v.byName[name]
	if !ok {
		if b.r.cfg.Identity == config.IdentityType {
			return ident.InvalidMixin, fmt.Errorf("%w: %q cannot be declared by name before its type is defined",
				ErrUnknownMixin, name)
		}
		var err error
		if id, err = b.reserve(name, nil); err != nil {
			return ident.InvalidMixin, err
		}
	}
	b.hold(id, refDeclared)
	return id, nil
}

// DeclareMixinType references a mixin by Go type without defining it.
func (b *Builder) DeclareMixinType(t reflect.Type) (ident.Mixin, error) {
	if t == nil {
		return ident.InvalidMixin, fmt.Errorf("%w: nil mixin type", ErrInvalidDefinition)
	}
	if b.r.cfg.Identity == config.IdentityName {
		return b.DeclareMixin(typeName(t))
	}
	id, ok := b.v.byType[t]
	if !ok {
		var err error
		if id, err = b.reserve(typeName(t), t); err != nil {
			return ident.InvalidMixin, err
		}
	}
	b.hold(id, refDeclared)
	return id, nil
}

// DefineMixin registers a mixin. Defining a mixin that another module
// already defined succeeds when both definitions are structurally
// identical (same layout and message set) and returns the shared id.
// A failed definition leaves the builder as it was, so the module may go
// on without it.
func (b *Builder) DefineMixin(def MixinDef) (ident.Mixin, error) {
	v, rec := b.v.clone(), b.rec.clone()
	id, err := b.defineMixin(def)
	if err != nil {
		b.v, b.rec = v, rec
		return ident.InvalidMixin, err
	}
	return id, nil
}

func (b *Builder) defineMixin(def MixinDef) (ident.Mixin, error) {
	info, err := b.normalize(def)
	if err != nil {
		return ident.InvalidMixin, err
	}

	id, exists := b.lookupKey(info)
	if exists && b.rec.mixins[id] == refDefined {
		return ident.InvalidMixin, fmt.Errorf("%w: %q defined twice by module %q", ErrMixinConflict, info.Name, b.rec.name)
	}
	if exists && b.v.mixins[id].Defined {
		if err := b.sameShape(b.v.mixins[id], info); err != nil {
			return ident.InvalidMixin, err
		}
		if err := b.holdMessages(info); err != nil {
			return ident.InvalidMixin, err
		}
		info.ID = id
		info.Layout.Mixin = id
		b.rec.defs[id] = info
		if t := info.Layout.Type; t != nil {
			if _, mapped := b.v.byType[t]; !mapped {
				b.v.byType[t] = id
			}
		}
		b.hold(id, refDefined)
		return id, nil
	}

	if !exists {
		if id, err = b.reserve(info.Name, info.Layout.Type); err != nil {
			return ident.InvalidMixin, err
		}
	}
	if err := b.holdMessages(info); err != nil {
		return ident.InvalidMixin, err
	}
	info.ID = id
	info.Layout.Mixin = id
	if t := info.Layout.Type; t != nil {
		if _, mapped := b.v.byType[t]; !mapped {
			b.v.byType[t] = id
		}
	}
	if _, taken := b.v.byName[info.Name]; !taken {
		b.v.byName[info.Name] = id
	}
	b.v.mixins[id] = info
	b.rec.defs[id] = info
	b.hold(id, refDefined)
	return id, nil
}

// normalize validates def and turns it into an unpublished entry whose
// impls still need message ids.
func (b *Builder) normalize(def MixinDef) (*MixinInfo, error) {
	name := def.Name
	if strings.TrimSpace(name) == "" && def.Type != nil {
		name = typeName(def.Type)
	}
	name = canonicalName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: mixin needs a name or a type", ErrInvalidDefinition)
	}
	if b.r.cfg.Identity == config.IdentityType && def.Type == nil {
		return nil, fmt.Errorf("%w: %q needs a Go type under type identity", ErrInvalidDefinition, name)
	}

	l := alloc.Layout{Size: def.Size, Align: def.Align}
	if def.Type != nil {
		l = alloc.LayoutOf(def.Type)
		if def.Size != 0 && def.Size != l.Size {
			return nil, fmt.Errorf("%w: %q declares size %d but %s is %d bytes",
				ErrInvalidDefinition, name, def.Size, def.Type, l.Size)
		}
		if def.Align != 0 {
			l.Align = def.Align
		}
	}
	if l.Align == 0 {
		l.Align = 1
	}
	if err := alloc.ValidateLayout(l); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidDefinition, name, err)
	}

	info := &MixinInfo{
		Name:      name,
		Layout:    l,
		Allocator: def.Allocator,
		Init:      def.Init,
		Destroy:   def.Destroy,
		Copy:      def.Copy,
		Defined:   true,
		Impls:     make([]BoundImpl, len(def.Impls)),
		byMessage: make(map[ident.Message]int, len(def.Impls)),
	}
	pending := make([]Impl, len(def.Impls))
	for i, impl := range def.Impls {
		if impl.Fn == nil || impl.Message.Signature == nil {
			return nil, fmt.Errorf("%w: %q has an incomplete implementation of %q",
				ErrInvalidDefinition, name, impl.Message.Name)
		}
		if want := erasedSignature(impl.Message.Signature); reflect.TypeOf(impl.Fn) != want {
			return nil, fmt.Errorf("%w: %q implements %q as %T, want %s",
				ErrSignatureMismatch, name, impl.Message.Name, impl.Fn, want)
		}
		pending[i] = impl
	}
	info.pending = pending
	return info, nil
}

// holdMessages resolves the impls of info against the message table.
func (b *Builder) holdMessages(info *MixinInfo) error {
	for i, impl := range info.pending {
		id, err := b.DefineMessage(impl.Message)
		if err != nil {
			return fmt.Errorf("mixin %q: %w", info.Name, err)
		}
		if _, dup := info.byMessage[id]; dup {
			return fmt.Errorf("%w: %q implements %q twice", ErrInvalidDefinition, info.Name, impl.Message.Name)
		}
		info.byMessage[id] = i
		info.Impls[i] = BoundImpl{Message: id, Priority: impl.Priority, Fn: impl.Fn}
	}
	info.pending = nil
	return nil
}

// lookupKey finds an existing id for info under the configured identity.
func (b *Builder) lookupKey(info *MixinInfo) (ident.Mixin, bool) {
	if b.r.cfg.Identity == config.IdentityType {
		id, ok := b.v.byType[info.Layout.Type]
		return id, ok
	}
	id, ok := b.v.byName[info.Name]
	return id, ok
}

// reserve allocates an id for a mixin that is not defined yet.
func (b *Builder) reserve(name string, t reflect.Type) (ident.Mixin, error) {
	id, ok := b.v.allocMixinID(b.r.cfg.MaxMixins)
	if !ok {
		return ident.InvalidMixin, fmt.Errorf("%w: limit %d reached registering %q",
			ErrTooManyMixins, b.r.cfg.MaxMixins, name)
	}
	b.v.mixins[id] = &MixinInfo{ID: id, Name: name, Layout: alloc.Layout{Mixin: id, Type: t}}
	if _, taken := b.v.byName[name]; !taken {
		b.v.byName[name] = id
	}
	if t != nil {
		b.v.byType[t] = id
	}
	return id, nil
}

// hold records the module's reference to id.
func (b *Builder) hold(id ident.Mixin, kind refKind) {
	prev, held := b.rec.mixins[id]
	if !held {
		b.v.mixinRefs[id]++
		b.rec.order = append(b.rec.order, id)
	}
	if kind == refDefined && prev != refDefined {
		b.v.defRefs[id]++
		b.rec.mixins[id] = refDefined
	} else if !held {
		b.rec.mixins[id] = kind
	}
}

// sameShape compares an existing definition with a new, unbound one.
func (b *Builder) sameShape(have, want *MixinInfo) error {
	var errs []error
	hl, wl := have.Layout, want.Layout
	if hl.Size != wl.Size || hl.Align != wl.Align || hl.HasPointers != wl.HasPointers {
		errs = append(errs, fmt.Errorf("layout size=%d align=%d, existing size=%d align=%d",
			wl.Size, wl.Align, hl.Size, hl.Align))
	}
	if hl.HasPointers && hl.Type != wl.Type {
		errs = append(errs, fmt.Errorf("type %s, existing %s", wl.Type, hl.Type))
	}

	existing := make(map[string]BoundImpl, len(have.Impls))
	for _, impl := range have.Impls {
		existing[b.v.messages[impl.Message].Name] = impl
	}
	if len(existing) != len(want.pending) {
		errs = append(errs, fmt.Errorf("implements %d messages, existing %d", len(want.pending), len(existing)))
	}
	for _, impl := range want.pending {
		name := canonicalName(impl.Message.Name)
		prev, ok := existing[name]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("extra message %q", name))
		case prev.Priority != impl.Priority:
			errs = append(errs, fmt.Errorf("message %q priority %d, existing %d", name, impl.Priority, prev.Priority))
		case b.v.messages[prev.Message].Signature != impl.Message.Signature:
			errs = append(errs, fmt.Errorf("message %q signature %s, existing %s",
				name, impl.Message.Signature, b.v.messages[prev.Message].Signature))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %q: %w", ErrMixinConflict, want.Name, errors.Join(errs...))
	}
	return nil
}
