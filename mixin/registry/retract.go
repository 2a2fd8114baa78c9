package registry

import (
	"fmt"
	"sort"

	"github.com/joshuapare/mixkit/mixin/alloc"
	"github.com/joshuapare/mixkit/mixin/ident"
)

// RetractModule withdraws everything the module registered. Mixins and
// messages other modules still refer to survive; the rest are removed and
// their identifiers become free. Retraction fails with ErrMixinInUse and
// changes nothing if a mixin that would disappear is still attached to a
// live object.
func (r *Registry) RetractModule(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.View()
	rec, ok := cur.modules[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}

	for id, kind := range rec.mixins {
		if kind != refDefined || cur.defRefs[id] > 1 {
			continue
		}
		if n := r.Live(id); n > 0 {
			return fmt.Errorf("%w: %q hosted by %d objects, module %q", ErrMixinInUse, cur.mixins[id].Name, n, name)
		}
	}

	next := cur.clone()
	delete(next.modules, name)

	var removed, undefined []string
	for id, kind := range rec.mixins {
		next.mixinRefs[id]--
		if kind == refDefined {
			next.defRefs[id]--
		}
		switch {
		case next.mixinRefs[id] == 0:
			removed = append(removed, next.mixins[id].Name)
			next.dropMixin(id)
		case kind == refDefined && next.defRefs[id] == 0:
			undefined = append(undefined, next.mixins[id].Name)
			next.undefine(id)
		case kind == refDefined && next.mixins[id] == rec.defs[id]:
			next.mixins[id] = next.otherDefinition(id)
		}
	}
	for id := range rec.messages {
		next.msgRefs[id]--
		if next.msgRefs[id] == 0 {
			delete(next.msgNames, next.messages[id].Name)
			next.messages[id] = nil
		}
	}
	r.publish(next)

	sort.Strings(removed)
	sort.Strings(undefined)
	r.log.Debug().
		Str("module", name).
		Strs("removed", removed).
		Strs("undefined", undefined).
		Uint64("generation", next.gen).
		Msg("module retracted")
	return nil
}

// dropMixin frees id and every key that resolves to it.
func (v *View) dropMixin(id ident.Mixin) {
	for name, got := range v.byName {
		if got == id {
			delete(v.byName, name)
		}
	}
	for t, got := range v.byType {
		if got == id {
			delete(v.byType, t)
		}
	}
	v.mixins[id] = nil
}

// undefine keeps id reserved for the modules still declaring it.
func (v *View) undefine(id ident.Mixin) {
	m := v.mixins[id]
	v.mixins[id] = &MixinInfo{
		ID:     id,
		Name:   m.Name,
		Layout: alloc.Layout{Mixin: id, Type: m.Layout.Type},
	}
}

// otherDefinition returns the definition of id held by some remaining
// module, so an entry never outlives the code it points into.
func (v *View) otherDefinition(id ident.Mixin) *MixinInfo {
	names := make([]string, 0, len(v.modules))
	for name, rec := range v.modules {
		if _, ok := rec.defs[id]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return v.modules[names[0]].defs[id]
}
