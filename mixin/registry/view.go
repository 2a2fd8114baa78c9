package registry

import (
	"maps"
	"reflect"
	"slices"

	"github.com/joshuapare/mixkit/mixin/ident"
)

type refKind uint8

const (
	refDeclared refKind = iota + 1
	refDefined
)

// moduleRecord is what one module holds in the registry.
type moduleRecord struct {
	name     string
	mixins   map[ident.Mixin]refKind
	messages map[ident.Message]struct{}
	defs     map[ident.Mixin]*MixinInfo // this module's own definitions
	order    []ident.Mixin              // first-reference order, for reporting
}

func (m *moduleRecord) clone() *moduleRecord {
	return &moduleRecord{
		name:     m.name,
		mixins:   maps.Clone(m.mixins),
		messages: maps.Clone(m.messages),
		defs:     maps.Clone(m.defs),
		order:    slices.Clone(m.order),
	}
}

// View is an immutable snapshot of the registry. Dispatch resolves
// everything against a single View so one call never sees a half-applied
// module.
type View struct {
	gen uint64

	mixins   []*MixinInfo // indexed by id; nil marks a free id
	byName   map[string]ident.Mixin
	byType   map[reflect.Type]ident.Mixin
	messages []*MessageInfo
	msgNames map[string]ident.Message

	// Bookkeeping used by writers only.
	mixinRefs []int
	defRefs   []int
	msgRefs   []int
	modules   map[string]*moduleRecord
}

func newView(maxMixins, maxMessages int) *View {
	return &View{
		mixins:    make([]*MixinInfo, 0, min(maxMixins, 64)),
		byName:    make(map[string]ident.Mixin),
		byType:    make(map[reflect.Type]ident.Mixin),
		messages:  make([]*MessageInfo, 0, min(maxMessages, 64)),
		msgNames:  make(map[string]ident.Message),
		modules:   make(map[string]*moduleRecord),
		mixinRefs: make([]int, 0, min(maxMixins, 64)),
		defRefs:   make([]int, 0, min(maxMixins, 64)),
		msgRefs:   make([]int, 0, min(maxMessages, 64)),
	}
}

// clone copies the view for a writer. Entries are shared; writers replace
// an entry rather than modify it.
func (v *View) clone() *View {
	return &View{
		gen:       v.gen,
		mixins:    slices.Clone(v.mixins),
		byName:    maps.Clone(v.byName),
		byType:    maps.Clone(v.byType),
		messages:  slices.Clone(v.messages),
		msgNames:  maps.Clone(v.msgNames),
		mixinRefs: slices.Clone(v.mixinRefs),
		defRefs:   slices.Clone(v.defRefs),
		msgRefs:   slices.Clone(v.msgRefs),
		modules:   maps.Clone(v.modules),
	}
}

// Generation increments every time a new view is published.
func (v *View) Generation() uint64 { return v.gen }

// Mixin returns the defined mixin with id, or nil.
func (v *View) Mixin(id ident.Mixin) *MixinInfo {
	if int(id) >= len(v.mixins) {
		return nil
	}
	m := v.mixins[id]
	if m == nil || !m.Defined {
		return nil
	}
	return m
}

// MixinID resolves a mixin name to its identifier, including mixins that
// are only declared.
func (v *View) MixinID(name string) (ident.Mixin, bool) {
	id, ok := v.byName[canonicalName(name)]
	return id, ok
}

// MixinTypeID resolves a Go type to its identifier.
func (v *View) MixinTypeID(t reflect.Type) (ident.Mixin, bool) {
	id, ok := v.byType[t]
	return id, ok
}

// Message returns the message with id, or nil.
func (v *View) Message(id ident.Message) *MessageInfo {
	if int(id) >= len(v.messages) {
		return nil
	}
	return v.messages[id]
}

// MessageID resolves a message name.
func (v *View) MessageID(name string) (ident.Message, bool) {
	id, ok := v.msgNames[canonicalName(name)]
	return id, ok
}

// allocMixinID returns the lowest free mixin id.
func (v *View) allocMixinID(limit int) (ident.Mixin, bool) {
	for i, m := range v.mixins {
		if m == nil {
			return ident.Mixin(i), true
		}
	}
	if len(v.mixins) >= limit {
		return ident.InvalidMixin, false
	}
	v.mixins = append(v.mixins, nil)
	v.mixinRefs = append(v.mixinRefs, 0)
	v.defRefs = append(v.defRefs, 0)
	return ident.Mixin(len(v.mixins) - 1), true
}

// allocMessageID returns the lowest free message id.
func (v *View) allocMessageID(limit int) (ident.Message, bool) {
	for i, m := range v.messages {
		if m == nil {
			return ident.Message(i), true
		}
	}
	if len(v.messages) >= limit {
		return ident.InvalidMessage, false
	}
	v.messages = append(v.messages, nil)
	v.msgRefs = append(v.msgRefs, 0)
	return ident.Message(len(v.messages) - 1), true
}
