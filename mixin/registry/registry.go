package registry

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/joshuapare/mixkit/internal/logging"
	"github.com/joshuapare/mixkit/mixin/config"
	"github.com/joshuapare/mixkit/mixin/ident"
)

// Registry is a mixin and message table shared by every module and object
// of a domain. Most programs use the process-wide Default registry.
type Registry struct {
	cfg config.Config
	log zerolog.Logger

	mu   sync.Mutex // serializes writers
	view atomic.Pointer[View]
	live []atomic.Int64 // attached instances per mixin id
}

// New creates an empty registry for cfg.
func New(cfg config.Config) (*Registry, error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	r := &Registry{
		cfg:  cfg,
		log:  logging.For("registry"),
		live: make([]atomic.Int64, cfg.MaxMixins),
	}
	r.view.Store(newView(cfg.MaxMixins, cfg.MaxMessages))
	return r, nil
}

// MustNew is New for configurations known to be valid.
func MustNew(cfg config.Config) *Registry {
	r, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

var (
	defaultMu  sync.Mutex
	defaultReg *Registry
)

// Init creates the process-wide registry from cfg. It must run before the
// first call to Default; later calls fail with ErrAlreadyInitialized.
func Init(cfg config.Config) (*Registry, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg != nil {
		return nil, ErrAlreadyInitialized
	}
	r, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defaultReg = r
	return r, nil
}

// Default returns the process-wide registry, creating it with the default
// configuration if Init was never called.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg == nil {
		defaultReg = MustNew(config.Default())
	}
	return defaultReg
}

// Config returns the normalized configuration.
func (r *Registry) Config() config.Config { return r.cfg }

// View returns the current immutable snapshot.
func (r *Registry) View() *View { return r.view.Load() }

// Generation returns the generation of the current snapshot.
func (r *Registry) Generation() uint64 { return r.View().gen }

// Mixin returns the defined mixin with id.
func (r *Registry) Mixin(id ident.Mixin) (*MixinInfo, error) {
	if m := r.View().Mixin(id); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMixin, id)
}

// MixinByName returns the defined mixin called name.
func (r *Registry) MixinByName(name string) (*MixinInfo, error) {
	v := r.View()
	if id, ok := v.MixinID(name); ok {
		if m := v.Mixin(id); m != nil {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMixin, name)
}

// MixinByType returns the defined mixin registered for the Go type t.
func (r *Registry) MixinByType(t reflect.Type) (*MixinInfo, error) {
	v := r.View()
	if id, ok := v.MixinTypeID(t); ok {
		if m := v.Mixin(id); m != nil {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: type %s", ErrUnknownMixin, t)
}

// Message returns the message with id.
func (r *Registry) Message(id ident.Message) (*MessageInfo, error) {
	if m := r.View().Message(id); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMessage, id)
}

// MessageByName returns the message called name.
func (r *Registry) MessageByName(name string) (*MessageInfo, error) {
	v := r.View()
	if id, ok := v.MessageID(name); ok {
		return v.Message(id), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMessage, name)
}

// MessagesOf lists the messages a mixin implements, in definition order.
func (r *Registry) MessagesOf(id ident.Mixin) ([]*MessageInfo, error) {
	v := r.View()
	m := v.Mixin(id)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMixin, id)
	}
	out := make([]*MessageInfo, 0, len(m.Impls))
	for _, impl := range m.Impls {
		out = append(out, v.Message(impl.Message))
	}
	return out, nil
}

// Implementers lists every registered mixin implementing msg, by id.
func (r *Registry) Implementers(msg ident.Message) []ident.Mixin {
	var out []ident.Mixin
	for _, m := range r.View().mixins {
		if m != nil && m.Defined && m.Implements(msg) {
			out = append(out, m.ID)
		}
	}
	return out
}

// Mixins lists every defined mixin ordered by id.
func (r *Registry) Mixins() []*MixinInfo {
	var out []*MixinInfo
	for _, m := range r.View().mixins {
		if m != nil && m.Defined {
			out = append(out, m)
		}
	}
	return out
}

// Messages lists every registered message ordered by id.
func (r *Registry) Messages() []*MessageInfo {
	var out []*MessageInfo
	for _, m := range r.View().messages {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Modules lists registered modules ordered by name.
func (r *Registry) Modules() []ModuleInfo {
	v := r.View()
	out := make([]ModuleInfo, 0, len(v.modules))
	for _, rec := range v.modules {
		info := ModuleInfo{Name: rec.name}
		for _, id := range rec.order {
			name := v.mixins[id].Name
			if rec.mixins[id] == refDefined {
				info.Defines = append(info.Defines, name)
			} else {
				info.Declares = append(info.Declares, name)
			}
		}
		for id := range rec.messages {
			info.Messages = append(info.Messages, v.messages[id].Name)
		}
		slices.Sort(info.Messages)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Acquire records that an object attached mixin id.
func (r *Registry) Acquire(id ident.Mixin) {
	if int(id) < len(r.live) {
		r.live[id].Add(1)
	}
}

// Release records that an object detached mixin id.
func (r *Registry) Release(id ident.Mixin) {
	if int(id) < len(r.live) {
		r.live[id].Add(-1)
	}
}

// Live returns how many objects currently host mixin id.
func (r *Registry) Live(id ident.Mixin) int64 {
	if int(id) >= len(r.live) {
		return 0
	}
	return r.live[id].Load()
}

// publish installs next as the current view. Callers hold r.mu.
func (r *Registry) publish(next *View) {
	next.gen = r.View().gen + 1
	r.view.Store(next)
}
