package module

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joshuapare/mixkit/internal/logging"
	"github.com/joshuapare/mixkit/mixin/object"
	"github.com/joshuapare/mixkit/mixin/registry"
)

// Loader loads modules into one registry through a bridge.
type Loader struct {
	reg    *registry.Registry
	bridge Bridge
	log    zerolog.Logger

	mu      sync.Mutex
	handles map[string]*Handle // by module name
	seq     uint64
}

// NewLoader returns a loader registering into reg. A nil bridge selects
// PluginBridge.
func NewLoader(reg *registry.Registry, bridge Bridge) *Loader {
	if reg == nil {
		reg = registry.Default()
	}
	if bridge == nil {
		bridge = PluginBridge{}
	}
	return &Loader{
		reg:     reg,
		bridge:  bridge,
		log:     logging.For("module"),
		handles: make(map[string]*Handle),
	}
}

// Registry returns the registry modules are loaded into.
func (l *Loader) Registry() *registry.Registry { return l.reg }

// Handle is a loaded module.
type Handle struct {
	Path   string
	Module Module

	loader  *Loader
	lib     Library
	seq     uint64 // load order
	mu      sync.Mutex
	objects []*object.Object // modified through the hook, in order
	loaded  bool
}

// Name returns the module name.
func (h *Handle) Name() string { return h.Module.Name() }

// Load opens path, resolves its module and registers it. When Load returns
// without error every definition of the module is visible to dispatch.
func (l *Loader) Load(ctx context.Context, path string) (*Handle, error) {
	lib, err := l.bridge.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	h, err := l.register(ctx, path, lib)
	if err != nil {
		return nil, errors.Join(err, lib.Close())
	}
	return h, nil
}

func (l *Loader) register(ctx context.Context, path string, lib Library) (*Handle, error) {
	sym, err := lib.Lookup(Symbol)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	m, err := fromSymbol(sym)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.reg.RegisterModule(m.Name(), m.Define); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	h := &Handle{Path: path, Module: m, loader: l, lib: lib, loaded: true}
	l.mu.Lock()
	l.seq++
	h.seq = l.seq
	l.handles[m.Name()] = h
	l.mu.Unlock()

	l.log.Info().Str("path", path).Str("module", m.Name()).Msg("module loaded")
	return h, nil
}

// LoadAll loads paths in order. On failure the modules already loaded by
// this call are unloaded again.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]*Handle, error) {
	handles := make([]*Handle, 0, len(paths))
	for _, p := range paths {
		h, err := l.Load(ctx, p)
		if err != nil {
			var errs []error
			for _, done := range slices.Backward(handles) {
				errs = append(errs, l.Unload(context.WithoutCancel(ctx), done))
			}
			return nil, errors.Join(append([]error{err}, errs...)...)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Lookup returns the handle of a loaded module by name.
func (l *Loader) Lookup(name string) (*Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[name]
	return h, ok
}

// Loaded lists loaded modules in load order.
func (l *Loader) Loaded() []*Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Handle, 0, len(l.handles))
	for _, h := range l.handles {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b *Handle) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// Modify lets the module attach its mixins to o through its ObjectHook.
// Modules without a hook leave o alone.
func (h *Handle) Modify(o *object.Object) error {
	hook, ok := h.Module.(ObjectHook)
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.loaded {
		return fmt.Errorf("%w: %s", ErrNotLoaded, h.Name())
	}
	if slices.Contains(h.objects, o) {
		return nil
	}
	if err := hook.ModifyObject(o); err != nil {
		return fmt.Errorf("module %s: modify object: %w", h.Name(), err)
	}
	h.objects = append(h.objects, o)
	return nil
}

// Release asks the module to detach its mixins from o.
func (h *Handle) Release(o *object.Object) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.releaseLocked(o)
}

func (h *Handle) releaseLocked(o *object.Object) error {
	i := slices.Index(h.objects, o)
	if i < 0 {
		return nil
	}
	if err := h.Module.(ObjectHook).ReleaseObject(o); err != nil {
		return fmt.Errorf("module %s: release object: %w", h.Name(), err)
	}
	h.objects = slices.Delete(h.objects, i, i+1)
	return nil
}

// Unload releases every object the module modified, retracts its
// definitions and closes its library, in that order. If an object cannot
// be released or a mixin is still attached elsewhere, the module stays
// loaded.
func (l *Loader) Unload(ctx context.Context, h *Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.loaded {
		return fmt.Errorf("%w: %s", ErrNotLoaded, h.Name())
	}
	for _, o := range slices.Backward(slices.Clone(h.objects)) {
		if err := h.releaseLocked(o); err != nil {
			return err
		}
	}
	if err := l.reg.RetractModule(h.Name()); err != nil {
		return fmt.Errorf("unload %s: %w", h.Path, err)
	}
	h.loaded = false

	l.mu.Lock()
	delete(l.handles, h.Name())
	l.mu.Unlock()

	if err := h.lib.Close(); err != nil {
		return fmt.Errorf("unload %s: close: %w", h.Path, err)
	}
	l.log.Info().Str("path", h.Path).Str("module", h.Name()).Msg("module unloaded")
	return nil
}

// UnloadAll unloads every loaded module in reverse load order, so a module
// is retracted before the modules it was loaded on top of.
func (l *Loader) UnloadAll(ctx context.Context) error {
	var errs []error
	for _, h := range slices.Backward(l.Loaded()) {
		if err := l.Unload(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
