package module

import (
	"context"
	"fmt"
	"path/filepath"
	"plugin"
	"sync"
)

// Library is an opened unit of code.
type Library interface {
	Lookup(symbol string) (any, error)
	Close() error
}

// Bridge opens libraries. It hides the operating system's loader.
type Bridge interface {
	Open(ctx context.Context, path string) (Library, error)
}

// PluginBridge opens Go plugins built with -buildmode=plugin.
//
// The Go runtime cannot unload a plugin, so closing a library only forgets
// it; the code stays mapped. A plugin opened twice returns the same
// package state.
type PluginBridge struct{}

func (PluginBridge) Open(ctx context.Context, path string) (Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	p, err := plugin.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open plugin %s: %w", abs, err)
	}
	return pluginLibrary{p: p}, nil
}

type pluginLibrary struct{ p *plugin.Plugin }

func (l pluginLibrary) Lookup(symbol string) (any, error) {
	sym, err := l.p.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSymbolNotFound, symbol, err)
	}
	return sym, nil
}

func (pluginLibrary) Close() error { return nil }

// StaticBridge serves modules compiled into the program under path-like
// keys. It stands in for a plugin directory in tests and for built-in
// modules.
type StaticBridge struct {
	mu      sync.RWMutex
	modules map[string]func() Module
}

// NewStaticBridge returns an empty bridge.
func NewStaticBridge() *StaticBridge {
	return &StaticBridge{modules: make(map[string]func() Module)}
}

// Register serves the module returned by open at path. open runs on every
// Open, as a library's initializers would.
func (s *StaticBridge) Register(path string, open func() Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[path] = open
}

// Paths lists the registered paths.
func (s *StaticBridge) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.modules))
	for p := range s.modules {
		paths = append(paths, p)
	}
	return paths
}

func (s *StaticBridge) Open(ctx context.Context, path string) (Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	open, ok := s.modules[path]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("open %s: no such static module", path)
	}
	return staticLibrary{m: open()}, nil
}

type staticLibrary struct{ m Module }

func (l staticLibrary) Lookup(symbol string) (any, error) {
	if symbol != Symbol {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return l.m, nil
}

func (staticLibrary) Close() error { return nil }
