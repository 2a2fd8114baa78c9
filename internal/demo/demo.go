// Package demo holds the reference modules used by mixctl, the example
// plugin and the loader tests: an executable-side mixin, a shared library
// with two mixins, and plugins that attach themselves to objects.
package demo

import (
	"github.com/joshuapare/mixkit/mixin/dispatch"
	"github.com/joshuapare/mixkit/mixin/module"
	"github.com/joshuapare/mixkit/mixin/object"
	"github.com/joshuapare/mixkit/mixin/registry"
)

// Messages shared by every demo module.
var (
	Sum      = dispatch.NewMessage[struct{}, int]("dl_a_multicast")
	Specific = dispatch.NewMessage[struct{}, int]("dl_a_mixin_specific")
	Exported = dispatch.NewMessage[struct{}, int]("dl_a_exported")
)

// Mixin names.
const (
	ExeMixin     = "exe_mixin"
	LibMixin1    = "dynlib_a_mixin1"
	LibMixin2    = "dynlib_a_mixin2"
	PluginAMixin = "plugin_a_mixin"
	PluginBMixin = "plugin_b_mixin"
)

// Module names.
const (
	ExeModule     = "exe"
	LibModule     = "dynlib_a"
	PluginAModule = "plugin_a"
	PluginBModule = "plugin_b"
)

// Static paths served by NewBridge.
const (
	ExePath        = "builtin:exe"
	LibPath        = "builtin:dynlib_a"
	PluginAPath    = "builtin:plugin_a"
	PluginAModPath = "builtin:plugin_a_mod"
	PluginBPath    = "builtin:plugin_b"
)

type exeMixin struct{ V int }

type libMixin1 struct{ V int }

type libMixin2 struct{ V int }

type pluginA struct {
	V    int
	Sign int
}

type pluginB struct{ V int }

// Exe defines exe_mixin, contributing 1 to the sum.
func Exe() module.Module {
	return module.New(ExeModule, func(b *registry.Builder) error {
		def := registry.Mixin[exeMixin](ExeMixin,
			dispatch.Implement(Sum, func(m *exeMixin, _ struct{}) int { return m.V }),
		)
		def.Init = registry.InitFunc(func(m *exeMixin) { m.V = 1 })
		_, err := b.DefineMixin(def)
		return err
	})
}

// Lib defines two mixins contributing 11 and 12. Both implement the
// specific message; the second at a higher priority.
func Lib() module.Module {
	return module.New(LibModule, func(b *registry.Builder) error {
		m1 := registry.Mixin[libMixin1](LibMixin1,
			dispatch.Implement(Sum, func(m *libMixin1, _ struct{}) int { return m.V }),
			dispatch.Implement(Specific, func(*libMixin1, struct{}) int { return 101 }),
		)
		m1.Init = registry.InitFunc(func(m *libMixin1) { m.V = 11 })

		m2 := registry.Mixin[libMixin2](LibMixin2,
			dispatch.Implement(Sum, func(m *libMixin2, _ struct{}) int { return m.V }),
			dispatch.Implement(Specific, func(*libMixin2, struct{}) int { return 102 }, dispatch.WithPriority(1)),
		)
		m2.Init = registry.InitFunc(func(m *libMixin2) { m.V = 12 })

		for _, def := range []registry.MixinDef{m1, m2} {
			if _, err := b.DefineMixin(def); err != nil {
				return err
			}
		}
		return nil
	})
}

// hooked is a module that attaches one mixin type to the objects it is
// given.
type hooked[T any] struct {
	*module.Func
}

func (h hooked[T]) ModifyObject(o *object.Object) error { return object.AddType[T](o) }

func (h hooked[T]) ReleaseObject(o *object.Object) error { return object.RemoveType[T](o) }

// PluginA adds 101 to the sum and implements the exported message, which
// multicasts the sum on its own object.
func PluginA() module.Module { return pluginAVariant(101, 1) }

// PluginAMod is a rebuilt PluginA: it adds 102 and negates the exported
// result.
func PluginAMod() module.Module { return pluginAVariant(102, -1) }

func pluginAVariant(v, sign int) module.Module {
	return hooked[pluginA]{module.New(PluginAModule, func(b *registry.Builder) error {
		def := registry.Mixin[pluginA](PluginAMixin,
			dispatch.Implement(Sum, func(m *pluginA, _ struct{}) int { return m.V }),
			dispatch.Implement(Exported, func(m *pluginA, _ struct{}) int {
				o, ok := object.Owner(m)
				if !ok {
					return 0
				}
				n, _ := dispatch.Multicast(o, Sum, struct{}{}, dispatch.Sum[int]())
				return m.Sign * n
			}),
		)
		def.Init = registry.InitFunc(func(m *pluginA) { m.V, m.Sign = v, sign })
		_, err := b.DefineMixin(def)
		return err
	})}
}

// PluginB adds 1001 to the sum. It also declares the library's first mixin,
// sharing its identifier without defining it.
func PluginB() module.Module {
	return hooked[pluginB]{module.New(PluginBModule, func(b *registry.Builder) error {
		if _, err := b.DeclareMixin(LibMixin1); err != nil {
			return err
		}
		def := registry.Mixin[pluginB](PluginBMixin,
			dispatch.Implement(Sum, func(m *pluginB, _ struct{}) int { return m.V }),
		)
		def.Init = registry.InitFunc(func(m *pluginB) { m.V = 1001 })
		_, err := b.DefineMixin(def)
		return err
	})}
}

// NewBridge serves every demo module under its builtin path.
func NewBridge() *module.StaticBridge {
	br := module.NewStaticBridge()
	br.Register(ExePath, Exe)
	br.Register(LibPath, Lib)
	br.Register(PluginAPath, PluginA)
	br.Register(PluginAModPath, PluginAMod)
	br.Register(PluginBPath, PluginB)
	return br
}
