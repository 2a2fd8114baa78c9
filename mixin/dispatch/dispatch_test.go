package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mixkit/mixin/config"
	"github.com/joshuapare/mixkit/mixin/ident"
	"github.com/joshuapare/mixkit/mixin/object"
	"github.com/joshuapare/mixkit/mixin/registry"
)

type term struct{ V int }

type flag struct{ On bool }

var (
	sum      = NewMessage[struct{}, int]("sum")
	specific = NewMessage[struct{}, int]("specific")
	scale    = NewMessage[int, int]("scale")
	ready    = NewMessage[struct{}, bool]("ready")
)

func termDef(name string, v int, impls ...registry.Impl) registry.MixinDef {
	def := registry.Mixin[term](name, append([]registry.Impl{
		Implement(sum, func(t *term, _ struct{}) int { return t.V }),
		Implement(scale, func(t *term, k int) int { return t.V * k }),
	}, impls...)...)
	def.Init = registry.InitFunc(func(t *term) { t.V = v })
	return def
}

type world struct {
	reg *registry.Registry
	ids map[string]ident.Mixin
}

func newWorld(t testing.TB, policy config.UnicastPolicy) *world {
	t.Helper()
	cfg := config.Default()
	cfg.UnicastPolicy = policy
	reg, err := registry.New(cfg)
	require.NoError(t, err)

	w := &world{reg: reg, ids: map[string]ident.Mixin{}}
	defs := []registry.MixinDef{
		termDef("one", 1),
		termDef("eleven", 11, Implement(specific, func(*term, struct{}) int { return 101 })),
		termDef("twelve", 12, Implement(specific, func(*term, struct{}) int { return 102 }, WithPriority(1))),
		termDef("peer", 5, Implement(specific, func(*term, struct{}) int { return 105 }, WithPriority(1))),
		registry.Mixin[flag]("flag", Implement(ready, func(f *flag, _ struct{}) bool { return f.On })),
	}
	require.NoError(t, reg.RegisterModule("world", func(b *registry.Builder) error {
		for _, def := range defs {
			id, err := b.DefineMixin(def)
			if err != nil {
				return err
			}
			w.ids[def.Name] = id
		}
		return nil
	}))
	return w
}

func total(t *testing.T, o *object.Object) int {
	t.Helper()
	n, err := Multicast(o, sum, struct{}{}, Sum[int]())
	require.NoError(t, err)
	return n
}

func TestMulticast_SumTracksAttachedMixins(t *testing.T) {
	w := newWorld(t, config.PolicyStrict)
	o := object.New(w.reg, nil)
	defer o.Close()

	assert.Zero(t, total(t, o), "identity with no implementers")

	require.NoError(t, o.Add(w.ids["one"]))
	assert.Equal(t, 1, total(t, o))
	require.NoError(t, o.Add(w.ids["eleven"]))
	assert.Equal(t, 12, total(t, o))
	require.NoError(t, o.Add(w.ids["twelve"]))
	assert.Equal(t, 24, total(t, o))
	require.NoError(t, o.Remove(w.ids["eleven"]))
	assert.Equal(t, 13, total(t, o))
	require.NoError(t, o.Add(w.ids["eleven"]))
	assert.Equal(t, 24, total(t, o))
}

func TestMulticast_OrderAndCombinators(t *testing.T) {
	w := newWorld(t, config.PolicyStrict)
	o := object.New(w.reg, nil)
	defer o.Close()
	require.NoError(t, o.Mutate().Add(w.ids["twelve"]).Add(w.ids["one"]).Add(w.ids["eleven"]).Apply())

	got, err := Multicast(o, scale, 2, Collect[int]())
	require.NoError(t, err)
	assert.Equal(t, []int{24, 2, 22}, got, "attachment order")

	last, err := Multicast(o, sum, struct{}{}, Last[int]())
	require.NoError(t, err)
	assert.Equal(t, 11, last)

	prod, err := Multicast(o, sum, struct{}{}, Product[int]())
	require.NoError(t, err)
	assert.Equal(t, 132, prod)

	require.NoError(t, Broadcast(o, sum, struct{}{}))
	assert.Equal(t, 3, ImplementerCount(o, sum))
	assert.False(t, Implements(o, ready))
}

func TestMulticast_ShortCircuit(t *testing.T) {
	w := newWorld(t, config.PolicyStrict)
	o := object.New(w.reg, nil)
	defer o.Close()

	all, err := Multicast(o, ready, struct{}{}, And())
	require.NoError(t, err)
	assert.True(t, all, "And identity")
	anyOn, err := Multicast(o, ready, struct{}{}, Or())
	require.NoError(t, err)
	assert.False(t, anyOn, "Or identity")

	require.NoError(t, o.Add(w.ids["flag"]))
	all, err = Multicast(o, ready, struct{}{}, And())
	require.NoError(t, err)
	assert.False(t, all)

	f, err := object.As[flag](o)
	require.NoError(t, err)
	f.On = true
	anyOn, err = Multicast(o, ready, struct{}{}, Or())
	require.NoError(t, err)
	assert.True(t, anyOn)
}

func TestMulticast_UnregisteredMessage(t *testing.T) {
	w := newWorld(t, config.PolicyStrict)
	o := object.New(w.reg, nil)
	defer o.Close()

	n, err := Multicast(o, NewMessage[struct{}, int]("nobody"), struct{}{}, Sum[int]())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = Multicast(o, NewMessage[string, int]("sum"), "x", Sum[int]())
	require.ErrorIs(t, err, registry.ErrSignatureMismatch)
}

func TestUnicast_Priority(t *testing.T) {
	w := newWorld(t, config.PolicyStrict)
	o := object.New(w.reg, nil)
	defer o.Close()

	_, err := Unicast(o, specific, struct{}{})
	require.ErrorIs(t, err, registry.ErrUnsupportedMessage)

	require.NoError(t, o.Add(w.ids["eleven"]))
	got, err := Unicast(o, specific, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 101, got)

	require.NoError(t, o.Add(w.ids["twelve"]))
	got, err = Unicast(o, specific, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 102, got, "higher priority wins")

	require.NoError(t, o.Add(w.ids["peer"]))
	_, err = Unicast(o, specific, struct{}{})
	require.ErrorIs(t, err, ErrAmbiguousMessage)
}

func TestUnicast_FirstMatchPolicy(t *testing.T) {
	w := newWorld(t, config.PolicyFirstMatch)
	o := object.New(w.reg, nil)
	defer o.Close()
	require.NoError(t, o.Mutate().Add(w.ids["peer"]).Add(w.ids["twelve"]).Apply())

	got, err := Unicast(o, specific, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 105, got, "earliest attached")
}

func TestCall_ExplicitMixin(t *testing.T) {
	w := newWorld(t, config.PolicyStrict)
	o := object.New(w.reg, nil)
	defer o.Close()
	require.NoError(t, o.Mutate().Add(w.ids["eleven"]).Add(w.ids["twelve"]).Add(w.ids["flag"]).Apply())

	got, err := Call(o, w.ids["eleven"], scale, 3)
	require.NoError(t, err)
	assert.Equal(t, 33, got)

	_, err = Call(o, w.ids["flag"], scale, 3)
	require.ErrorIs(t, err, registry.ErrUnsupportedMessage)
	_, err = Call(o, w.ids["one"], scale, 3)
	require.ErrorIs(t, err, object.ErrMixinNotPresent)
}

func TestImplementationSeesOwner(t *testing.T) {
	reg, err := registry.New(config.Default())
	require.NoError(t, err)
	whoami := NewMessage[struct{}, *object.Object]("whoami")
	require.NoError(t, reg.RegisterModule("m", func(b *registry.Builder) error {
		_, err := b.DefineMixin(registry.Mixin[term]("t", Implement(whoami, func(t *term, _ struct{}) *object.Object {
			o, _ := object.Owner(t)
			return o
		})))
		return err
	}))

	o := object.New(reg, nil)
	defer o.Close()
	require.NoError(t, o.AddByName("t"))
	got, err := Unicast(o, whoami, struct{}{})
	require.NoError(t, err)
	assert.Same(t, o, got)
}

func TestMessageIDFollowsRegistry(t *testing.T) {
	reg, err := registry.New(config.Default())
	require.NoError(t, err)
	msg := NewMessage[struct{}, int]("late")

	_, err = msg.ID(reg)
	require.ErrorIs(t, err, registry.ErrUnsupportedMessage)

	require.NoError(t, reg.RegisterModule("filler", func(b *registry.Builder) error {
		_, err := b.DefineMessage(registry.MessageDef{Name: "filler", Signature: msg.Def().Signature})
		return err
	}))
	require.NoError(t, reg.RegisterModule("m", func(b *registry.Builder) error {
		_, err := b.DefineMessage(msg.Def())
		return err
	}))
	id, err := msg.ID(reg)
	require.NoError(t, err)
	assert.Equal(t, ident.Message(1), id)

	require.NoError(t, reg.RetractModule("filler"))
	require.NoError(t, reg.RetractModule("m"))
	require.NoError(t, reg.RegisterModule("m2", func(b *registry.Builder) error {
		_, err := b.DefineMessage(msg.Def())
		return err
	}))
	id, err = msg.ID(reg)
	require.NoError(t, err)
	assert.Equal(t, ident.Message(0), id, "stale cached id is not reused")
}
