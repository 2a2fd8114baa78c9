package object

import (
	"math/rand/v2"
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mixkit/mixin/alloc"
	"github.com/joshuapare/mixkit/mixin/config"
	"github.com/joshuapare/mixkit/mixin/ident"
	"github.com/joshuapare/mixkit/mixin/registry"
)

type position struct{ X, Y float64 }

type label struct {
	Text string
	Tags []string
}

type wide struct{ B [3]byte }

// failing allocates until its budget runs out.
type failing struct {
	budget int
	freed  int
}

func (f *failing) AllocMixin(l alloc.Layout, owner alloc.Owner) (alloc.Block, error) {
	if f.budget == 0 {
		return alloc.Block{}, alloc.ErrAllocationFailure
	}
	f.budget--
	return alloc.Heap{}.AllocMixin(l, owner)
}

func (f *failing) DeallocMixin(alloc.Block, alloc.Layout, alloc.Owner) error {
	f.freed++
	return nil
}

type fixture struct {
	reg      *registry.Registry
	pos      ident.Mixin
	label    ident.Mixin
	aligned  ident.Mixin
	wide     ident.Mixin
	broken   ident.Mixin
	inits    int
	destroys int
	failing  *failing
}

func newFixture(t testing.TB, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	reg, err := registry.New(cfg)
	require.NoError(t, err)

	f := &fixture{reg: reg, failing: &failing{}}
	require.NoError(t, reg.RegisterModule("fixture", func(b *registry.Builder) error {
		var err error
		posDef := registry.Mixin[position]("position")
		posDef.Init = registry.InitFunc(func(p *position) { p.X = 1; f.inits++ })
		posDef.Destroy = registry.DestroyFunc(func(*position) { f.destroys++ })
		if f.pos, err = b.DefineMixin(posDef); err != nil {
			return err
		}
		if f.label, err = b.DefineMixin(registry.Mixin[label]("label")); err != nil {
			return err
		}
		if f.aligned, err = b.DefineMixin(registry.MixinDef{Name: "aligned", Size: 24, Align: 64}); err != nil {
			return err
		}
		if f.wide, err = b.DefineMixin(registry.Mixin[wide]("wide")); err != nil {
			return err
		}
		f.broken, err = b.DefineMixin(registry.MixinDef{Name: "broken", Size: 8, Align: 8, Allocator: f.failing})
		return err
	}))
	return f
}

func TestAdd_AttachesAndConstructs(t *testing.T) {
	f := newFixture(t, nil)
	o := New(f.reg, nil)
	defer o.Close()

	require.NoError(t, o.Add(f.pos))
	require.NoError(t, o.Add(f.pos), "adding twice is a no-op")
	assert.Equal(t, 1, o.Len())
	assert.Equal(t, 1, f.inits)
	assert.Equal(t, int64(1), f.reg.Live(f.pos))

	p, err := As[position](o)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.X)
	p.Y = 7

	again, err := Lookup[position](o, f.pos)
	require.NoError(t, err)
	assert.Same(t, p, again)
}

func TestAdd_UnknownMixinLeavesObjectIntact(t *testing.T) {
	f := newFixture(t, nil)
	o := New(f.reg, nil)
	defer o.Close()
	require.NoError(t, o.Add(f.pos))

	require.ErrorIs(t, o.Add(ident.Mixin(200)), registry.ErrUnknownMixin)
	require.ErrorIs(t, o.AddByName("nope"), registry.ErrUnknownMixin)
	require.ErrorIs(t, AddType[struct{ Z int }](o), registry.ErrUnknownMixin)
	assert.Equal(t, []ident.Mixin{f.pos}, o.Mixins())
}

func TestRemove(t *testing.T) {
	f := newFixture(t, nil)
	o := New(f.reg, nil)
	defer o.Close()

	require.ErrorIs(t, o.Remove(f.pos), ErrMixinNotPresent)
	require.NoError(t, o.Add(f.pos))
	require.NoError(t, o.AddByName("label"))
	require.NoError(t, o.Remove(f.pos))

	assert.False(t, o.Has(f.pos))
	assert.True(t, o.Has(f.label))
	assert.Equal(t, 1, f.destroys)
	assert.Zero(t, f.reg.Live(f.pos))

	_, err := o.Get(f.pos)
	require.ErrorIs(t, err, ErrMixinNotPresent)
	require.NoError(t, RemoveType[label](o))
	assert.Zero(t, o.Len())
}

func TestMutation_AllOrNothing(t *testing.T) {
	f := newFixture(t, nil)
	o := New(f.reg, nil)
	defer o.Close()
	require.NoError(t, o.Add(f.pos))

	err := o.Mutate().Add(f.label).Remove(f.wide).Apply()
	require.ErrorIs(t, err, ErrMixinNotPresent)
	assert.Equal(t, []ident.Mixin{f.pos}, o.Mixins())

	f.failing.budget = 0
	err = o.Mutate().Add(f.label).Add(f.broken).Apply()
	require.ErrorIs(t, err, alloc.ErrAllocationFailure)
	assert.Equal(t, []ident.Mixin{f.pos}, o.Mixins())
	assert.Zero(t, f.reg.Live(f.label))

	require.NoError(t, o.Mutate().Add(f.label).Remove(f.pos).Add(f.wide).Apply())
	assert.Equal(t, []ident.Mixin{f.label, f.wide}, o.Mixins())

	require.NoError(t, o.Mutate().Add(f.pos).Remove(f.pos).Apply(), "net no-op")
	assert.Equal(t, []ident.Mixin{f.label, f.wide}, o.Mixins())
}

func TestAlignmentAndOwner(t *testing.T) {
	f := newFixture(t, nil)
	o := New(f.reg, nil)
	defer o.Close()
	require.NoError(t, o.Mutate().Add(f.wide).Add(f.aligned).Add(f.label).Add(f.pos).Apply())

	for _, s := range o.Slots() {
		p := s.Block.Ptr()
		assert.Zero(t, uintptr(p)%s.Layout.Align, "%s", s.Mixin)
		owner, ok := OwnerOf(p)
		require.True(t, ok)
		assert.Same(t, o, owner)
	}

	l, err := As[label](o)
	require.NoError(t, err)
	l.Text = "hello"
	l.Tags = append(l.Tags, "a", "b")
	runtime.GC()
	l2, _ := As[label](o)
	assert.Equal(t, "hello", l2.Text)
	assert.Equal(t, []string{"a", "b"}, l2.Tags)

	owner, ok := Owner(l)
	require.True(t, ok)
	assert.Same(t, o, owner)
}

func TestTypedAccess_Mismatch(t *testing.T) {
	f := newFixture(t, nil)
	o := New(f.reg, nil)
	defer o.Close()
	require.NoError(t, o.Mutate().Add(f.pos).Add(f.aligned).Apply())

	_, err := Lookup[label](o, f.pos)
	require.ErrorIs(t, err, ErrTypeMismatch)

	raw, err := Lookup[[3]uint64](o, f.aligned)
	require.NoError(t, err)
	assert.Zero(t, uintptr(unsafe.Pointer(raw))%64)
	_, err = Lookup[[4]uint64](o, f.aligned)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestClose(t *testing.T) {
	f := newFixture(t, nil)
	o := New(f.reg, nil)
	require.NoError(t, o.Mutate().Add(f.pos).Add(f.label).Apply())
	h := o.Handle()

	require.NoError(t, o.Close())
	require.NoError(t, o.Close())
	assert.Zero(t, o.Len())
	assert.Equal(t, 1, f.destroys)
	assert.Zero(t, f.reg.Live(f.pos))
	assert.ErrorIs(t, o.Add(f.pos), ErrClosed)

	_, ok := resolve(h)
	assert.False(t, ok)
}

func TestOwnerOf_Unknown(t *testing.T) {
	_, ok := OwnerOf(nil)
	assert.False(t, ok)

	buf := make([]byte, 16)
	_, ok = OwnerOf(unsafe.Pointer(&buf[8]))
	assert.False(t, ok, "zero handle")
}

func TestStrategyFromConfig(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.AdditionalMetrics = true
		c.ThreadSafeMutations = true
	})
	o := New(f.reg, nil)
	defer o.Close()
	require.NotNil(t, o.mu)

	counting, ok := o.Strategy().(*alloc.Counting)
	require.True(t, ok)
	require.NoError(t, o.Mutate().Add(f.pos).Add(f.wide).Apply())
	require.NoError(t, o.Remove(f.wide))

	st := counting.Stats()
	assert.Equal(t, int64(2), st.ArrayAllocs)
	assert.Equal(t, int64(1), st.ArrayFrees)
	assert.Equal(t, int64(1), st.SlotsInUse)
	assert.Equal(t, int64(1), st.MixinsLive)
}

func TestCustomStrategies(t *testing.T) {
	f := newFixture(t, nil)
	for name, s := range map[string]alloc.Strategy{
		"pool":  alloc.NewPool(alloc.DefaultSizeClasses),
		"arena": alloc.NewArena(alloc.ArenaOptions{}),
	} {
		t.Run(name, func(t *testing.T) {
			o := New(f.reg, &Options{Strategy: s})
			require.NoError(t, o.Mutate().Add(f.pos).Add(f.aligned).Add(f.wide).Apply())
			for _, sl := range o.Slots() {
				assert.Zero(t, uintptr(sl.Block.Ptr())%sl.Layout.Align)
				owner, ok := OwnerOf(sl.Block.Ptr())
				require.True(t, ok)
				assert.Same(t, o, owner)
			}
			require.NoError(t, o.Close())
		})
	}

	t.Run("arena refuses pointers", func(t *testing.T) {
		o := New(f.reg, &Options{Strategy: alloc.NewArena(alloc.ArenaOptions{})})
		defer o.Close()
		require.ErrorIs(t, o.Add(f.label), alloc.ErrAllocationFailure)
		assert.Zero(t, o.Len())
	})
}

func TestRetractWhileAttached(t *testing.T) {
	f := newFixture(t, nil)
	o := New(f.reg, nil)
	require.NoError(t, o.Add(f.pos))
	require.ErrorIs(t, f.reg.RetractModule("fixture"), registry.ErrMixinInUse)
	require.NoError(t, o.Close())
	require.NoError(t, f.reg.RetractModule("fixture"))
}

// Random add/remove sequences keep the count equal to adds minus removes
// and every attached mixin aligned and owned.
func TestMutation_RandomSequences(t *testing.T) {
	f := newFixture(t, nil)
	ids := []ident.Mixin{f.pos, f.label, f.aligned, f.wide}
	rng := rand.New(rand.NewPCG(1, 2))

	for round := range 50 {
		o := New(f.reg, nil)
		attached := map[ident.Mixin]bool{}
		adds, removes := 0, 0
		for range 40 {
			id := ids[rng.IntN(len(ids))]
			if rng.IntN(2) == 0 {
				require.NoError(t, o.Add(id))
				if !attached[id] {
					adds++
				}
				attached[id] = true
				continue
			}
			err := o.Remove(id)
			if attached[id] {
				require.NoError(t, err)
				removes++
				delete(attached, id)
			} else {
				require.ErrorIs(t, err, ErrMixinNotPresent)
			}
		}
		require.Equal(t, adds-removes, o.Len(), "round %d", round)
		for _, s := range o.Slots() {
			require.True(t, attached[s.Mixin])
			require.Zero(t, uintptr(s.Block.Ptr())%s.Layout.Align)
			owner, ok := OwnerOf(s.Block.Ptr())
			require.True(t, ok)
			require.Same(t, o, owner)
		}
		require.NoError(t, o.Close())
	}
	for _, id := range ids {
		assert.Zero(t, f.reg.Live(id))
	}
}

func TestSlotsSurviveMutation(t *testing.T) {
	f := newFixture(t, nil)
	o := New(f.reg, nil)
	defer o.Close()
	require.NoError(t, o.Mutate().Add(f.pos).Add(f.wide).Apply())

	before := o.Slots()
	require.NoError(t, o.Remove(f.pos))
	require.Len(t, before, 2)
	assert.Equal(t, f.wide, before[1].Mixin, "readers keep a consistent view")
}

func TestDefaultRegistry(t *testing.T) {
	o := New(nil, nil)
	defer o.Close()
	assert.Same(t, registry.Default(), o.Registry())
	assert.Zero(t, o.Len())
	assert.NotZero(t, o.Handle())
}
