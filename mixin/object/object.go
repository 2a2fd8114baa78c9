package object

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/joshuapare/mixkit/internal/logging"
	"github.com/joshuapare/mixkit/mixin/alloc"
	"github.com/joshuapare/mixkit/mixin/ident"
	"github.com/joshuapare/mixkit/mixin/registry"
)

// Options configures a new Object.
type Options struct {
	// Strategy allocates the slot arrays and, unless a mixin brings its own
	// allocator, the mixin buffers. The object uses it for its whole
	// lifetime.
	// Default: alloc.Default(), wrapped in alloc.Counting when the registry
	// enables additional metrics.
	Strategy alloc.Strategy

	// Locked guards mutations with a mutex.
	// Default: the registry's ThreadSafeMutations setting.
	Locked *bool
}

// DefaultOptions returns the options derived from reg's configuration.
func DefaultOptions(reg *registry.Registry) *Options {
	cfg := reg.Config()
	var s alloc.Strategy = alloc.Default()
	if cfg.AdditionalMetrics {
		s = alloc.NewCounting(s)
	}
	locked := cfg.ThreadSafeMutations
	return &Options{Strategy: s, Locked: &locked}
}

// Object is a runtime entity hosting zero or more mixins.
type Object struct {
	reg      *registry.Registry
	strategy alloc.Strategy
	handle   alloc.Owner
	log      zerolog.Logger

	mu     *sync.Mutex // nil unless mutations are locked
	state  atomic.Pointer[state]
	closed atomic.Bool
}

// state is one immutable generation of the object's mixin set.
type state struct {
	slots []alloc.Slot // attachment order; owned by the strategy
	index []entry      // sorted by mixin id
}

type entry struct {
	id  ident.Mixin
	pos int
}

var empty = &state{}

// New creates an empty object bound to reg. A nil reg selects
// registry.Default(); nil opts selects DefaultOptions.
func New(reg *registry.Registry, opts *Options) *Object {
	if reg == nil {
		reg = registry.Default()
	}
	def := DefaultOptions(reg)
	if opts == nil {
		opts = def
	}
	o := &Object{
		reg:      reg,
		strategy: opts.Strategy,
		log:      logging.For("object"),
	}
	if o.strategy == nil {
		o.strategy = def.Strategy
	}
	if alloc.DebugChecks {
		o.strategy = alloc.Track(o.strategy)
	}
	locked := *def.Locked
	if opts.Locked != nil {
		locked = *opts.Locked
	}
	if locked {
		o.mu = new(sync.Mutex)
	}
	o.state.Store(empty)
	o.handle = registerHandle(o)
	return o
}

// Registry returns the registry the object resolves mixins against.
func (o *Object) Registry() *registry.Registry { return o.reg }

// Strategy returns the allocation strategy the object was created with.
func (o *Object) Strategy() alloc.Strategy {
	if t, ok := o.strategy.(*alloc.Tracked); ok && alloc.DebugChecks {
		return t.Unwrap()
	}
	return o.strategy
}

// Handle returns the process-unique handle written in front of every mixin
// the object hosts.
func (o *Object) Handle() alloc.Owner { return o.handle }

// Len returns the number of attached mixins.
func (o *Object) Len() int { return len(o.state.Load().slots) }

// Has reports whether mixin id is attached. It never allocates.
func (o *Object) Has(id ident.Mixin) bool {
	_, ok := o.state.Load().find(id)
	return ok
}

// Get returns the address of the attached mixin id.
func (o *Object) Get(id ident.Mixin) (unsafe.Pointer, error) {
	st := o.state.Load()
	pos, ok := st.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMixinNotPresent, id)
	}
	return st.slots[pos].Block.Ptr(), nil
}

// Mixins lists the attached mixin ids in attachment order.
func (o *Object) Mixins() []ident.Mixin {
	st := o.state.Load()
	ids := make([]ident.Mixin, len(st.slots))
	for i, s := range st.slots {
		ids[i] = s.Mixin
	}
	return ids
}

// Slots returns the current slot array in attachment order. The array is
// immutable and stays valid for reading after later mutations, except
// under strategies that recycle arrays (alloc.Pool).
func (o *Object) Slots() []alloc.Slot {
	return o.state.Load().slots
}

// find locates id in the sorted index.
func (st *state) find(id ident.Mixin) (int, bool) {
	i, ok := slices.BinarySearchFunc(st.index, id, func(e entry, id ident.Mixin) int {
		switch {
		case e.id < id:
			return -1
		case e.id > id:
			return 1
		}
		return 0
	})
	if !ok {
		return -1, false
	}
	return st.index[i].pos, true
}

func newState(slots []alloc.Slot) *state {
	if len(slots) == 0 {
		return &state{slots: slots}
	}
	index := make([]entry, len(slots))
	for i, s := range slots {
		index[i] = entry{id: s.Mixin, pos: i}
	}
	sort.Slice(index, func(i, j int) bool { return index[i].id < index[j].id })
	return &state{slots: slots, index: index}
}

func (o *Object) lock() func() {
	if o.mu == nil {
		return func() {}
	}
	o.mu.Lock()
	return o.mu.Unlock
}
