package alloc

// mixinOnly forwards the mixin operations of a MixinAllocator and hides the
// slot array operations.
type mixinOnly struct {
	MixinAllocator
}

// MixinOnly adapts a per-mixin allocator to the Strategy interface. The
// array operations always fail with ErrArrayUnsupported, so such an
// allocator can never be used as an object's domain strategy by mistake.
func MixinOnly(m MixinAllocator) Strategy {
	if s, ok := m.(mixinOnly); ok {
		return s
	}
	return mixinOnly{MixinAllocator: m}
}

func (mixinOnly) AllocMixinArray(int, Owner) ([]Slot, error) {
	return nil, ErrArrayUnsupported
}

func (mixinOnly) DeallocMixinArray([]Slot, int, Owner) error {
	return ErrArrayUnsupported
}

// Unwrap returns the wrapped allocator.
func (m mixinOnly) Unwrap() MixinAllocator { return m.MixinAllocator }
