package alloc

import "sync/atomic"

// Stats holds allocation metrics collected by Counting.
type Stats struct {
	ArrayAllocs   int64 // AllocMixinArray calls that succeeded
	ArrayFrees    int64 // DeallocMixinArray calls
	SlotsInUse    int64 // Slots held by live arrays
	MixinAllocs   int64 // AllocMixin calls that succeeded
	MixinFrees    int64 // DeallocMixin calls
	MixinsLive    int64 // Outstanding mixin buffers
	BytesLive     int64 // Bytes held by outstanding mixin buffers
	PeakBytesLive int64 // High-water mark of BytesLive
	Failures      int64 // Allocation calls that returned an error
}

// Counting wraps a Strategy and records Stats. It is installed around the
// default strategy when extended allocation metrics are enabled.
type Counting struct {
	inner Strategy

	arrayAllocs, arrayFrees, slotsInUse atomic.Int64
	mixinAllocs, mixinFrees, mixinsLive atomic.Int64
	bytesLive, peakBytes, failures      atomic.Int64
}

// NewCounting wraps s.
func NewCounting(s Strategy) *Counting {
	return &Counting{inner: s}
}

func (c *Counting) AllocMixinArray(count int, owner Owner) ([]Slot, error) {
	arr, err := c.inner.AllocMixinArray(count, owner)
	if err != nil {
		c.failures.Add(1)
		return nil, err
	}
	c.arrayAllocs.Add(1)
	c.slotsInUse.Add(int64(count))
	return arr, nil
}

func (c *Counting) DeallocMixinArray(arr []Slot, count int, owner Owner) error {
	c.arrayFrees.Add(1)
	c.slotsInUse.Add(-int64(count))
	return c.inner.DeallocMixinArray(arr, count, owner)
}

func (c *Counting) AllocMixin(l Layout, owner Owner) (Block, error) {
	b, err := c.inner.AllocMixin(l, owner)
	if err != nil {
		c.failures.Add(1)
		return Block{}, err
	}
	c.mixinAllocs.Add(1)
	c.mixinsLive.Add(1)
	live := c.bytesLive.Add(int64(len(b.Buf)))
	for {
		peak := c.peakBytes.Load()
		if live <= peak || c.peakBytes.CompareAndSwap(peak, live) {
			break
		}
	}
	return b, nil
}

func (c *Counting) DeallocMixin(b Block, l Layout, owner Owner) error {
	c.mixinFrees.Add(1)
	c.mixinsLive.Add(-1)
	c.bytesLive.Add(-int64(len(b.Buf)))
	return c.inner.DeallocMixin(b, l, owner)
}

// Stats returns a snapshot of the counters.
func (c *Counting) Stats() Stats {
	return Stats{
		ArrayAllocs:   c.arrayAllocs.Load(),
		ArrayFrees:    c.arrayFrees.Load(),
		SlotsInUse:    c.slotsInUse.Load(),
		MixinAllocs:   c.mixinAllocs.Load(),
		MixinFrees:    c.mixinFrees.Load(),
		MixinsLive:    c.mixinsLive.Load(),
		BytesLive:     c.bytesLive.Load(),
		PeakBytesLive: c.peakBytes.Load(),
		Failures:      c.failures.Load(),
	}
}

// Unwrap returns the wrapped strategy.
func (c *Counting) Unwrap() Strategy { return c.inner }
