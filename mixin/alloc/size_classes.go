package alloc

import (
	"math"
	"sort"
)

// SizeClassConfig defines how buffer sizes are bucketed by the pooling
// strategies. Small sizes grow linearly, medium sizes geometrically, and
// anything above MediumMax is not pooled.
type SizeClassConfig struct {
	// Name for this configuration (for benchmarking)
	Name string

	SmallMin       uintptr // Smallest class upper bound base (typically 16)
	SmallMax       uintptr // Max for linear increments
	SmallIncrement uintptr // Increment for small classes

	MediumMax    uintptr // Largest pooled buffer
	GrowthFactor float64 // Geometric growth factor for medium classes
}

// Predefined configurations.
var (
	// ConfigFine: many small buckets, suited to many tiny mixins.
	ConfigFine = SizeClassConfig{
		Name:           "Fine",
		SmallMin:       16,
		SmallMax:       256,
		SmallIncrement: 8,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// ConfigBalanced: good balance between pool count and waste.
	ConfigBalanced = SizeClassConfig{
		Name:           "Balanced",
		SmallMin:       16,
		SmallMax:       512,
		SmallIncrement: 16,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// ConfigCoarse: fewer buckets, more internal fragmentation.
	ConfigCoarse = SizeClassConfig{
		Name:           "Coarse",
		SmallMin:       16,
		SmallMax:       512,
		SmallIncrement: 32,
		MediumMax:      16384,
		GrowthFactor:   2.0,
	}

	// DefaultSizeClasses is used when no configuration is given.
	DefaultSizeClasses = ConfigBalanced
)

// sizeClassTable holds the computed size class boundaries.
type sizeClassTable struct {
	config     SizeClassConfig
	boundaries []uintptr // Inclusive upper bound of each class
}

// newSizeClassTable computes size class boundaries from config.
func newSizeClassTable(config SizeClassConfig) *sizeClassTable {
	table := &sizeClassTable{
		config:     config,
		boundaries: make([]uintptr, 0, 64),
	}

	// Phase 1: linear small classes
	for size := config.SmallMin; size < config.SmallMax; size += config.SmallIncrement {
		table.boundaries = append(table.boundaries, size+config.SmallIncrement-1)
	}

	// Phase 2: geometric medium classes
	if config.SmallMax < config.MediumMax {
		size := config.SmallMax
		for size < config.MediumMax {
			next := uintptr(math.Ceil(float64(size) * config.GrowthFactor))
			if next <= size {
				next = size + 1 // Ensure progress
			}
			table.boundaries = append(table.boundaries, next-1)
			size = next
		}
	}
	return table
}

// classOf returns the class index for size, or NumClasses() when the size is
// too large to pool.
func (t *sizeClassTable) classOf(size uintptr) int {
	return sort.Search(len(t.boundaries), func(i int) bool {
		return size <= t.boundaries[i]
	})
}

// classSize returns the buffer size handed out for class i.
func (t *sizeClassTable) classSize(i int) uintptr {
	return t.boundaries[i] + 1
}

// NumClasses returns the number of pooled classes.
func (t *sizeClassTable) NumClasses() int {
	return len(t.boundaries)
}

func (t *sizeClassTable) String() string {
	return t.config.Name
}
