// Package bloom provides the registered-domain prefilter of rule snapshots.
package bloom

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/rr-filter/internal/filter/repos/rulelist"
)

// DefaultFPRate is used when a factory is asked for an out-of-range rate.
const DefaultFPRate = 0.01

// factory implements rulelist.BloomFactory on top of a BloomSizer.
type factory struct {
	sizer rulelist.BloomSizer
}

// NewFactory returns a BloomFactory that sizes filters from capacity and FP rate.
func NewFactory() rulelist.BloomFactory { return factory{sizer: NewSizer()} }

// New constructs a filter sized for the given dataset capacity and target
// false-positive rate.
func (f factory) New(capacity uint64, fpRate float64) rulelist.BloomFilter {
	m, k := f.sizer.Size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(uint(m), uint(k))}
}
