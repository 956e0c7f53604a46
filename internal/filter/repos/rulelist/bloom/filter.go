package bloom

import bitsbloom "github.com/bits-and-blooms/bloom/v3"

// filter wraps a bits-and-blooms BloomFilter. It is populated before the
// owning snapshot is published and only read afterwards.
type filter struct {
	bf *bitsbloom.BloomFilter
}

func (f *filter) Add(key []byte) { f.bf.Add(key) }

func (f *filter) MightContain(key []byte) bool { return f.bf.Test(key) }
