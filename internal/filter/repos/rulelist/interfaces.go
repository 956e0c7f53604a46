package rulelist

import "github.com/haukened/rr-filter/internal/filter/domain"

// BloomSizer computes Bloom filter parameters from capacity (n) and target FP rate (p).
// It returns m (number of bits) and k (number of hash functions).
type BloomSizer interface {
	Size(n uint64, p float64) (m uint64, k uint8)
}

// BloomFilter is the minimal interface the repository needs from Bloom filters.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory builds a filter sized for capacity keys at fpRate.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// MatchCache caches the rule indexes a target matched, with basic metrics.
// Cached slices are shared and must not be modified by callers.
type MatchCache interface {
	Get(key string) ([]int, bool)
	Put(key string, idx []int)
	Len() int
	Stats() CacheStats
}

// CacheFactory returns an empty MatchCache. The repository calls it once per
// snapshot so cached matches never outlive the rules they were computed on.
type CacheFactory func() (MatchCache, error)

// Store persists the last applied filter list.
//   - RebuildAll replaces the stored list and metadata in one transaction
//   - Load returns the stored list, or ErrNoSnapshot when nothing was stored
type Store interface {
	RebuildAll(list domain.FilterList, version uint64, updatedUnix int64) error
	Load() (domain.FilterList, StoreStats, error)
	Stats() StoreStats
	Close() error
}

// Repository serves the active filter list and replaces it atomically.
type Repository interface {
	Partition(lt domain.ListType) domain.Partition
	UpdateAll(list domain.FilterList, version uint64, updatedUnix int64) error
	Restore() error
	RepoStats() RepoStats
}
