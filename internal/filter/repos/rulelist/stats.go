package rulelist

// CacheStats reports lightweight cache metrics.
// All fields are best-effort snapshots and may be updated concurrently.
type CacheStats struct {
	Capacity  int    // configured capacity (0 for disabled cache)
	Size      int    // current number of entries
	Hits      uint64 // total cache hits since construction
	Misses    uint64 // total cache misses since construction
	Evictions uint64 // total evictions since construction
}

// StoreStats reports lightweight store metrics and metadata.
type StoreStats struct {
	Name        string // list name of the stored snapshot
	Version     uint64 // snapshot version (0 if unknown)
	UpdatedUnix int64  // last updated unix time (0 if unknown)
	AllowRules  uint64
	DenyRules   uint64
}

// RepoStats exposes the active snapshot's cache counters and store stats.
type RepoStats struct {
	Cache      CacheStats
	Store      StoreStats
	Version    uint64 // version of the active snapshot
	Rules      int    // rules in the active snapshot
	LastUpdate int64  // seconds since epoch
}
