package rulelist

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/haukened/rr-filter/internal/filter/common/log"
	"github.com/haukened/rr-filter/internal/filter/common/utils"
	"github.com/haukened/rr-filter/internal/filter/domain"
)

// ErrNoSnapshot is returned by Store.Load when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no stored snapshot")

// repository implements Repository over immutable snapshots. Each snapshot
// owns a Bloom filter of registered domains per partition and a fresh match
// cache; lookups go bloom → cache → scan.
type repository struct {
	current  atomic.Pointer[snapshot]
	store    Store
	newCache CacheFactory
	factory  BloomFactory
	fpRate   float64
	logger   log.Logger
}

type snapshot struct {
	list    domain.FilterList
	version uint64
	updated int64
	cache   MatchCache
	parts   map[domain.ListType]*partition
}

// NewRepository constructs a Repository with no active snapshot.
// fpRate is the target false-positive rate for the Bloom filters built on update.
func NewRepository(store Store, newCache CacheFactory, factory BloomFactory, fpRate float64, logger log.Logger) Repository {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &repository{store: store, newCache: newCache, factory: factory, fpRate: fpRate, logger: logger}
}

// Partition returns a view of one list type of the active snapshot. Before
// the first update it returns an empty partition.
func (r *repository) Partition(lt domain.ListType) domain.Partition {
	s := r.current.Load()
	if s == nil {
		return domain.StaticPartition{}
	}
	if p, ok := s.parts[lt]; ok {
		return p
	}
	return domain.StaticPartition{ListDefaults: s.list.Defaults[lt]}
}

// UpdateAll validates list, persists it and swaps it in. On any error the
// previous snapshot stays active.
func (r *repository) UpdateAll(list domain.FilterList, version uint64, updatedUnix int64) error {
	if err := list.Validate(); err != nil {
		return err
	}
	s, err := r.build(list, version, updatedUnix)
	if err != nil {
		return err
	}
	if err := r.store.RebuildAll(list, version, updatedUnix); err != nil {
		return fmt.Errorf("persisting list %q: %w", list.Name, err)
	}
	r.current.Store(s)
	r.logger.Info(map[string]any{"list": list.Name, "version": version, "rules": list.Len()}, "snapshot_applied")
	return nil
}

// Restore activates the last persisted list.
func (r *repository) Restore() error {
	list, st, err := r.store.Load()
	if err != nil {
		return err
	}
	if err := list.Validate(); err != nil {
		return fmt.Errorf("stored snapshot: %w", err)
	}
	s, err := r.build(list, st.Version, st.UpdatedUnix)
	if err != nil {
		return err
	}
	r.current.Store(s)
	r.logger.Info(map[string]any{"list": list.Name, "version": st.Version, "rules": list.Len()}, "snapshot_restored")
	return nil
}

// RepoStats reports the active snapshot's counters.
func (r *repository) RepoStats() RepoStats {
	st := RepoStats{Store: r.store.Stats()}
	if s := r.current.Load(); s != nil {
		st.Cache = s.cache.Stats()
		st.Version = s.version
		st.Rules = s.list.Len()
		st.LastUpdate = s.updated
	}
	return st
}

func (r *repository) build(list domain.FilterList, version uint64, updatedUnix int64) (*snapshot, error) {
	cache, err := r.newCache()
	if err != nil {
		return nil, fmt.Errorf("creating match cache: %w", err)
	}
	s := &snapshot{
		list:    list,
		version: version,
		updated: updatedUnix,
		cache:   cache,
		parts:   make(map[domain.ListType]*partition, len(list.Rules)),
	}
	for lt, rules := range list.Rules {
		bf := r.factory.New(uint64(len(rules)), r.fpRate)
		for _, ru := range rules {
			apex, err := ru.RegisteredDomain()
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", ru, err)
			}
			bf.Add([]byte(apex))
		}
		s.parts[lt] = &partition{
			listType: lt,
			rules:    rules,
			defaults: list.Defaults[lt],
			bloom:    bf,
			cache:    cache,
		}
	}
	return s, nil
}

// partition is the domain.Partition of one list type within a snapshot.
type partition struct {
	listType domain.ListType
	rules    []domain.DomainRule
	defaults domain.ListDefaults
	bloom    BloomFilter
	cache    MatchCache
}

var _ domain.Partition = (*partition)(nil)

func (p *partition) Rules() []domain.DomainRule    { return p.rules }
func (p *partition) Defaults() domain.ListDefaults { return p.defaults }

// Match returns the same indexes as domain.MatchRules. A rule can only
// trigger on a target sharing its registered domain, so a bloom miss on the
// target's registered domain skips the scan.
func (p *partition) Match(target string) ([]int, error) {
	// 1) checkBloom
	apex, err := utils.RegisteredDomain(utils.HostOf(target))
	if err != nil || !p.bloom.MightContain([]byte(apex)) {
		return nil, nil
	}
	// 2) checkCache
	key := p.listType.String() + "|" + target
	if idx, ok := p.cache.Get(key); ok {
		return idx, nil
	}
	// 3) scan
	idx, err := domain.MatchRules(p.rules, target)
	if err != nil {
		return nil, err
	}
	// 4) updateCache
	p.cache.Put(key, idx)
	return idx, nil
}
