package rulelist_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/haukened/rr-filter/internal/filter/domain"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist/bloom"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist/bolt"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist/lru"
)

func benchRepo(b *testing.B, n, cacheSize int) domain.Partition {
	b.Helper()
	store, err := bolt.New(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatalf("bolt.New: %v", err)
	}
	b.Cleanup(func() { _ = store.Close() })

	list := domain.NewFilterList("domain")
	for i := range n {
		r, err := domain.NewDomainRule(i+1, fmt.Sprintf("d%05d.com", i), domain.ListDeny, "bench", time.Unix(0, 0))
		if err != nil {
			b.Fatalf("NewDomainRule: %v", err)
		}
		list.AddRules(r)
	}
	repo := rulelist.NewRepository(store, lru.Factory(cacheSize), bloom.NewFactory(), 0.01, nil)
	if err := repo.UpdateAll(list, 1, time.Now().Unix()); err != nil {
		b.Fatalf("UpdateAll: %v", err)
	}
	return repo.Partition(domain.ListDeny)
}

func BenchmarkPartition_Match(b *testing.B) {
	cases := []struct {
		name   string
		target string
		cache  int
	}{
		{"bloom_negative", "unrelated.net/page", 1024},
		{"hit_cached", "www.d00042.com/page", 1024},
		{"hit_uncached", "www.d00042.com/page", 0},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			p := benchRepo(b, 5000, tc.cache)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := p.Match(tc.target); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkMatchRules_LinearScan(b *testing.B) {
	p := benchRepo(b, 5000, 0)
	rules := p.Rules()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := domain.MatchRules(rules, "www.d00042.com/page"); err != nil {
			b.Fatal(err)
		}
	}
}
