package bloom

import (
	"fmt"
	"testing"
)

func TestFactory_New_Basic(t *testing.T) {
	bf := NewFactory().New(128, 0.01)
	if bf == nil {
		t.Fatalf("expected non-nil bloom filter")
	}
	key := []byte("example.com")
	if bf.MightContain(key) {
		t.Fatalf("unexpected positive before add")
	}
	bf.Add(key)
	if !bf.MightContain(key) {
		t.Fatalf("expected maybe after add")
	}
}

func TestFactory_New_Defaults(t *testing.T) {
	// capacity=0 and invalid fp → defaults apply; filter still usable
	bf := NewFactory().New(0, 0)
	key := []byte("default-case.test")
	bf.Add(key)
	if !bf.MightContain(key) {
		t.Fatalf("expected maybe after add with default-sized bloom")
	}
}

func TestSizer_CommonCases(t *testing.T) {
	s := NewSizer()

	// n=1, p=1% → m≈10, k≈7
	m, k := s.Size(1, 0.01)
	if m < 10 || k != 7 {
		t.Fatalf("n=1,p=0.01: got m=%d k=%d; want m>=10 k=7", m, k)
	}

	// n=1e6, p=1% → m≈9.585e6 bits, k≈7
	m, k = s.Size(1_000_000, 0.01)
	if m < 9_500_000 || m > 9_700_000 {
		t.Fatalf("n=1e6,p=0.01: unexpected m=%d (expected around 9.6e6)", m)
	}
	if k != 7 {
		t.Fatalf("n=1e6,p=0.01: k=%d; want 7", k)
	}

	// p=0.5 → k rounds to 1
	m, k = s.Size(10_000, 0.5)
	if k != 1 || m == 0 {
		t.Fatalf("p=0.5: got m=%d k=%d; want m>=1 k=1", m, k)
	}
}

func TestSizer_ClampingAndDefaults(t *testing.T) {
	s := NewSizer()
	for _, tc := range []struct {
		n uint64
		p float64
	}{{0, 0}, {100, 1.0}, {100, -3}} {
		m, k := s.Size(tc.n, tc.p)
		if m == 0 || k == 0 {
			t.Fatalf("n=%d,p=%v: expected m>=1 and k>=1; got m=%d k=%d", tc.n, tc.p, m, k)
		}
	}
	m1, k1 := s.Size(100, 1.0)
	m2, k2 := s.Size(100, DefaultFPRate)
	if m1 != m2 || k1 != k2 {
		t.Fatalf("out-of-range p should fall back to %v", DefaultFPRate)
	}
}

func benchMakeDomains(n int, suffix string) [][]byte {
	out := make([][]byte, n)
	for i := range n {
		out[i] = []byte(fmt.Sprintf("d%03d.%s", i, suffix))
	}
	return out
}

// BenchmarkBloom_FalsePositiveRate reports the observed false positive rate
// of a 1% filter queried with a disjoint set of registered domains.
func BenchmarkBloom_FalsePositiveRate(b *testing.B) {
	const n = 1000
	const trials = 100_000
	bf := NewFactory().New(n, 0.01)
	for _, k := range benchMakeDomains(n, "com") {
		bf.Add(k)
	}
	absent := benchMakeDomains(trials, "net")

	b.ReportAllocs()
	b.ResetTimer()
	fp := 0
	for i := 0; i < b.N; i++ {
		if bf.MightContain(absent[i%trials]) {
			fp++
		}
	}
	b.StopTimer()
	b.ReportMetric(float64(fp)/float64(b.N)*100, "fp_percent")
}
