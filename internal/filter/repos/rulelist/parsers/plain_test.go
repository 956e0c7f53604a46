package parsers

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/haukened/rr-filter/internal/filter/common/log"
	"github.com/haukened/rr-filter/internal/filter/domain"
)

func TestParsePlainList_Basics(t *testing.T) {
	input := "\uFEFF# comment at top\n" + `Example.COM   
example.com.#inline comment

	sub.Example.com.
# subdomain markers
*.wild.example.com
.root.example.org
*.example.com
co.uk
localhost
not a domain
example.com   # duplicate
`

	now := time.Unix(1723550000, 0)
	got, err := ParsePlainList(bytes.NewBufferString(input), "test-source", 100, log.NewNoopLogger(), now)
	if err != nil {
		t.Fatalf("ParsePlainList returned error: %v", err)
	}

	want := []struct {
		id             int
		content        string
		onlySubdomains bool
	}{
		{100, "example.com", false},
		{101, "sub.example.com", false},
		{102, "wild.example.com", true},
		{103, "root.example.org", true},
		{104, "example.com", true},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d rules, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		r := got[i]
		if r.ID != w.id || r.Content != w.content || r.OnlySubdomains != w.onlySubdomains {
			t.Fatalf("rule[%d] = #%d %q only=%v; want #%d %q only=%v", i, r.ID, r.Content, r.OnlySubdomains, w.id, w.content, w.onlySubdomains)
		}
		if r.ListType != domain.ListDeny || r.Source != "test-source" || !r.AddedAt.Equal(now) {
			t.Fatalf("rule[%d] metadata unexpected: %+v", i, r)
		}
		if err := r.Validate(); err != nil {
			t.Fatalf("rule[%d] invalid: %v", i, err)
		}
	}
}

func TestParsePlainList_Empty(t *testing.T) {
	got, err := ParsePlainList(bytes.NewBufferString("\n# only comments\n\n"), "s", 1, log.NewNoopLogger(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no rules, got %+v", got)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestParsePlainList_ScanError(t *testing.T) {
	if _, err := ParsePlainList(errReader{}, "s", 1, log.NewNoopLogger(), time.Now()); err == nil {
		t.Fatalf("expected scan error")
	}
}
