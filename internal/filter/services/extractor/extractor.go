// Package extractor turns raw message text into normalized URL targets.
package extractor

import (
	"regexp"
	"strings"

	"github.com/haukened/rr-filter/internal/filter/common/utils"
	"github.com/haukened/rr-filter/internal/filter/domain"
)

// urlRegex captures everything after an http or https scheme up to the next
// whitespace. \s in RE2 is ASCII only, so Unicode separators are listed too.
var urlRegex = regexp.MustCompile(`(?i)https?://([^\s\p{Z}\x0b\x1c-\x1f\x85]+)`)

// URLExtractor extracts scheme-less URL remainders from text.
type URLExtractor struct{}

// New returns a URLExtractor.
func New() *URLExtractor { return &URLExtractor{} }

// Extract cleans text and returns the set of lowercased URL remainders with a
// single trailing slash removed. Empty text yields an empty set.
func (URLExtractor) Extract(text string) domain.MatchTargetSet {
	targets := domain.NewMatchTargetSet()
	if text == "" {
		return targets
	}
	for _, m := range urlRegex.FindAllStringSubmatch(utils.CleanInput(text), -1) {
		targets.Add(strings.TrimSuffix(strings.ToLower(m[1]), "/"))
	}
	return targets
}
