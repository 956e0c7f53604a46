package utils

import (
	"fmt"

	"golang.org/x/net/publicsuffix"
)

// RegisteredDomain returns the effective TLD plus one label for name, e.g.
// "www.example.co.uk" -> "example.co.uk". Names that are themselves public
// suffixes, or are empty, yield an error.
func RegisteredDomain(name string) (string, error) {
	name = CanonicalDomain(name)
	if name == "" {
		return "", fmt.Errorf("empty domain")
	}
	apex, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return "", fmt.Errorf("registered domain of %q: %w", name, err)
	}
	return apex, nil
}
