package utils

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// invisibles are filler characters that render as nothing but are not in the
// Unicode format category.
var invisibles = []rune{'\u115f', '\u1160', '\u2800', '\u3164', '\uffa0'}

// isObfuscation reports whether r is used to hide content from pattern
// matching: backslashes, zalgo combining marks and invisible characters.
func isObfuscation(r rune) bool {
	switch {
	case r == '\\':
		return true
	case r >= '\u0300' && r <= '\u036f', r == '\u0489':
		return true
	case unicode.Is(unicode.Cf, r):
		return true
	}
	for _, inv := range invisibles {
		if r == inv {
			return true
		}
	}
	return false
}

// CleanInput strips characters commonly inserted to dodge filters, so
// "exa\u200bmple.com" and "ex\\ample.com" both read as "example.com".
func CleanInput(s string) string {
	// built per call; transformers are not safe for concurrent use
	t := runes.Remove(runes.Predicate(isObfuscation))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
