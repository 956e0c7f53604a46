package utils

import "strings"

// CanonicalDomain returns a domain in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dots
func CanonicalDomain(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// HostOf returns the host portion of a scheme-less URL remainder such as
// "sub.example.com:8080/path?q=1". The port is dropped and the result is
// canonicalized.
func HostOf(target string) string {
	host := target
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	// userinfo is never part of the host
	if i := strings.LastIndexByte(host, '@'); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return CanonicalDomain(host)
}

// HasPath reports whether a scheme-less URL remainder carries anything after
// its host.
func HasPath(target string) bool {
	i := strings.IndexAny(target, "/?#")
	return i >= 0 && i < len(target)-1
}
