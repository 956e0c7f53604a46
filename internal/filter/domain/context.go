package domain

import "slices"

// Author identifies who sent the event.
type Author struct {
	ID    string
	Roles []string
	Bot   bool
}

// Channel identifies where the event happened.
type Channel struct {
	ID         string
	CategoryID string
	DM         bool
}

// Envelope is the event metadata validations are evaluated against.
type Envelope struct {
	Event   EventKind
	Author  Author
	Channel Channel
}

// FilterContext is the per-event working state for raw message content.
// It is owned by the goroutine handling the event.
type FilterContext struct {
	Envelope
	Content string

	// NotificationDomain names the domain that triggered a match, for
	// surfacing in user-facing notifications.
	NotificationDomain string
}

// NewFilterContext builds a context for a message event.
func NewFilterContext(env Envelope, content string) *FilterContext {
	return &FilterContext{Envelope: env, Content: content}
}

// WithTargets derives the candidate stage of c: same envelope, with the
// extracted targets in place of the raw content.
func (c *FilterContext) WithTargets(targets MatchTargetSet) *TargetContext {
	return &TargetContext{
		Envelope:           c.Envelope,
		Targets:            targets,
		NotificationDomain: c.NotificationDomain,
	}
}

// TargetContext is the candidate stage of a FilterContext.
type TargetContext struct {
	Envelope
	Targets            MatchTargetSet
	NotificationDomain string
}

// MatchTargetSet is a set of normalized candidate strings.
type MatchTargetSet map[string]struct{}

// NewMatchTargetSet builds a set from items, collapsing duplicates.
func NewMatchTargetSet(items ...string) MatchTargetSet {
	s := make(MatchTargetSet, len(items))
	for _, it := range items {
		s.Add(it)
	}
	return s
}

func (s MatchTargetSet) Add(target string) { s[target] = struct{}{} }

func (s MatchTargetSet) Has(target string) bool {
	_, ok := s[target]
	return ok
}

func (s MatchTargetSet) Len() int { return len(s) }

// Sorted returns the members in lexical order.
func (s MatchTargetSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
