package domain

// Verdict is the outcome of running one filter list over an event.
// Pure value type, no external dependencies.
type Verdict struct {
	Actions *ActionSettings // nil when nothing matched
	Message string          // audit message for moderators, "" when nothing matched
}

// Triggered is a convenience accessor.
func (v Verdict) Triggered() bool { return v.Actions != nil }

// EmptyVerdict returns a no-match verdict.
func EmptyVerdict() Verdict { return Verdict{} }
