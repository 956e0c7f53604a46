package domain

import "slices"

// Validation names reported by ValidationSettings.Evaluate.
const (
	ValidationEnabled      = "enabled"
	ValidationBypassRoles  = "bypass_roles"
	ValidationChannelScope = "channel_scope"
	ValidationFilterDM     = "filter_dm"
)

// ChannelScope limits where a rule applies. EnabledChannels wins over both
// disabled lists.
type ChannelScope struct {
	DisabledChannels   []string
	DisabledCategories []string
	EnabledChannels    []string
}

// ValidationSettings is a partial set of predicates over the event envelope.
// Unset predicates are not evaluated.
type ValidationSettings struct {
	Enabled      *bool
	BypassRoles  []string
	ChannelScope *ChannelScope
	FilterDM     *bool
}

// IsZero reports whether no predicate is set.
func (v ValidationSettings) IsZero() bool {
	return v.Enabled == nil && v.BypassRoles == nil && v.ChannelScope == nil && v.FilterDM == nil
}

// FallbackTo fills every unset predicate from defaults.
func (v ValidationSettings) FallbackTo(defaults ValidationSettings) ValidationSettings {
	out := v
	if out.Enabled == nil {
		out.Enabled = defaults.Enabled
	}
	if out.BypassRoles == nil {
		out.BypassRoles = defaults.BypassRoles
	}
	if out.ChannelScope == nil {
		out.ChannelScope = defaults.ChannelScope
	}
	if out.FilterDM == nil {
		out.FilterDM = defaults.FilterDM
	}
	return out
}

// Evaluate runs every set predicate against env and returns the names of the
// ones that passed and failed.
func (v ValidationSettings) Evaluate(env Envelope) (passed, failed []string) {
	record := func(name string, ok bool) {
		if ok {
			passed = append(passed, name)
		} else {
			failed = append(failed, name)
		}
	}

	if v.Enabled != nil {
		record(ValidationEnabled, *v.Enabled)
	}
	if v.BypassRoles != nil {
		bypassed := slices.ContainsFunc(env.Author.Roles, func(role string) bool {
			return slices.Contains(v.BypassRoles, role)
		})
		record(ValidationBypassRoles, !bypassed)
	}
	if v.ChannelScope != nil {
		record(ValidationChannelScope, v.ChannelScope.allows(env.Channel))
	}
	if v.FilterDM != nil {
		record(ValidationFilterDM, !env.Channel.DM || *v.FilterDM)
	}
	return passed, failed
}

// Passes reports whether no set predicate fails for env.
func (v ValidationSettings) Passes(env Envelope) bool {
	_, failed := v.Evaluate(env)
	return len(failed) == 0
}

func (s ChannelScope) allows(ch Channel) bool {
	if slices.Contains(s.EnabledChannels, ch.ID) {
		return true
	}
	if slices.Contains(s.DisabledChannels, ch.ID) {
		return false
	}
	if ch.CategoryID != "" && slices.Contains(s.DisabledCategories, ch.CategoryID) {
		return false
	}
	return true
}
