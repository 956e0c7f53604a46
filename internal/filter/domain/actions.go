package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Combiner is the algebra the action resolver relies on. For any a, b, c of
// the implementing type and defaults d:
//
//	a.Union(b) == b.Union(a)
//	a.Union(b.Union(c)) == a.Union(b).Union(c)
//	a.FallbackTo(d) keeps every field set in a and takes the others from d
//	a.FallbackTo(zero) == a
type Combiner[T any] interface {
	FallbackTo(defaults T) T
	Union(other T) T
}

// InfractionType orders infractions by severity; a greater value is more severe.
type InfractionType uint8

const (
	InfractionNone InfractionType = iota
	InfractionNote
	InfractionWarning
	InfractionWatch
	InfractionTimeout
	InfractionKick
	InfractionBan
)

var infractionNames = []string{"none", "note", "warning", "watch", "timeout", "kick", "ban"}

func (t InfractionType) String() string {
	if int(t) < len(infractionNames) {
		return infractionNames[t]
	}
	return fmt.Sprintf("InfractionType(%d)", t)
}

// ParseInfractionType accepts the lowercase names returned by String.
func ParseInfractionType(s string) (InfractionType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range infractionNames {
		if name == s {
			return InfractionType(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported InfractionType: %q", s)
}

// ActionSettings is a partial set of moderation effects. A nil field is unset
// and may be filled from list defaults. Values are never mutated after
// construction; operations return new values that may share pointers.
type ActionSettings struct {
	// Infraction group. Fallback is per field, union treats the four fields
	// as one unit so the chosen infraction stays coherent.
	InfractionType     *InfractionType
	InfractionDuration *time.Duration
	InfractionReason   *string
	DMContent          *string

	// RemoveContext deletes the offending message.
	RemoveContext *bool
	// SendAlert relays the match to the moderation audience.
	SendAlert *bool

	GuildPings []string
	DMPings    []string
}

var _ Combiner[ActionSettings] = ActionSettings{}

// IsZero reports whether no field is set.
func (a ActionSettings) IsZero() bool {
	return a.InfractionType == nil && a.InfractionDuration == nil && a.InfractionReason == nil &&
		a.DMContent == nil && a.RemoveContext == nil && a.SendAlert == nil &&
		a.GuildPings == nil && a.DMPings == nil
}

// FallbackTo fills every unset field from defaults.
func (a ActionSettings) FallbackTo(defaults ActionSettings) ActionSettings {
	out := a
	if out.InfractionType == nil {
		out.InfractionType = defaults.InfractionType
	}
	if out.InfractionDuration == nil {
		out.InfractionDuration = defaults.InfractionDuration
	}
	if out.InfractionReason == nil {
		out.InfractionReason = defaults.InfractionReason
	}
	if out.DMContent == nil {
		out.DMContent = defaults.DMContent
	}
	if out.RemoveContext == nil {
		out.RemoveContext = defaults.RemoveContext
	}
	if out.SendAlert == nil {
		out.SendAlert = defaults.SendAlert
	}
	if out.GuildPings == nil {
		out.GuildPings = defaults.GuildPings
	}
	if out.DMPings == nil {
		out.DMPings = defaults.DMPings
	}
	return out
}

// Union combines two settings field by field. Unset fields yield to set ones,
// flags are OR-ed, ping sets are merged, and the more severe infraction group
// wins as a whole.
func (a ActionSettings) Union(other ActionSettings) ActionSettings {
	var out ActionSettings
	if compareInfraction(a, other) >= 0 {
		out.InfractionType, out.InfractionDuration = a.InfractionType, a.InfractionDuration
		out.InfractionReason, out.DMContent = a.InfractionReason, a.DMContent
	} else {
		out.InfractionType, out.InfractionDuration = other.InfractionType, other.InfractionDuration
		out.InfractionReason, out.DMContent = other.InfractionReason, other.DMContent
	}
	out.RemoveContext = orFlag(a.RemoveContext, other.RemoveContext)
	out.SendAlert = orFlag(a.SendAlert, other.SendAlert)
	out.GuildPings = unionSet(a.GuildPings, other.GuildPings)
	out.DMPings = unionSet(a.DMPings, other.DMPings)
	return out
}

// Fields renders the set fields for structured logging.
func (a ActionSettings) Fields() map[string]any {
	f := make(map[string]any)
	if a.InfractionType != nil {
		f["infraction_type"] = a.InfractionType.String()
	}
	if a.InfractionDuration != nil {
		f["infraction_duration"] = a.InfractionDuration.String()
	}
	if a.InfractionReason != nil {
		f["infraction_reason"] = *a.InfractionReason
	}
	if a.DMContent != nil {
		f["dm_content"] = *a.DMContent
	}
	if a.RemoveContext != nil {
		f["remove_context"] = *a.RemoveContext
	}
	if a.SendAlert != nil {
		f["send_alert"] = *a.SendAlert
	}
	if a.GuildPings != nil {
		f["guild_pings"] = a.GuildPings
	}
	if a.DMPings != nil {
		f["dm_pings"] = a.DMPings
	}
	return f
}

// compareInfraction totally orders infraction groups by type, duration,
// reason and DM content, with unset below any set value.
func compareInfraction(a, b ActionSettings) int {
	if c := comparePtr(a.InfractionType, b.InfractionType); c != 0 {
		return c
	}
	if c := comparePtr(a.InfractionDuration, b.InfractionDuration); c != 0 {
		return c
	}
	if c := comparePtr(a.InfractionReason, b.InfractionReason); c != 0 {
		return c
	}
	return comparePtr(a.DMContent, b.DMContent)
}

func comparePtr[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(*a, *b)
	}
}

func orFlag(a, b *bool) *bool {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		v := *a || *b
		return &v
	}
}

// unionSet merges two optional sets into a sorted, de-duplicated slice.
func unionSet(a, b []string) []string {
	if a == nil && b == nil {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// NormalizeSet sorts and de-duplicates a ping set, preserving nil.
func NormalizeSet(s []string) []string {
	return unionSet(s, nil)
}

// Ptr returns a pointer to v, for building partial settings.
func Ptr[T any](v T) *T {
	return &v
}
