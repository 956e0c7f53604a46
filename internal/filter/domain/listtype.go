package domain

import (
	"fmt"
	"strings"
)

// ListType partitions the rules of a filter list.
//
// allow - matches are permitted content
// deny  - matches trigger moderation actions
type ListType uint8

const (
	ListAllow ListType = iota
	ListDeny
)

// String returns a stable string representation of the list type.
func (t ListType) String() string {
	switch t {
	case ListAllow:
		return "allow"
	case ListDeny:
		return "deny"
	default:
		return fmt.Sprintf("ListType(%d)", t)
	}
}

// ParseListType converts "allow" or "deny" (case-insensitive) into a ListType.
func ParseListType(s string) (ListType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow":
		return ListAllow, nil
	case "deny":
		return ListDeny, nil
	default:
		return 0, fmt.Errorf("unsupported ListType: %q", s)
	}
}

// EventKind tags the inbound event a filter context was built from.
type EventKind uint8

const (
	EventMessage EventKind = iota
	EventMessageEdit
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventMessageEdit:
		return "message_edit"
	default:
		return fmt.Sprintf("EventKind(%d)", k)
	}
}
