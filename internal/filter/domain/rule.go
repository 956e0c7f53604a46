package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haukened/rr-filter/internal/filter/common/utils"
)

// ErrInvalidRule marks rule data that must not reach evaluation.
var ErrInvalidRule = errors.New("invalid rule")

// DomainRule is a single deny or allow criterion keyed on a domain.
//
// Notes:
//   - Content is canonical: lowercase, no scheme, no trailing slash. It may
//     carry a path ("example.com/bad").
//   - The rule triggers on subdomains and subpages of Content. With
//     OnlySubdomains set, a target on the bare registered domain without a
//     path is exempt.
//   - Actions and Validations are partial overrides of the list defaults.
type DomainRule struct {
	ID             int
	Content        string
	Description    string
	OnlySubdomains bool
	Actions        *ActionSettings
	Validations    *ValidationSettings
	ListType       ListType
	Source         string    // list file or feed the rule came from
	AddedAt        time.Time // ingestion timestamp
}

// CanonicalContent normalizes a rule pattern.
func CanonicalContent(content string) string {
	content = strings.ToLower(strings.TrimSpace(content))
	content = strings.TrimSuffix(content, "/")
	if strings.ContainsAny(content, "/?#") {
		return content
	}
	return utils.HostOf(content)
}

// NewDomainRule constructs a DomainRule with canonical content and validates it.
func NewDomainRule(id int, content string, lt ListType, source string, addedAt time.Time) (DomainRule, error) {
	r := DomainRule{
		ID:       id,
		Content:  CanonicalContent(content),
		ListType: lt,
		Source:   strings.TrimSpace(source),
		AddedAt:  addedAt,
	}
	if err := r.Validate(); err != nil {
		return DomainRule{}, err
	}
	return r, nil
}

// Validate checks the rule for required fields and a matchable pattern.
func (r DomainRule) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidRule, r.ID)
	}
	if r.Content == "" {
		return fmt.Errorf("%w #%d: content must not be empty", ErrInvalidRule, r.ID)
	}
	if strings.Contains(r.Content, "://") {
		return fmt.Errorf("%w #%d: content %q must not carry a scheme", ErrInvalidRule, r.ID, r.Content)
	}
	if strings.ContainsFunc(r.Content, isSpace) {
		return fmt.Errorf("%w #%d: content %q contains whitespace", ErrInvalidRule, r.ID, r.Content)
	}
	if _, err := r.registeredDomain(); err != nil {
		return err
	}
	switch r.ListType {
	case ListAllow, ListDeny:
	default:
		return fmt.Errorf("%w #%d: unsupported ListType: %d", ErrInvalidRule, r.ID, r.ListType)
	}
	return nil
}

// TriggeredOn reports whether the rule matches a normalized target (a URL
// without its scheme). The target must contain Content and share its
// registered domain. An unmatchable rule pattern is an error.
func (r DomainRule) TriggeredOn(target string) (bool, error) {
	ruleApex, err := r.registeredDomain()
	if err != nil {
		return false, err
	}
	if !strings.Contains(target, r.Content) {
		return false, nil
	}
	host := utils.HostOf(target)
	apex, err := utils.RegisteredDomain(host)
	if err != nil || apex != ruleApex {
		return false, nil
	}
	if r.OnlySubdomains && host == apex && !utils.HasPath(target) {
		return false, nil
	}
	return true, nil
}

// RegisteredDomain returns the eTLD+1 the rule is anchored to.
func (r DomainRule) RegisteredDomain() (string, error) {
	return r.registeredDomain()
}

func (r DomainRule) registeredDomain() (string, error) {
	apex, err := utils.RegisteredDomain(utils.HostOf(r.Content))
	if err != nil {
		return "", fmt.Errorf("%w #%d: %v", ErrInvalidRule, r.ID, err)
	}
	return apex, nil
}

// String renders the rule the way audit messages reference it.
func (r DomainRule) String() string {
	return fmt.Sprintf("#%d (`%s`)", r.ID, r.Content)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}
