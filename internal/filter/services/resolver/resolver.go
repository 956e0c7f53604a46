// Package resolver merges the actions of triggered rules into a single
// verdict.
package resolver

import (
	"strings"

	"github.com/haukened/rr-filter/internal/filter/domain"
)

// Resolver computes verdicts. It is stateless.
type Resolver struct{}

func New() *Resolver { return &Resolver{} }

// Resolve combines the actions of the matched rules with the list defaults.
// Each rule contributes its own actions backed by the defaults, or the
// defaults alone; contributions are folded with Union, so their order does not
// matter. No matches yields an empty verdict.
//
// The message names a single rule with its description, or lists several
// rules without descriptions.
func (Resolver) Resolve(matched []domain.DomainRule, defaults domain.ListDefaults) domain.Verdict {
	if len(matched) == 0 {
		return domain.EmptyVerdict()
	}

	contributions := make([]domain.ActionSettings, len(matched))
	for i, r := range matched {
		if r.Actions != nil {
			contributions[i] = r.Actions.FallbackTo(defaults.Actions)
		} else {
			contributions[i] = defaults.Actions
		}
	}
	actions := unionAll(contributions[0], contributions[1:]...)

	return domain.Verdict{Actions: &actions, Message: message(matched)}
}

func message(matched []domain.DomainRule) string {
	if len(matched) == 1 {
		r := matched[0]
		if r.Description != "" {
			return r.String() + " - " + r.Description
		}
		return r.String()
	}
	parts := make([]string, len(matched))
	for i, r := range matched {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// unionAll folds values left to right with Union.
func unionAll[T domain.Combiner[T]](first T, rest ...T) T {
	acc := first
	for _, v := range rest {
		acc = acc.Union(v)
	}
	return acc
}
