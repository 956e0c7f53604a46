// Package evaluator selects the rules of a partition that trigger on the
// candidate targets of an event.
package evaluator

import (
	"fmt"
	"maps"
	"slices"

	"github.com/haukened/rr-filter/internal/filter/common/log"
	"github.com/haukened/rr-filter/internal/filter/domain"
)

// Evaluator applies pattern matching and validations. It holds no state
// between calls and is safe for concurrent use.
type Evaluator struct {
	logger log.Logger
}

// New returns an Evaluator logging through logger.
func New(logger log.Logger) *Evaluator {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Evaluator{logger: logger}
}

// Evaluate returns the rules of partition that trigger on at least one target
// of tctx and whose validations pass, in partition order and each at most
// once. Rules without their own validations use the list-level ones; rules
// with overrides fall back to them field by field.
//
// Every triggered rule records its content into tctx.NotificationDomain, so
// the last one in partition order is what remains. Matching errors abort the
// evaluation.
func (e *Evaluator) Evaluate(tctx *domain.TargetContext, partition domain.Partition, validations domain.ValidationSettings) ([]domain.DomainRule, error) {
	rules := partition.Rules()
	if len(rules) == 0 || tctx.Targets.Len() == 0 {
		return nil, nil
	}

	hits := make(map[int]struct{})
	for _, target := range tctx.Targets.Sorted() {
		idx, err := partition.Match(target)
		if err != nil {
			return nil, fmt.Errorf("evaluating target %q: %w", target, err)
		}
		for _, i := range idx {
			hits[i] = struct{}{}
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	var listPasses *bool
	passes := func(r domain.DomainRule) bool {
		if r.Validations != nil {
			return r.Validations.FallbackTo(validations).Passes(tctx.Envelope)
		}
		if listPasses == nil {
			ok := validations.Passes(tctx.Envelope)
			listPasses = &ok
		}
		return *listPasses
	}

	var out []domain.DomainRule
	for _, i := range slices.Sorted(maps.Keys(hits)) {
		r := rules[i]
		if !passes(r) {
			e.logger.Debug(map[string]any{"rule_id": r.ID, "content": r.Content}, "rule_validation_failed")
			continue
		}
		tctx.NotificationDomain = r.Content
		out = append(out, r)
	}
	e.logger.Debug(map[string]any{"targets": tctx.Targets.Len(), "pattern_hits": len(hits), "triggered": len(out)}, "evaluate_done")
	return out, nil
}
