package domainlist

import "github.com/haukened/rr-filter/internal/filter/domain"

// Extractor turns raw content into candidate targets.
type Extractor interface {
	Extract(text string) domain.MatchTargetSet
}

// Evaluator selects triggered rules for a candidate stage.
type Evaluator interface {
	Evaluate(tctx *domain.TargetContext, partition domain.Partition, validations domain.ValidationSettings) ([]domain.DomainRule, error)
}

// Resolver turns triggered rules into a verdict.
type Resolver interface {
	Resolve(matched []domain.DomainRule, defaults domain.ListDefaults) domain.Verdict
}

// ListSource provides the current rules of a list. Each call returns a
// consistent view; reloads replace views, never mutate them.
type ListSource interface {
	Partition(lt domain.ListType) domain.Partition
}
