package domain

import "fmt"

// ListDefaults are the list-level settings rules fall back to.
type ListDefaults struct {
	Actions     ActionSettings
	Validations ValidationSettings
}

// Partition is a read-only view of the rules of one list type together with
// their defaults. Match returns the indexes into Rules() whose pattern
// triggers on target, in ascending order.
type Partition interface {
	Rules() []DomainRule
	Defaults() ListDefaults
	Match(target string) ([]int, error)
}

// MatchRules scans rules linearly and returns the indexes of those that
// trigger on target. The first matching error aborts the scan.
func MatchRules(rules []DomainRule, target string) ([]int, error) {
	var out []int
	for i, r := range rules {
		ok, err := r.TriggeredOn(target)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}

// StaticPartition is a plain in-memory Partition.
type StaticPartition struct {
	RuleList     []DomainRule
	ListDefaults ListDefaults
}

var _ Partition = StaticPartition{}

func (p StaticPartition) Rules() []DomainRule    { return p.RuleList }
func (p StaticPartition) Defaults() ListDefaults { return p.ListDefaults }

func (p StaticPartition) Match(target string) ([]int, error) {
	return MatchRules(p.RuleList, target)
}

// FilterList is a named collection of rules partitioned by list type.
type FilterList struct {
	Name     string
	Rules    map[ListType][]DomainRule
	Defaults map[ListType]ListDefaults
}

// NewFilterList returns an empty list ready for AddRules.
func NewFilterList(name string) FilterList {
	return FilterList{
		Name:     name,
		Rules:    make(map[ListType][]DomainRule),
		Defaults: make(map[ListType]ListDefaults),
	}
}

// AddRules appends rules to the partition of their list type.
func (l *FilterList) AddRules(rules ...DomainRule) {
	if l.Rules == nil {
		l.Rules = make(map[ListType][]DomainRule)
	}
	for _, r := range rules {
		l.Rules[r.ListType] = append(l.Rules[r.ListType], r)
	}
}

// Partition returns a static view of one list type.
func (l FilterList) Partition(lt ListType) StaticPartition {
	return StaticPartition{RuleList: l.Rules[lt], ListDefaults: l.Defaults[lt]}
}

// MaxID returns the largest rule id across all partitions, or 0.
func (l FilterList) MaxID() int {
	highest := 0
	for _, rules := range l.Rules {
		for _, r := range rules {
			highest = max(highest, r.ID)
		}
	}
	return highest
}

// Len returns the number of rules across all partitions.
func (l FilterList) Len() int {
	n := 0
	for _, rules := range l.Rules {
		n += len(rules)
	}
	return n
}

// Validate checks every rule, that each sits in its own list type's
// partition, and that ids are unique across the list.
func (l FilterList) Validate() error {
	seen := make(map[int]ListType)
	for lt, rules := range l.Rules {
		for _, r := range rules {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("list %q: %w", l.Name, err)
			}
			if r.ListType != lt {
				return fmt.Errorf("list %q: %w #%d: filed under %s but typed %s", l.Name, ErrInvalidRule, r.ID, lt, r.ListType)
			}
			if prev, dup := seen[r.ID]; dup {
				return fmt.Errorf("list %q: %w #%d: duplicate id (also in %s)", l.Name, ErrInvalidRule, r.ID, prev)
			}
			seen[r.ID] = lt
		}
	}
	return nil
}
