package evaluator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-filter/internal/filter/common/log"
	"github.com/haukened/rr-filter/internal/filter/domain"
)

func rule(t *testing.T, id int, content string) domain.DomainRule {
	t.Helper()
	r, err := domain.NewDomainRule(id, content, domain.ListDeny, "test", time.Unix(1, 0))
	require.NoError(t, err)
	return r
}

func targetCtx(env domain.Envelope, targets ...string) *domain.TargetContext {
	return domain.NewFilterContext(env, "unused").WithTargets(domain.NewMatchTargetSet(targets...))
}

func ids(rules []domain.DomainRule) []int {
	out := make([]int, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}

// MockPartition lets tests observe how the evaluator consults a partition.
type MockPartition struct {
	mock.Mock
	rules []domain.DomainRule
}

func (m *MockPartition) Rules() []domain.DomainRule    { return m.rules }
func (m *MockPartition) Defaults() domain.ListDefaults { return domain.ListDefaults{} }
func (m *MockPartition) Match(target string) ([]int, error) {
	args := m.Called(target)
	idx, _ := args.Get(0).([]int)
	return idx, args.Error(1)
}

func TestEvaluate_MatchesInRuleOrder(t *testing.T) {
	p := domain.StaticPartition{RuleList: []domain.DomainRule{
		rule(t, 10, "b.com"),
		rule(t, 3, "a.com"),
		rule(t, 7, "c.com"),
	}}
	tctx := targetCtx(domain.Envelope{}, "a.com/x", "www.b.com", "d.com")

	got, err := New(log.NewNoopLogger()).Evaluate(tctx, p, domain.ValidationSettings{})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 3}, ids(got))
	assert.Equal(t, "a.com", tctx.NotificationDomain, "last triggered rule in partition order")
}

func TestEvaluate_RuleIncludedOncePerManyTargets(t *testing.T) {
	p := domain.StaticPartition{RuleList: []domain.DomainRule{rule(t, 1, "a.com")}}
	tctx := targetCtx(domain.Envelope{}, "a.com", "a.com/x", "cdn.a.com")

	got, err := New(nil).Evaluate(tctx, p, domain.ValidationSettings{})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(got))
}

func TestEvaluate_NoMatchLeavesNotificationDomain(t *testing.T) {
	p := domain.StaticPartition{RuleList: []domain.DomainRule{rule(t, 1, "a.com")}}
	tctx := targetCtx(domain.Envelope{}, "b.com")

	got, err := New(nil).Evaluate(tctx, p, domain.ValidationSettings{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, tctx.NotificationDomain)
}

func TestEvaluate_EmptyInputsShortCircuit(t *testing.T) {
	m := &MockPartition{rules: []domain.DomainRule{rule(t, 1, "a.com")}}
	got, err := New(nil).Evaluate(targetCtx(domain.Envelope{}), m, domain.ValidationSettings{})
	require.NoError(t, err)
	assert.Nil(t, got)

	empty := &MockPartition{}
	got, err = New(nil).Evaluate(targetCtx(domain.Envelope{}, "a.com"), empty, domain.ValidationSettings{})
	require.NoError(t, err)
	assert.Nil(t, got)

	m.AssertNotCalled(t, "Match", mock.Anything)
	empty.AssertNotCalled(t, "Match", mock.Anything)
}

func TestEvaluate_ListValidations(t *testing.T) {
	p := domain.StaticPartition{RuleList: []domain.DomainRule{rule(t, 1, "a.com")}}
	staff := domain.Envelope{Author: domain.Author{ID: "u", Roles: []string{"staff"}}}
	member := domain.Envelope{Author: domain.Author{ID: "u", Roles: []string{"member"}}}
	validations := domain.ValidationSettings{BypassRoles: []string{"staff"}}

	got, err := New(nil).Evaluate(targetCtx(staff, "a.com"), p, validations)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = New(nil).Evaluate(targetCtx(member, "a.com"), p, validations)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(got))
}

func TestEvaluate_RuleValidationOverrides(t *testing.T) {
	strict := rule(t, 1, "a.com")
	strict.Validations = &domain.ValidationSettings{BypassRoles: []string{}}
	lenient := rule(t, 2, "a.com/x")
	disabled := rule(t, 3, "a.com")
	disabled.Validations = &domain.ValidationSettings{Enabled: domain.Ptr(false)}

	p := domain.StaticPartition{RuleList: []domain.DomainRule{strict, lenient, disabled}}
	staff := domain.Envelope{Author: domain.Author{ID: "u", Roles: []string{"staff"}}}
	listValidations := domain.ValidationSettings{BypassRoles: []string{"staff"}, Enabled: domain.Ptr(true)}

	tctx := targetCtx(staff, "a.com/x")
	got, err := New(nil).Evaluate(tctx, p, listValidations)
	require.NoError(t, err)
	// strict clears the bypass list; lenient is bypassed by staff; disabled is off
	assert.Equal(t, []int{1}, ids(got))
	assert.Equal(t, "a.com", tctx.NotificationDomain)
}

func TestEvaluate_MatchErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	m := &MockPartition{rules: []domain.DomainRule{rule(t, 1, "a.com")}}
	m.On("Match", "a.com").Return(nil, boom)

	_, err := New(nil).Evaluate(targetCtx(domain.Envelope{}, "a.com"), m, domain.ValidationSettings{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	m.AssertExpectations(t)
}

func TestEvaluate_MalformedRuleFailsLoudly(t *testing.T) {
	p := domain.StaticPartition{RuleList: []domain.DomainRule{{ID: 4, Content: "com", ListType: domain.ListDeny}}}
	_, err := New(nil).Evaluate(targetCtx(domain.Envelope{}, "example.com"), p, domain.ValidationSettings{})
	assert.ErrorIs(t, err, domain.ErrInvalidRule)
}

func TestEvaluate_ConsultsPartitionPerTarget(t *testing.T) {
	m := &MockPartition{rules: []domain.DomainRule{rule(t, 1, "a.com"), rule(t, 2, "b.com")}}
	m.On("Match", "a.com").Return([]int{0}, nil).Once()
	m.On("Match", "b.com/x").Return([]int{1}, nil).Once()
	m.On("Match", "c.com").Return([]int(nil), nil).Once()

	got, err := New(nil).Evaluate(targetCtx(domain.Envelope{}, "c.com", "b.com/x", "a.com"), m, domain.ValidationSettings{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(got))
	m.AssertExpectations(t)
}
