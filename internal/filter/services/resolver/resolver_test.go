package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-filter/internal/filter/domain"
)

func rule(t *testing.T, id int, content, description string, actions *domain.ActionSettings) domain.DomainRule {
	t.Helper()
	r, err := domain.NewDomainRule(id, content, domain.ListDeny, "test", time.Unix(1, 0))
	require.NoError(t, err)
	r.Description = description
	r.Actions = actions
	return r
}

func defaults() domain.ListDefaults {
	return domain.ListDefaults{Actions: domain.ActionSettings{
		InfractionType:     domain.Ptr(domain.InfractionTimeout),
		InfractionDuration: domain.Ptr(10 * time.Minute),
		RemoveContext:      domain.Ptr(true),
		SendAlert:          domain.Ptr(true),
	}}
}

func TestResolve_NoMatches(t *testing.T) {
	v := New().Resolve(nil, defaults())
	assert.Nil(t, v.Actions)
	assert.Equal(t, "", v.Message)
	assert.Equal(t, domain.EmptyVerdict(), New().Resolve([]domain.DomainRule{}, defaults()))
}

func TestResolve_SingleMatchMessage(t *testing.T) {
	v := New().Resolve([]domain.DomainRule{rule(t, 5, "a.com", "", nil)}, defaults())
	assert.Equal(t, "#5 (`a.com`)", v.Message)

	v = New().Resolve([]domain.DomainRule{rule(t, 5, "a.com", "phishing", nil)}, defaults())
	assert.Equal(t, "#5 (`a.com`) - phishing", v.Message)
}

func TestResolve_MultiMatchMessageOmitsDescriptions(t *testing.T) {
	matched := []domain.DomainRule{
		rule(t, 1, "a.com", "first", nil),
		rule(t, 2, "b.com", "second", nil),
	}
	v := New().Resolve(matched, defaults())
	assert.Equal(t, "#1 (`a.com`), #2 (`b.com`)", v.Message)
}

func TestResolve_RuleWithoutOverrideUsesDefaults(t *testing.T) {
	d := defaults()
	v := New().Resolve([]domain.DomainRule{rule(t, 1, "a.com", "", nil)}, d)
	require.NotNil(t, v.Actions)
	assert.Equal(t, d.Actions, *v.Actions)
}

func TestResolve_PartialOverrideInheritsUnsetFields(t *testing.T) {
	override := &domain.ActionSettings{InfractionType: domain.Ptr(domain.InfractionBan), SendAlert: domain.Ptr(false)}
	v := New().Resolve([]domain.DomainRule{rule(t, 1, "a.com", "", override)}, defaults())
	require.NotNil(t, v.Actions)
	assert.Equal(t, domain.InfractionBan, *v.Actions.InfractionType)
	assert.False(t, *v.Actions.SendAlert)
	assert.Equal(t, 10*time.Minute, *v.Actions.InfractionDuration)
	assert.True(t, *v.Actions.RemoveContext)
}

func TestResolve_MergeIsOrderIndependent(t *testing.T) {
	a := rule(t, 1, "a.com", "", &domain.ActionSettings{
		InfractionType: domain.Ptr(domain.InfractionBan),
		GuildPings:     []string{"mods"},
	})
	b := rule(t, 2, "b.com", "", &domain.ActionSettings{
		RemoveContext: domain.Ptr(false),
		DMPings:       []string{"owner"},
		GuildPings:    []string{"admins"},
	})
	c := rule(t, 3, "c.com", "", nil)

	ab := New().Resolve([]domain.DomainRule{a, b}, defaults())
	ba := New().Resolve([]domain.DomainRule{b, a}, defaults())
	assert.Equal(t, *ab.Actions, *ba.Actions)

	abc := New().Resolve([]domain.DomainRule{a, b, c}, defaults())
	cba := New().Resolve([]domain.DomainRule{c, b, a}, defaults())
	assert.Equal(t, *abc.Actions, *cba.Actions)

	got := *ab.Actions
	assert.Equal(t, domain.InfractionBan, *got.InfractionType)
	assert.True(t, *got.RemoveContext, "a inherits remove_context=true from defaults")
	assert.Equal(t, []string{"admins", "mods"}, got.GuildPings)
	assert.Equal(t, []string{"owner"}, got.DMPings)
}

func TestUnionAll(t *testing.T) {
	x := domain.ActionSettings{SendAlert: domain.Ptr(true)}
	assert.Equal(t, x, unionAll(x))
	got := unionAll(domain.ActionSettings{}, x, domain.ActionSettings{RemoveContext: domain.Ptr(true)})
	assert.True(t, *got.SendAlert)
	assert.True(t, *got.RemoveContext)
}
