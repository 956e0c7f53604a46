package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterList_AddRulesAndPartition(t *testing.T) {
	l := NewFilterList("domain")
	deny := mustRule(t, 1, "a.com")
	allow, err := NewDomainRule(2, "b.com", ListAllow, "test", time.Unix(1, 0))
	require.NoError(t, err)
	l.AddRules(deny, allow)
	l.Defaults[ListDeny] = ListDefaults{Actions: ActionSettings{SendAlert: Ptr(true)}}

	p := l.Partition(ListDeny)
	assert.Equal(t, []DomainRule{deny}, p.Rules())
	assert.True(t, *p.Defaults().Actions.SendAlert)
	assert.Equal(t, []DomainRule{allow}, l.Partition(ListAllow).Rules())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 2, l.MaxID())
	require.NoError(t, l.Validate())
}

func TestFilterList_AddRulesOnZeroValue(t *testing.T) {
	var l FilterList
	l.AddRules(mustRule(t, 3, "a.com"))
	assert.Len(t, l.Rules[ListDeny], 1)
	assert.Equal(t, 0, FilterList{}.MaxID())
}

func TestFilterList_Validate(t *testing.T) {
	t.Run("duplicate ids", func(t *testing.T) {
		l := NewFilterList("domain")
		l.AddRules(mustRule(t, 1, "a.com"), mustRule(t, 1, "b.com"))
		err := l.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRule)
		assert.Contains(t, err.Error(), "duplicate id")
	})

	t.Run("wrong partition", func(t *testing.T) {
		l := NewFilterList("domain")
		l.Rules[ListAllow] = []DomainRule{mustRule(t, 1, "a.com")}
		assert.ErrorIs(t, l.Validate(), ErrInvalidRule)
	})

	t.Run("invalid rule", func(t *testing.T) {
		l := NewFilterList("domain")
		l.AddRules(DomainRule{ID: 1, Content: "", ListType: ListDeny})
		assert.ErrorIs(t, l.Validate(), ErrInvalidRule)
	})
}

func TestStaticPartition_Match(t *testing.T) {
	p := StaticPartition{RuleList: []DomainRule{
		mustRule(t, 1, "a.com"),
		mustRule(t, 2, "b.com"),
		mustRule(t, 3, "sub.a.com"),
	}}

	got, err := p.Match("sub.a.com/x")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, got)

	got, err = p.Match("c.com")
	require.NoError(t, err)
	assert.Empty(t, got)

	bad := StaticPartition{RuleList: []DomainRule{{ID: 1, Content: "com"}}}
	_, err = bad.Match("a.com")
	assert.ErrorIs(t, err, ErrInvalidRule)
}
