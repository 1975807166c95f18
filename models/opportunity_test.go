package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequirementSetCount(t *testing.T) {
	assert.Zero(t, RequirementSet{}.Count())
	assert.True(t, RequirementSet{}.IsEmpty())

	full := RequirementSet{
		MinWalletAgeDays:    30,
		MinTransactionCount: 5,
		Chains:              []string{"chainA", "chainB"},
		Extra:               map[string]string{"governance_vote": "required"},
	}
	assert.Equal(t, 4, full.Count())
	assert.False(t, full.IsEmpty())
}

func TestRequirementSetAcceptsChain(t *testing.T) {
	open := RequirementSet{}
	assert.True(t, open.AcceptsChain("anything"))

	restricted := RequirementSet{Chains: []string{"ChainA"}}
	assert.True(t, restricted.AcceptsChain("chaina"))
	assert.False(t, restricted.AcceptsChain("chainB"))
}

func TestOpportunityWindows(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	open := Opportunity{ClaimWindowEndsAt: &future, ValidUntil: &future}
	assert.False(t, open.ClaimWindowClosed(now))
	assert.False(t, open.ValidityEnded(now))

	closed := Opportunity{ClaimWindowEndsAt: &past, ValidUntil: &past}
	assert.True(t, closed.ClaimWindowClosed(now))
	assert.True(t, closed.ValidityEnded(now))

	unbounded := Opportunity{}
	assert.False(t, unbounded.ClaimWindowClosed(now))
	assert.False(t, unbounded.ValidityEnded(now))
}

func TestWalletSignalsHasAnyChain(t *testing.T) {
	sig := WalletSignals{ActiveChains: []string{"ChainA", "chainB"}}
	assert.True(t, sig.HasChain("chaina"))
	assert.False(t, sig.HasChain("chainC"))
	assert.True(t, sig.HasAnyChain([]string{"chainC", "CHAINB"}))
	assert.False(t, sig.HasAnyChain([]string{"chainC"}))
	assert.False(t, sig.HasAnyChain(nil))
}

func TestUserStatusValueTerminal(t *testing.T) {
	for _, s := range []UserStatusValue{UserStatusClaimed, UserStatusMissed, UserStatusExpired} {
		assert.True(t, s.Terminal(), string(s))
		assert.True(t, s.Valid(), string(s))
	}
	for _, s := range []UserStatusValue{UserStatusEligible, UserStatusMaybe, UserStatusUnlikely} {
		assert.False(t, s.Terminal(), string(s))
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, UserStatusValue("done").Valid())
}
