package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Eligibility.TTL)
	assert.Equal(t, 100, cfg.Preselect.WindowSize)
	assert.Equal(t, 50, cfg.Preselect.EvalSize)
	assert.InDelta(t, 1.0, cfg.Ranking.EligibilityWeight+cfg.Ranking.HybridWeight, 1e-9)
	assert.InDelta(t, 1.0, cfg.Preselect.TrustWeight+cfg.Preselect.RecencyWeight, 1e-9)
}

func TestLoadRejectsOverweightedRanking(t *testing.T) {
	t.Setenv("RANKING_ELIGIBILITY_WEIGHT", "0.9")
	t.Setenv("RANKING_HYBRID_WEIGHT", "0.9")
	_, err := Load()
	assert.Error(t, err, "weights summing above 1 would push final scores out of [0,1]")
}

func TestLoadRejectsOverweightedPreselection(t *testing.T) {
	t.Setenv("PRESELECT_TRUST_WEIGHT", "0.8")
	t.Setenv("PRESELECT_RECENCY_WEIGHT", "0.5")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	t.Setenv("ELIGIBILITY_LIKELY_THRESHOLD", "0.3")
	t.Setenv("ELIGIBILITY_MAYBE_THRESHOLD", "0.6")
	_, err := Load()
	assert.Error(t, err)
}
