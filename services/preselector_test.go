package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opportunity-feed-system/config"
	"opportunity-feed-system/models"
)

func newTestPreselector(now time.Time) *Preselector {
	p := NewPreselector(config.Default())
	p.now = func() time.Time { return now }
	return p
}

func TestRecencyBoost(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPreselector(now)

	fresh := models.Opportunity{CreatedAt: now}
	assert.InDelta(t, 1.0, p.RecencyBoost(fresh), 1e-9)

	old := models.Opportunity{CreatedAt: now.AddDate(0, 0, -30)}
	assert.InDelta(t, 0.0, p.RecencyBoost(old), 1e-9)

	ancient := models.Opportunity{CreatedAt: now.AddDate(0, 0, -90)}
	assert.Equal(t, 0.0, p.RecencyBoost(ancient))

	half := models.Opportunity{CreatedAt: now.AddDate(0, 0, -15)}
	assert.InDelta(t, 0.5, p.RecencyBoost(half), 1e-9)

	// A future created_at must not push the boost above 1.
	future := models.Opportunity{TrustScore: 100, CreatedAt: now.Add(48 * time.Hour)}
	assert.Equal(t, 1.0, p.RecencyBoost(future))
	assert.LessOrEqual(t, p.HybridScore(future), 1.0)
}

func TestPreselect_TwoStageCap(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPreselector(now)

	candidates := make([]models.Opportunity, 1000)
	for i := range candidates {
		candidates[i] = models.Opportunity{
			ID:         fmt.Sprintf("opp-%04d", i),
			TrustScore: float64(i % 100),
			CreatedAt:  now.Add(-time.Duration(i) * time.Hour),
		}
	}

	pre := p.Preselect(candidates)
	assert.Len(t, pre.Window, 100)
	assert.Equal(t, 50, pre.EvalCount)
}

func TestPreselect_SmallCandidateSet(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPreselector(now)

	pre := p.Preselect([]models.Opportunity{
		{ID: "a", TrustScore: 50, CreatedAt: now},
		{ID: "b", TrustScore: 90, CreatedAt: now},
	})
	assert.Len(t, pre.Window, 2)
	assert.Equal(t, 2, pre.EvalCount)
	assert.Equal(t, "b", pre.Window[0].Opportunity.ID)
}

func TestPreselect_Deterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPreselector(now)

	candidates := make([]models.Opportunity, 200)
	for i := range candidates {
		candidates[i] = models.Opportunity{
			ID:         fmt.Sprintf("opp-%03d", i),
			TrustScore: float64((i * 37) % 100),
			CreatedAt:  now.Add(-time.Duration((i*13)%720) * time.Hour),
		}
	}
	reversed := make([]models.Opportunity, len(candidates))
	for i, o := range candidates {
		reversed[len(candidates)-1-i] = o
	}

	a := p.Preselect(candidates)
	b := p.Preselect(reversed)

	require.Equal(t, len(a.Window), len(b.Window))
	for i := range a.Window {
		assert.Equal(t, a.Window[i].Opportunity.ID, b.Window[i].Opportunity.ID)
	}
}

// Twelve opportunities with trust scores 81–92 inserted in creation batches:
// the order must follow the hybrid score, not the raw insertion sequence.
func TestPreselect_HybridInterleavesInsertionBatches(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPreselector(now)

	types := []models.OpportunityType{
		models.OpportunityTypeAirdrop,
		models.OpportunityTypeQuest,
		models.OpportunityTypeStaking,
	}
	var candidates []models.Opportunity
	for i := 0; i < 12; i++ {
		candidates = append(candidates, models.Opportunity{
			ID:         fmt.Sprintf("opp-%02d", i),
			Type:       types[i/4], // three insertion batches of four
			TrustScore: float64(81 + i),
			// Ages staggered within each batch so recency cuts across
			// the trust-score progression.
			CreatedAt: now.Add(-time.Duration(i%4) * 10 * 24 * time.Hour),
		})
	}

	pre := p.Preselect(candidates)
	require.Len(t, pre.Window, 12)

	// Hybrid score must be non-increasing throughout.
	for i := 1; i < len(pre.Window); i++ {
		assert.GreaterOrEqual(t, pre.Window[i-1].HybridScore, pre.Window[i].HybridScore)
	}

	// The top slots must mix insertion batches rather than holding one whole.
	topTypes := make(map[models.OpportunityType]struct{})
	for i := 0; i < 4; i++ {
		topTypes[pre.Window[i].Opportunity.Type] = struct{}{}
	}
	assert.Greater(t, len(topTypes), 1, "ordering followed insertion batches instead of hybrid score")
}

func TestHybridScore_Bounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPreselector(now)

	best := models.Opportunity{TrustScore: 100, CreatedAt: now}
	worst := models.Opportunity{TrustScore: 0, CreatedAt: now.AddDate(-1, 0, 0)}

	assert.InDelta(t, 1.0, p.HybridScore(best), 1e-9)
	assert.InDelta(t, 0.0, p.HybridScore(worst), 1e-9)
}
