// services/preselector.go
package services

import (
	"sort"
	"time"

	"opportunity-feed-system/config"
	"opportunity-feed-system/models"
)

// Preselector narrows a large candidate set to a bounded working set using a
// hybrid quality/recency score, so the expensive per-wallet evaluation stays
// affordable regardless of catalog size. Opportunities outside the window
// are dropped from the request entirely.
type Preselector struct {
	recencyWindowDays float64
	trustWeight       float64
	recencyWeight     float64
	windowSize        int
	evalSize          int
	now               func() time.Time
}

// ScoredOpportunity pairs a candidate with its hybrid score.
type ScoredOpportunity struct {
	Opportunity models.Opportunity
	HybridScore float64
}

// Preselection is the two-stage narrowing result: Window holds the top
// windowSize candidates; the first EvalCount of them form the
// eligibility-evaluation subset.
type Preselection struct {
	Window    []ScoredOpportunity
	EvalCount int
}

func NewPreselector(cfg *config.Config) *Preselector {
	return &Preselector{
		recencyWindowDays: cfg.Preselect.RecencyWindowDays,
		trustWeight:       cfg.Preselect.TrustWeight,
		recencyWeight:     cfg.Preselect.RecencyWeight,
		windowSize:        cfg.Preselect.WindowSize,
		evalSize:          cfg.Preselect.EvalSize,
		now:               time.Now,
	}
}

// RecencyBoost is a linearly decaying freshness signal in [0,1]: 1 at
// creation, 0 once the opportunity is recencyWindowDays old or older. A
// created_at in the future (clock skew, pre-announced listings) clamps to 1.
func (p *Preselector) RecencyBoost(o models.Opportunity) float64 {
	boost := 1 - o.AgeDays(p.now())/p.recencyWindowDays
	if boost < 0 {
		return 0
	}
	if boost > 1 {
		return 1
	}
	return boost
}

// HybridScore blends normalized trust score and recency boost into [0,1].
func (p *Preselector) HybridScore(o models.Opportunity) float64 {
	return o.TrustScore/100*p.trustWeight + p.RecencyBoost(o)*p.recencyWeight
}

// Preselect scores and sorts candidates, then applies the two-stage cap.
// Ordering is deterministic: hybrid score descending, then created_at
// descending, then ID ascending.
func (p *Preselector) Preselect(candidates []models.Opportunity) Preselection {
	scored := make([]ScoredOpportunity, len(candidates))
	for i, o := range candidates {
		scored[i] = ScoredOpportunity{Opportunity: o, HybridScore: p.HybridScore(o)}
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.HybridScore != b.HybridScore {
			return a.HybridScore > b.HybridScore
		}
		if !a.Opportunity.CreatedAt.Equal(b.Opportunity.CreatedAt) {
			return a.Opportunity.CreatedAt.After(b.Opportunity.CreatedAt)
		}
		return a.Opportunity.ID < b.Opportunity.ID
	})

	if len(scored) > p.windowSize {
		scored = scored[:p.windowSize]
	}
	evalCount := p.evalSize
	if evalCount > len(scored) {
		evalCount = len(scored)
	}
	return Preselection{Window: scored, EvalCount: evalCount}
}
