// services/ranking_service.go
package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"opportunity-feed-system/config"
	"opportunity-feed-system/models"
)

// RankingService produces the final feed order: candidates are narrowed by
// the preselector, the evaluation subset is run through the eligibility
// engine concurrently, and eligibility and hybrid scores are blended into a
// final score. With no wallet address the order is pure quality/recency and
// no eligibility-shaped field appears in the output.
type RankingService struct {
	preselector *Preselector
	eligibility *EligibilityService

	eligibilityWeight float64
	hybridWeight      float64
}

func NewRankingService(preselector *Preselector, eligibility *EligibilityService, cfg *config.Config) *RankingService {
	return &RankingService{
		preselector:       preselector,
		eligibility:       eligibility,
		eligibilityWeight: cfg.Ranking.EligibilityWeight,
		hybridWeight:      cfg.Ranking.HybridWeight,
	}
}

// Rank orders candidates for walletAddress (optional; empty means
// non-personalized) and truncates to pageSize. The returned degraded flag is
// true when at least one evaluation fell back rather than completing.
// Deterministic given identical cache contents and wallet signals.
func (s *RankingService) Rank(ctx context.Context, walletAddress string, candidates []models.Opportunity, pageSize int) ([]models.RankingResult, bool) {
	walletAddress = strings.ToLower(strings.TrimSpace(walletAddress))

	pre := s.preselector.Preselect(candidates)
	results := make([]models.RankingResult, len(pre.Window))
	for i, sc := range pre.Window {
		results[i] = models.RankingResult{
			Opportunity: sc.Opportunity,
			HybridScore: sc.HybridScore,
			FinalScore:  sc.HybridScore,
		}
	}

	degraded := false
	if walletAddress != "" && pre.EvalCount > 0 {
		degraded = s.evaluateSubset(ctx, walletAddress, results[:pre.EvalCount])
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if !a.Opportunity.CreatedAt.Equal(b.Opportunity.CreatedAt) {
			return a.Opportunity.CreatedAt.After(b.Opportunity.CreatedAt)
		}
		return a.Opportunity.ID < b.Opportunity.ID
	})

	if pageSize > 0 && len(results) > pageSize {
		results = results[:pageSize]
	}
	return results, degraded
}

// evaluateSubset fans eligibility evaluation out over the subset and joins
// before returning; there is no ordering dependency between evaluations.
// A single evaluation failure degrades that entry's confidence, never the
// request.
func (s *RankingService) evaluateSubset(ctx context.Context, walletAddress string, subset []models.RankingResult) bool {
	var wg sync.WaitGroup
	anyDegraded := make([]bool, len(subset))

	for i := range subset {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := s.eligibility.Evaluate(ctx, walletAddress, subset[i].Opportunity)
			if err != nil {
				log.Printf("[RANKING] eligibility evaluation failed for %s/%s: %v",
					walletAddress, subset[i].Opportunity.ID, err)
				subset[i].Degraded = true
				anyDegraded[i] = true
				return
			}
			subset[i].Eligibility = &rec
			subset[i].FinalScore = rec.Score*s.eligibilityWeight + subset[i].HybridScore*s.hybridWeight
		}(i)
	}
	wg.Wait()

	for _, d := range anyDegraded {
		if d {
			return true
		}
	}
	return false
}
