package models

// RankingResult is one entry of a ranked feed. Ephemeral — recomputed per
// request, never persisted. When the request carried no wallet address,
// Eligibility is nil and FinalScore equals HybridScore; no eligibility-shaped
// field may appear in that case.
type RankingResult struct {
	Opportunity Opportunity        `json:"opportunity"`
	Eligibility *EligibilityRecord `json:"eligibility,omitempty"`
	HybridScore float64            `json:"hybrid_score"`
	FinalScore  float64            `json:"final_score"` // [0,1]
	RewardUSD   *float64           `json:"reward_usd,omitempty"`
	Degraded    bool               `json:"degraded,omitempty"`
}
