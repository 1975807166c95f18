package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// OpportunityType indicates the kind of reward program
type OpportunityType string

const (
	OpportunityTypeAirdrop  OpportunityType = "airdrop"
	OpportunityTypeQuest    OpportunityType = "quest"
	OpportunityTypeStaking  OpportunityType = "staking"
	OpportunityTypePoints   OpportunityType = "points"
	OpportunityTypeRWA      OpportunityType = "rwa"
	OpportunityTypeStrategy OpportunityType = "strategy"
)

// RequirementSet holds the named conditions a wallet must satisfy.
// An empty set means the opportunity is open to everyone.
type RequirementSet struct {
	MinWalletAgeDays    int               `json:"min_wallet_age_days,omitempty"`
	MinTransactionCount int               `json:"min_transaction_count,omitempty"`
	Chains              []string          `json:"chains,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// Count returns how many individual conditions the set carries.
func (r RequirementSet) Count() int {
	n := 0
	if r.MinWalletAgeDays > 0 {
		n++
	}
	if r.MinTransactionCount > 0 {
		n++
	}
	if len(r.Chains) > 0 {
		n++
	}
	n += len(r.Extra)
	return n
}

func (r RequirementSet) IsEmpty() bool {
	return r.Count() == 0
}

// Opportunity represents a reward-style opportunity in the catalog.
// The engine treats rows as immutable except trust_score, which the
// trust-score worker refreshes from the external scoring service.
type Opportunity struct {
	ID           string          `gorm:"primaryKey;type:uuid" json:"id"`
	Slug         string          `gorm:"uniqueIndex;not null" json:"slug"`
	Title        string          `gorm:"not null" json:"title"`
	Type         OpportunityType `gorm:"index;not null" json:"type"`
	Excerpt      string          `gorm:"type:text" json:"excerpt,omitempty"`
	TrustScore   float64         `gorm:"not null;default:0" json:"trust_score"` // 0–100, externally maintained
	RewardToken  string          `gorm:"size:16" json:"reward_token,omitempty"` // e.g. "ARB"
	RewardAmount float64         `json:"reward_amount,omitempty"`
	Requirements RequirementSet  `gorm:"type:jsonb;serializer:json" json:"requirements"`

	// SnapshotDate is set only for historical airdrops whose eligibility is
	// fixed to activity recorded as of that date.
	SnapshotDate *time.Time `json:"snapshot_date,omitempty"`

	// ClaimWindowEndsAt closes the claim window; ValidUntil ends the
	// opportunity's own validity period.
	ClaimWindowEndsAt *time.Time `gorm:"index" json:"claim_window_ends_at,omitempty"`
	ValidUntil        *time.Time `gorm:"index" json:"valid_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (*Opportunity) TableName() string {
	return "opportunities"
}

func (o *Opportunity) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Slug == "" {
		o.Slug = slug.Make(o.Title)
	}
	return nil
}

// AgeDays returns the opportunity's age in (fractional) days at now.
func (o *Opportunity) AgeDays(now time.Time) float64 {
	return now.Sub(o.CreatedAt).Hours() / 24
}

// ClaimWindowClosed reports whether the claim window has closed at now.
func (o *Opportunity) ClaimWindowClosed(now time.Time) bool {
	return o.ClaimWindowEndsAt != nil && o.ClaimWindowEndsAt.Before(now)
}

// ValidityEnded reports whether the opportunity's validity period has ended at now.
func (o *Opportunity) ValidityEnded(now time.Time) bool {
	return o.ValidUntil != nil && o.ValidUntil.Before(now)
}

// AcceptsChain reports whether chain satisfies the requirement set's chain
// condition (vacuously true when no chains are required).
func (r RequirementSet) AcceptsChain(chain string) bool {
	if len(r.Chains) == 0 {
		return true
	}
	for _, c := range r.Chains {
		if strings.EqualFold(c, chain) {
			return true
		}
	}
	return false
}
