package models

import (
	"fmt"
	"time"
)

// EligibilityStatus is the engine's verdict for a (wallet, opportunity) pair
type EligibilityStatus string

const (
	EligibilityLikely   EligibilityStatus = "likely"
	EligibilityMaybe    EligibilityStatus = "maybe"
	EligibilityUnlikely EligibilityStatus = "unlikely"
)

func (s EligibilityStatus) Valid() bool {
	switch s {
	case EligibilityLikely, EligibilityMaybe, EligibilityUnlikely:
		return true
	}
	return false
}

// EligibilityRecord is the cached outcome of evaluating an opportunity's
// requirement set against a wallet's signals. Rows are recomputed whole via
// upsert — never partially mutated — and staleness is measured from
// ComputedAt at read time.
type EligibilityRecord struct {
	WalletAddress string            `gorm:"primaryKey;type:varchar(128)" json:"wallet_address"`
	OpportunityID string            `gorm:"primaryKey;type:uuid" json:"opportunity_id"`
	Status        EligibilityStatus `gorm:"type:varchar(16);not null" json:"status"`
	Score         float64           `gorm:"not null" json:"score"` // [0,1]
	Reasons       []string          `gorm:"type:jsonb;serializer:json" json:"reasons"`
	ComputedAt    time.Time         `gorm:"not null" json:"computed_at"`
}

func (*EligibilityRecord) TableName() string {
	return "eligibility_records"
}

// Validate reports invariant violations. A violation is a programming defect:
// callers treat an invalid stored row as cache corruption and recompute.
func (r *EligibilityRecord) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("eligibility status %q outside defined enumeration", r.Status)
	}
	if r.Score < 0 || r.Score > 1 {
		return fmt.Errorf("eligibility score %v outside [0,1]", r.Score)
	}
	return nil
}

// HistoricalEligibilityRecord is a snapshot-keyed verdict for claim-window
// eligibility fixed to a past date. Unconfirmed rows are re-evaluated after
// the 7-day TTL to admit corrections to the underlying activity index;
// confirmed rows are authoritative and served regardless of age.
type HistoricalEligibilityRecord struct {
	WalletAddress string    `gorm:"primaryKey;type:varchar(128)" json:"wallet_address"`
	SnapshotDate  time.Time `gorm:"primaryKey" json:"snapshot_date"`
	Chain         string    `gorm:"primaryKey;type:varchar(64)" json:"chain"`
	Eligible      bool      `gorm:"not null" json:"eligible"`
	Confirmed     bool      `gorm:"not null;default:false" json:"confirmed"`
	ComputedAt    time.Time `gorm:"not null" json:"computed_at"`
}

func (*HistoricalEligibilityRecord) TableName() string {
	return "historical_eligibility_records"
}
