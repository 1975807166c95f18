package models

import "time"

// UserStatusValue is the long-lived per-user claim status of an opportunity.
type UserStatusValue string

const (
	// Informational states — refreshed by eligibility evaluation.
	UserStatusEligible UserStatusValue = "eligible"
	UserStatusMaybe    UserStatusValue = "maybe"
	UserStatusUnlikely UserStatusValue = "unlikely"

	// Terminal states — one-way, never overwritten by recomputation.
	UserStatusClaimed UserStatusValue = "claimed"
	UserStatusMissed  UserStatusValue = "missed"
	UserStatusExpired UserStatusValue = "expired"
)

func (v UserStatusValue) Valid() bool {
	switch v {
	case UserStatusEligible, UserStatusMaybe, UserStatusUnlikely,
		UserStatusClaimed, UserStatusMissed, UserStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether v is one of the one-way end states.
func (v UserStatusValue) Terminal() bool {
	switch v {
	case UserStatusClaimed, UserStatusMissed, UserStatusExpired:
		return true
	}
	return false
}

// UserOpportunityStatus tracks a user's relationship to an opportunity over
// time, independent of the short-lived eligibility cache. Created on first
// eligibility evaluation, mutated by claim events and expiry sweeps, never
// deleted.
type UserOpportunityStatus struct {
	ID            string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string          `gorm:"uniqueIndex:idx_user_wallet_opp;not null" json:"user_id"`
	WalletAddress string          `gorm:"uniqueIndex:idx_user_wallet_opp;type:varchar(128);not null" json:"wallet_address"`
	OpportunityID string          `gorm:"uniqueIndex:idx_user_wallet_opp;type:uuid;not null" json:"opportunity_id"`
	Status        UserStatusValue `gorm:"type:varchar(16);not null;index" json:"status"`
	ClaimAmount   *float64        `json:"claim_amount,omitempty"`
	ClaimedAt     *time.Time      `json:"claimed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (*UserOpportunityStatus) TableName() string {
	return "user_opportunity_statuses"
}
