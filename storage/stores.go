// storage/stores.go
package storage

import (
	"context"
	"time"

	"opportunity-feed-system/models"
)

// CatalogFilter narrows an opportunity catalog read.
type CatalogFilter struct {
	Type  models.OpportunityType // empty means all categories
	Limit int                    // 0 means no limit
}

// CatalogStore is the filtered, sorted read of the persisted opportunity
// table. The engine treats its output as an already-authorized candidate set.
type CatalogStore interface {
	List(ctx context.Context, filter CatalogFilter) ([]models.Opportunity, error)
	Get(ctx context.Context, id string) (*models.Opportunity, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Opportunity, error)
}

// EligibilityStore holds cached EligibilityRecords keyed by
// (wallet_address, opportunity_id). Get returns (nil, nil) when absent.
type EligibilityStore interface {
	Get(ctx context.Context, walletAddress, opportunityID string) (*models.EligibilityRecord, error)
	Upsert(ctx context.Context, rec *models.EligibilityRecord) error
}

// HistoricalStore holds snapshot-keyed eligibility verdicts keyed by
// (wallet_address, snapshot_date, chain). Get returns (nil, nil) when absent.
type HistoricalStore interface {
	Get(ctx context.Context, walletAddress string, snapshotDate time.Time, chain string) (*models.HistoricalEligibilityRecord, error)
	Upsert(ctx context.Context, rec *models.HistoricalEligibilityRecord) error
}

// StatusStore persists the long-lived per-user claim statuses. Get returns
// (nil, nil) when no record exists yet.
type StatusStore interface {
	Get(ctx context.Context, userID, walletAddress, opportunityID string) (*models.UserOpportunityStatus, error)
	Save(ctx context.Context, st *models.UserOpportunityStatus) error
	ListNonTerminal(ctx context.Context) ([]models.UserOpportunityStatus, error)
}
