// storage/gorm_store.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"opportunity-feed-system/models"
)

// GormCatalogStore reads the opportunity catalog from Postgres.
type GormCatalogStore struct {
	DB *gorm.DB
}

func NewGormCatalogStore(db *gorm.DB) *GormCatalogStore {
	return &GormCatalogStore{DB: db}
}

func (s *GormCatalogStore) List(ctx context.Context, filter CatalogFilter) ([]models.Opportunity, error) {
	query := s.DB.WithContext(ctx).Model(&models.Opportunity{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var opps []models.Opportunity
	if err := query.Find(&opps).Error; err != nil {
		return nil, err
	}
	return opps, nil
}

func (s *GormCatalogStore) Get(ctx context.Context, id string) (*models.Opportunity, error) {
	var opp models.Opportunity
	if err := s.DB.WithContext(ctx).First(&opp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &opp, nil
}

func (s *GormCatalogStore) ListByIDs(ctx context.Context, ids []string) ([]models.Opportunity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var opps []models.Opportunity
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&opps).Error; err != nil {
		return nil, err
	}
	return opps, nil
}

// GormEligibilityStore persists eligibility records; writes are whole-row
// upserts on the (wallet_address, opportunity_id) identity.
type GormEligibilityStore struct {
	DB *gorm.DB
}

func NewGormEligibilityStore(db *gorm.DB) *GormEligibilityStore {
	return &GormEligibilityStore{DB: db}
}

func (s *GormEligibilityStore) Get(ctx context.Context, walletAddress, opportunityID string) (*models.EligibilityRecord, error) {
	var rec models.EligibilityRecord
	err := s.DB.WithContext(ctx).
		Where("wallet_address = ? AND opportunity_id = ?", walletAddress, opportunityID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormEligibilityStore) Upsert(ctx context.Context, rec *models.EligibilityRecord) error {
	return s.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "wallet_address"}, {Name: "opportunity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"score",
				"reasons",
				"computed_at",
			}),
		},
	).Create(rec).Error
}

// GormHistoricalStore persists snapshot-keyed verdicts.
type GormHistoricalStore struct {
	DB *gorm.DB
}

func NewGormHistoricalStore(db *gorm.DB) *GormHistoricalStore {
	return &GormHistoricalStore{DB: db}
}

func (s *GormHistoricalStore) Get(ctx context.Context, walletAddress string, snapshotDate time.Time, chain string) (*models.HistoricalEligibilityRecord, error) {
	var rec models.HistoricalEligibilityRecord
	err := s.DB.WithContext(ctx).
		Where("wallet_address = ? AND snapshot_date = ? AND chain = ?", walletAddress, snapshotDate, chain).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormHistoricalStore) Upsert(ctx context.Context, rec *models.HistoricalEligibilityRecord) error {
	return s.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "wallet_address"}, {Name: "snapshot_date"}, {Name: "chain"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"eligible",
				"confirmed",
				"computed_at",
			}),
		},
	).Create(rec).Error
}

// GormStatusStore persists per-user claim statuses.
type GormStatusStore struct {
	DB *gorm.DB
}

func NewGormStatusStore(db *gorm.DB) *GormStatusStore {
	return &GormStatusStore{DB: db}
}

func (s *GormStatusStore) Get(ctx context.Context, userID, walletAddress, opportunityID string) (*models.UserOpportunityStatus, error) {
	var st models.UserOpportunityStatus
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND wallet_address = ? AND opportunity_id = ?", userID, walletAddress, opportunityID).
		First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

func (s *GormStatusStore) Save(ctx context.Context, st *models.UserOpportunityStatus) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
		return s.DB.WithContext(ctx).Create(st).Error
	}
	return s.DB.WithContext(ctx).Save(st).Error
}

func (s *GormStatusStore) ListNonTerminal(ctx context.Context) ([]models.UserOpportunityStatus, error) {
	var sts []models.UserOpportunityStatus
	err := s.DB.WithContext(ctx).
		Where("status IN ?", []models.UserStatusValue{
			models.UserStatusEligible,
			models.UserStatusMaybe,
			models.UserStatusUnlikely,
		}).
		Find(&sts).Error
	if err != nil {
		return nil, err
	}
	return sts, nil
}
