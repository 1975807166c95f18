// services/status_service.go
package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"opportunity-feed-system/models"
	"opportunity-feed-system/storage"
)

// ErrClaimConflict is returned when a claim confirmation repeats with
// different details than the recorded claim.
var ErrClaimConflict = errors.New("opportunity already claimed with different details")

// StatusService owns the long-lived per-user claim status lifecycle.
// Informational states (eligible/maybe/unlikely) follow eligibility
// recomputation; terminal states (claimed/missed/expired) are one-way and
// never overwritten by recomputation.
type StatusService struct {
	store   storage.StatusStore
	catalog storage.CatalogStore
	now     func() time.Time
}

func NewStatusService(store storage.StatusStore, catalog storage.CatalogStore) *StatusService {
	return &StatusService{store: store, catalog: catalog, now: time.Now}
}

// GetStatus returns the user's status for an opportunity, or nil when no
// record exists yet (no eligibility evaluation has happened).
func (s *StatusService) GetStatus(ctx context.Context, userID, walletAddress, opportunityID string) (*models.UserOpportunityStatus, error) {
	return s.store.Get(ctx, userID, strings.ToLower(walletAddress), opportunityID)
}

// RefreshFromEligibility creates the status row on first evaluation and
// updates informational states afterwards. Terminal rows are left untouched
// — a refresh against one is a no-op, not an error, so the ranking path
// never special-cases them.
func (s *StatusService) RefreshFromEligibility(ctx context.Context, userID string, rec models.EligibilityRecord) error {
	mapped := statusForEligibility(rec.Status)

	st, err := s.store.Get(ctx, userID, rec.WalletAddress, rec.OpportunityID)
	if err != nil {
		return err
	}
	if st == nil {
		return s.store.Save(ctx, &models.UserOpportunityStatus{
			UserID:        userID,
			WalletAddress: rec.WalletAddress,
			OpportunityID: rec.OpportunityID,
			Status:        mapped,
			CreatedAt:     s.now(),
			UpdatedAt:     s.now(),
		})
	}
	if st.Status.Terminal() || st.Status == mapped {
		return nil
	}
	st.Status = mapped
	st.UpdatedAt = s.now()
	return s.store.Save(ctx, st)
}

// RecordClaim transitions the status to claimed on an external claim
// confirmation. Idempotent on repeated identical calls; a repeat with
// different details is a conflict. A confirmation arriving after a
// missed/expired sweep wins — the claim demonstrably happened.
func (s *StatusService) RecordClaim(ctx context.Context, userID, walletAddress, opportunityID string, claimAmount *float64, claimedAt time.Time) (*models.UserOpportunityStatus, error) {
	walletAddress = strings.ToLower(walletAddress)

	st, err := s.store.Get(ctx, userID, walletAddress, opportunityID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &models.UserOpportunityStatus{
			UserID:        userID,
			WalletAddress: walletAddress,
			OpportunityID: opportunityID,
			CreatedAt:     s.now(),
		}
	}

	if st.Status == models.UserStatusClaimed {
		if sameClaim(st, claimAmount, claimedAt) {
			return st, nil
		}
		return st, ErrClaimConflict
	}
	if st.Status == models.UserStatusMissed || st.Status == models.UserStatusExpired {
		log.Printf("[STATUS] late claim confirmation overrides %s for user=%s opp=%s", st.Status, userID, opportunityID)
	}

	st.Status = models.UserStatusClaimed
	st.ClaimAmount = claimAmount
	st.ClaimedAt = &claimedAt
	st.UpdatedAt = s.now()
	if err := s.store.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// SweepExpirations transitions non-terminal statuses whose opportunity
// validity has ended to expired, and those whose claim window has closed to
// missed. Triggered on a schedule, never by the ranking path.
func (s *StatusService) SweepExpirations(ctx context.Context, now time.Time) (missed, expired int, err error) {
	statuses, err := s.store.ListNonTerminal(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(statuses) == 0 {
		return 0, 0, nil
	}

	seen := make(map[string]struct{}, len(statuses))
	ids := make([]string, 0, len(statuses))
	for _, st := range statuses {
		if _, ok := seen[st.OpportunityID]; !ok {
			seen[st.OpportunityID] = struct{}{}
			ids = append(ids, st.OpportunityID)
		}
	}
	opps, err := s.catalog.ListByIDs(ctx, ids)
	if err != nil {
		return 0, 0, err
	}
	byID := make(map[string]models.Opportunity, len(opps))
	for _, o := range opps {
		byID[o.ID] = o
	}

	for i := range statuses {
		st := statuses[i]
		opp, ok := byID[st.OpportunityID]
		if !ok {
			continue
		}

		var next models.UserStatusValue
		switch {
		case opp.ValidityEnded(now):
			next = models.UserStatusExpired
		case opp.ClaimWindowClosed(now):
			next = models.UserStatusMissed
		default:
			continue
		}

		st.Status = next
		st.UpdatedAt = s.now()
		if err := s.store.Save(ctx, &st); err != nil {
			log.Printf("[STATUS] sweep failed to save %s for user=%s opp=%s: %v", next, st.UserID, st.OpportunityID, err)
			continue
		}
		if next == models.UserStatusMissed {
			missed++
		} else {
			expired++
		}
	}
	return missed, expired, nil
}

func statusForEligibility(es models.EligibilityStatus) models.UserStatusValue {
	switch es {
	case models.EligibilityLikely:
		return models.UserStatusEligible
	case models.EligibilityUnlikely:
		return models.UserStatusUnlikely
	default:
		return models.UserStatusMaybe
	}
}

func sameClaim(st *models.UserOpportunityStatus, amount *float64, claimedAt time.Time) bool {
	if st.ClaimedAt == nil || !st.ClaimedAt.Equal(claimedAt) {
		return false
	}
	if (st.ClaimAmount == nil) != (amount == nil) {
		return false
	}
	return amount == nil || *st.ClaimAmount == *amount
}
