// services/eligibility_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"opportunity-feed-system/config"
	"opportunity-feed-system/models"
	"opportunity-feed-system/storage"
)

// EligibilityService estimates whether a wallet qualifies for an
// opportunity. Results are cached for 24 hours keyed by
// (wallet_address, opportunity_id); the record is a pure function of the
// wallet's signals and the opportunity's requirement set, plus cache
// bookkeeping.
type EligibilityService struct {
	store      storage.EligibilityStore
	signals    *WalletSignalService
	historical *HistoricalEligibilityService // nil when no snapshot source is configured

	ttl             time.Duration
	likelyThreshold float64
	maybeThreshold  float64
	now             func() time.Time
	flight          singleflight.Group
}

type requirementCheck struct {
	satisfied bool
	reason    string
}

func NewEligibilityService(store storage.EligibilityStore, signals *WalletSignalService, historical *HistoricalEligibilityService, cfg *config.Config) *EligibilityService {
	return &EligibilityService{
		store:           store,
		signals:         signals,
		historical:      historical,
		ttl:             cfg.Eligibility.TTL,
		likelyThreshold: cfg.Eligibility.LikelyThreshold,
		maybeThreshold:  cfg.Eligibility.MaybeThreshold,
		now:             time.Now,
	}
}

// Evaluate returns the cached record when fresh (age < TTL) and recomputes
// otherwise. ComputedAt is refreshed to now on every write, insert and
// update alike, so staleness is always measured from the latest computation.
// Concurrent misses for the same (wallet, opportunity) coalesce into one
// computation.
func (s *EligibilityService) Evaluate(ctx context.Context, walletAddress string, opp models.Opportunity) (models.EligibilityRecord, error) {
	walletAddress = strings.ToLower(strings.TrimSpace(walletAddress))
	if walletAddress == "" {
		return models.EligibilityRecord{}, fmt.Errorf("eligibility evaluation requires a wallet address")
	}

	if cached := s.freshRecord(ctx, walletAddress, opp.ID); cached != nil {
		return *cached, nil
	}

	v, err, _ := s.flight.Do(walletAddress+"/"+opp.ID, func() (interface{}, error) {
		// A coalesced caller may arrive after the flight leader already
		// refreshed the record.
		if cached := s.freshRecord(ctx, walletAddress, opp.ID); cached != nil {
			return *cached, nil
		}

		rec := s.compute(ctx, walletAddress, opp)
		rec.ComputedAt = s.now()
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("computed invalid eligibility record: %w", err)
		}
		if err := s.store.Upsert(ctx, &rec); err != nil {
			// Cache write failure degrades freshness, not the evaluation.
			log.Printf("[ELIGIBILITY] failed to cache record for %s/%s: %v", walletAddress, opp.ID, err)
		}
		return rec, nil
	})
	if err != nil {
		return models.EligibilityRecord{}, err
	}
	return v.(models.EligibilityRecord), nil
}

// freshRecord returns the stored record when it is valid and fresh, nil
// otherwise. A malformed stored row is cache corruption and reads as a miss.
func (s *EligibilityService) freshRecord(ctx context.Context, walletAddress, opportunityID string) *models.EligibilityRecord {
	cached, err := s.store.Get(ctx, walletAddress, opportunityID)
	if err != nil {
		log.Printf("[ELIGIBILITY] store read failed for %s/%s, treating as miss: %v", walletAddress, opportunityID, err)
		return nil
	}
	if cached == nil {
		return nil
	}
	if err := cached.Validate(); err != nil {
		log.Printf("[ELIGIBILITY] corrupt cache entry for %s/%s: %v", walletAddress, opportunityID, err)
		return nil
	}
	if s.now().Sub(cached.ComputedAt) >= s.ttl {
		return nil
	}
	return cached
}

func (s *EligibilityService) compute(ctx context.Context, walletAddress string, opp models.Opportunity) models.EligibilityRecord {
	rec := models.EligibilityRecord{
		WalletAddress: walletAddress,
		OpportunityID: opp.ID,
	}

	sig, ok := s.signals.GetSignals(ctx, walletAddress)
	if !ok {
		// Deliberate indeterminate outcome, distinct from "unlikely".
		rec.Status = models.EligibilityMaybe
		rec.Score = 0.5
		rec.Reasons = []string{"wallet activity unavailable"}
		return rec
	}

	checks := s.evaluateRequirements(ctx, walletAddress, opp, sig)
	if len(checks) == 0 {
		rec.Status = models.EligibilityLikely
		rec.Score = 1.0
		rec.Reasons = []string{"no requirements — open to all wallets"}
		return rec
	}

	satisfied := 0
	reasons := make([]string, 0, len(checks))
	for _, c := range checks {
		if c.satisfied {
			satisfied++
		}
		reasons = append(reasons, c.reason)
	}
	rec.Score = float64(satisfied) / float64(len(checks))
	rec.Status = s.statusFor(rec.Score)
	rec.Reasons = reasons
	return rec
}

// evaluateRequirements checks each named condition independently, producing
// a satisfied flag and a human-readable reason per requirement.
func (s *EligibilityService) evaluateRequirements(ctx context.Context, walletAddress string, opp models.Opportunity, sig models.WalletSignals) []requirementCheck {
	reqs := opp.Requirements
	var checks []requirementCheck

	if reqs.MinWalletAgeDays > 0 {
		if sig.WalletAgeDays >= reqs.MinWalletAgeDays {
			checks = append(checks, requirementCheck{true,
				fmt.Sprintf("wallet age %d days meets required %d days", sig.WalletAgeDays, reqs.MinWalletAgeDays)})
		} else {
			checks = append(checks, requirementCheck{false,
				fmt.Sprintf("wallet age %d days < required %d days", sig.WalletAgeDays, reqs.MinWalletAgeDays)})
		}
	}

	if reqs.MinTransactionCount > 0 {
		if sig.TransactionCount >= reqs.MinTransactionCount {
			checks = append(checks, requirementCheck{true,
				fmt.Sprintf("%d transactions meets required %d", sig.TransactionCount, reqs.MinTransactionCount)})
		} else {
			checks = append(checks, requirementCheck{false,
				fmt.Sprintf("%d transactions < required %d", sig.TransactionCount, reqs.MinTransactionCount)})
		}
	}

	if len(reqs.Chains) > 0 {
		if sig.HasAnyChain(reqs.Chains) {
			checks = append(checks, requirementCheck{true,
				fmt.Sprintf("wallet active on an accepted chain (%s)", strings.Join(reqs.Chains, ", "))})
		} else {
			checks = append(checks, requirementCheck{false,
				fmt.Sprintf("no activity on any accepted chain (%s)", strings.Join(reqs.Chains, ", "))})
		}
	}

	// Additional keyed conditions cannot be verified from wallet signals;
	// they count as unsatisfied so the score stays conservative.
	for k, v := range reqs.Extra {
		checks = append(checks, requirementCheck{false,
			fmt.Sprintf("requirement %s=%s not verifiable from wallet activity", k, v)})
	}

	if opp.SnapshotDate != nil {
		checks = append(checks, s.snapshotCheck(ctx, walletAddress, opp, sig))
	}

	return checks
}

// snapshotCheck consults the historical eligibility cache for opportunities
// fixed to a past snapshot date. The wallet qualifies if any acceptable
// chain shows recorded activity as of the snapshot.
func (s *EligibilityService) snapshotCheck(ctx context.Context, walletAddress string, opp models.Opportunity, sig models.WalletSignals) requirementCheck {
	date := opp.SnapshotDate.Format("2006-01-02")
	if s.historical == nil {
		return requirementCheck{false, fmt.Sprintf("snapshot activity for %s unavailable", date)}
	}

	chains := opp.Requirements.Chains
	if len(chains) == 0 {
		chains = sig.ActiveChains
	}
	for _, chain := range chains {
		verdict, err := s.historical.Verdict(ctx, walletAddress, *opp.SnapshotDate, chain)
		if err != nil {
			log.Printf("[ELIGIBILITY] snapshot verdict failed for %s on %s: %v", walletAddress, chain, err)
			continue
		}
		if verdict.Eligible {
			return requirementCheck{true,
				fmt.Sprintf("recorded activity on %s as of snapshot %s", strings.ToLower(chain), date)}
		}
	}
	return requirementCheck{false, fmt.Sprintf("no recorded activity as of snapshot %s", date)}
}

func (s *EligibilityService) statusFor(score float64) models.EligibilityStatus {
	switch {
	case score >= s.likelyThreshold:
		return models.EligibilityLikely
	case score >= s.maybeThreshold:
		return models.EligibilityMaybe
	default:
		return models.EligibilityUnlikely
	}
}
