// services/historical_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"opportunity-feed-system/config"
	"opportunity-feed-system/models"
	"opportunity-feed-system/storage"
	"opportunity-feed-system/utils"
)

// SnapshotIndex is the activity index for one (chain, snapshot date): the
// set of wallets with recorded activity as of that date. Complete marks the
// index manifest as confirmed-final; verdicts computed from a complete index
// are authoritative.
type SnapshotIndex struct {
	Complete bool
	wallets  map[string]struct{}
}

func (i SnapshotIndex) Contains(walletAddress string) bool {
	_, ok := i.wallets[strings.ToLower(walletAddress)]
	return ok
}

// SnapshotIndexSource fetches the activity index for a chain and date.
type SnapshotIndexSource interface {
	FetchIndex(ctx context.Context, chain string, snapshotDate time.Time) (SnapshotIndex, error)
}

// HistoricalEligibilityService answers time-locked (claim-window)
// eligibility for opportunities with a fixed past snapshot date. Verdicts
// are cached for 7 days; a verdict computed from a complete index is
// confirmed and served regardless of age, since its inputs can no longer
// change.
type HistoricalEligibilityService struct {
	store  storage.HistoricalStore
	source SnapshotIndexSource
	ttl    time.Duration
	now    func() time.Time
	flight singleflight.Group
}

func NewHistoricalEligibilityService(store storage.HistoricalStore, source SnapshotIndexSource, cfg *config.Config) *HistoricalEligibilityService {
	return &HistoricalEligibilityService{
		store:  store,
		source: source,
		ttl:    cfg.Historical.TTL,
		now:    time.Now,
	}
}

// Verdict returns the snapshot eligibility record for
// (wallet, snapshotDate, chain), recomputing on staleness. On index fetch
// failure a stale record, if any, is served. Concurrent misses for the same
// identity coalesce into one index fetch.
func (s *HistoricalEligibilityService) Verdict(ctx context.Context, walletAddress string, snapshotDate time.Time, chain string) (models.HistoricalEligibilityRecord, error) {
	walletAddress = strings.ToLower(walletAddress)
	chain = strings.ToLower(chain)
	snapshotDate = snapshotDate.UTC().Truncate(24 * time.Hour)

	if rec := s.servable(ctx, walletAddress, snapshotDate, chain); rec != nil {
		return *rec, nil
	}

	key := walletAddress + "/" + snapshotDate.Format("2006-01-02") + "/" + chain
	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		if rec := s.servable(ctx, walletAddress, snapshotDate, chain); rec != nil {
			return *rec, nil
		}

		idx, err := s.source.FetchIndex(ctx, chain, snapshotDate)
		if err != nil {
			stale, gerr := s.store.Get(ctx, walletAddress, snapshotDate, chain)
			if gerr == nil && stale != nil {
				log.Printf("[HISTORICAL] serving stale verdict for %s/%s after index fetch failure: %v", walletAddress, chain, err)
				return *stale, nil
			}
			return nil, fmt.Errorf("snapshot index unavailable for %s@%s: %w", chain, snapshotDate.Format("2006-01-02"), err)
		}

		out := models.HistoricalEligibilityRecord{
			WalletAddress: walletAddress,
			SnapshotDate:  snapshotDate,
			Chain:         chain,
			Eligible:      idx.Contains(walletAddress),
			Confirmed:     idx.Complete,
			ComputedAt:    s.now(),
		}
		if err := s.store.Upsert(ctx, &out); err != nil {
			log.Printf("[HISTORICAL] failed to cache verdict for %s/%s: %v", walletAddress, chain, err)
		}
		return out, nil
	})
	if err != nil {
		return models.HistoricalEligibilityRecord{}, err
	}
	return v.(models.HistoricalEligibilityRecord), nil
}

// servable returns the stored record when it may be served without a
// recompute: confirmed records always, unconfirmed ones while fresh.
func (s *HistoricalEligibilityService) servable(ctx context.Context, walletAddress string, snapshotDate time.Time, chain string) *models.HistoricalEligibilityRecord {
	rec, err := s.store.Get(ctx, walletAddress, snapshotDate, chain)
	if err != nil {
		log.Printf("[HISTORICAL] store read failed, treating as miss: %v", err)
		return nil
	}
	if rec != nil && (rec.Confirmed || s.now().Sub(rec.ComputedAt) < s.ttl) {
		return rec
	}
	return nil
}

// R2SnapshotSource reads snapshot activity index objects from R2, one per
// (chain, snapshot date): snapshots/<chain>/<yyyy-mm-dd>.json.
type R2SnapshotSource struct{}

func NewR2SnapshotSource() *R2SnapshotSource {
	return &R2SnapshotSource{}
}

func (r *R2SnapshotSource) FetchIndex(ctx context.Context, chain string, snapshotDate time.Time) (SnapshotIndex, error) {
	key := fmt.Sprintf("snapshots/%s/%s.json", chain, snapshotDate.Format("2006-01-02"))
	raw, err := utils.GetSnapshotObject(ctx, key)
	if err != nil {
		return SnapshotIndex{}, err
	}

	var payload struct {
		Complete bool     `json:"complete"`
		Wallets  []string `json:"wallets"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return SnapshotIndex{}, fmt.Errorf("failed to decode snapshot index %s: %w", key, err)
	}

	idx := SnapshotIndex{Complete: payload.Complete, wallets: make(map[string]struct{}, len(payload.Wallets))}
	for _, w := range payload.Wallets {
		idx.wallets[strings.ToLower(w)] = struct{}{}
	}
	return idx, nil
}

// NewSnapshotIndex builds an index in memory; tests and fixtures use it.
func NewSnapshotIndex(complete bool, wallets ...string) SnapshotIndex {
	idx := SnapshotIndex{Complete: complete, wallets: make(map[string]struct{}, len(wallets))}
	for _, w := range wallets {
		idx.wallets[strings.ToLower(w)] = struct{}{}
	}
	return idx
}
