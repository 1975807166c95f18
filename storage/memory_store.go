// storage/memory_store.go
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"opportunity-feed-system/models"
)

// In-memory store implementations. Unit tests run against these; they honor
// the same identity-keyed upsert semantics as the Postgres stores.

type MemoryCatalogStore struct {
	mu   sync.RWMutex
	opps map[string]models.Opportunity
}

func NewMemoryCatalogStore() *MemoryCatalogStore {
	return &MemoryCatalogStore{opps: make(map[string]models.Opportunity)}
}

func (s *MemoryCatalogStore) Put(o models.Opportunity) {
	s.mu.Lock()
	s.opps[o.ID] = o
	s.mu.Unlock()
}

func (s *MemoryCatalogStore) List(ctx context.Context, filter CatalogFilter) ([]models.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Opportunity, 0, len(s.opps))
	for _, o := range s.opps {
		if filter.Type != "" && o.Type != filter.Type {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryCatalogStore) Get(ctx context.Context, id string) (*models.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.opps[id]; ok {
		cp := o
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryCatalogStore) ListByIDs(ctx context.Context, ids []string) ([]models.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Opportunity, 0, len(ids))
	for _, id := range ids {
		if o, ok := s.opps[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

type eligibilityKey struct {
	wallet string
	opp    string
}

type MemoryEligibilityStore struct {
	mu   sync.RWMutex
	recs map[eligibilityKey]models.EligibilityRecord
}

func NewMemoryEligibilityStore() *MemoryEligibilityStore {
	return &MemoryEligibilityStore{recs: make(map[eligibilityKey]models.EligibilityRecord)}
}

func (s *MemoryEligibilityStore) Get(ctx context.Context, walletAddress, opportunityID string) (*models.EligibilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.recs[eligibilityKey{walletAddress, opportunityID}]; ok {
		cp := r
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryEligibilityStore) Upsert(ctx context.Context, rec *models.EligibilityRecord) error {
	s.mu.Lock()
	s.recs[eligibilityKey{rec.WalletAddress, rec.OpportunityID}] = *rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryEligibilityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

type historicalKey struct {
	wallet   string
	snapshot time.Time
	chain    string
}

type MemoryHistoricalStore struct {
	mu   sync.RWMutex
	recs map[historicalKey]models.HistoricalEligibilityRecord
}

func NewMemoryHistoricalStore() *MemoryHistoricalStore {
	return &MemoryHistoricalStore{recs: make(map[historicalKey]models.HistoricalEligibilityRecord)}
}

func (s *MemoryHistoricalStore) Get(ctx context.Context, walletAddress string, snapshotDate time.Time, chain string) (*models.HistoricalEligibilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.recs[historicalKey{walletAddress, snapshotDate.UTC(), chain}]; ok {
		cp := r
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryHistoricalStore) Upsert(ctx context.Context, rec *models.HistoricalEligibilityRecord) error {
	s.mu.Lock()
	s.recs[historicalKey{rec.WalletAddress, rec.SnapshotDate.UTC(), rec.Chain}] = *rec
	s.mu.Unlock()
	return nil
}

type statusKey struct {
	user   string
	wallet string
	opp    string
}

type MemoryStatusStore struct {
	mu   sync.RWMutex
	recs map[statusKey]models.UserOpportunityStatus
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{recs: make(map[statusKey]models.UserOpportunityStatus)}
}

func (s *MemoryStatusStore) Get(ctx context.Context, userID, walletAddress, opportunityID string) (*models.UserOpportunityStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.recs[statusKey{userID, walletAddress, opportunityID}]; ok {
		cp := r
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStatusStore) Save(ctx context.Context, st *models.UserOpportunityStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	s.recs[statusKey{st.UserID, st.WalletAddress, st.OpportunityID}] = *st
	return nil
}

func (s *MemoryStatusStore) ListNonTerminal(ctx context.Context) ([]models.UserOpportunityStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.UserOpportunityStatus
	for _, r := range s.recs {
		if !r.Status.Terminal() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
