// services/feed_service.go
package services

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"opportunity-feed-system/models"
	"opportunity-feed-system/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// FeedService exposes the engine to the gateway: the personalized feed,
// per-user status reads, and claim confirmations.
type FeedService struct {
	Catalog storage.CatalogStore
	Ranking *RankingService
	Status  *StatusService
	Sources *SourceCacheService
}

func NewFeedService(catalog storage.CatalogStore, ranking *RankingService, status *StatusService, sources *SourceCacheService) *FeedService {
	return &FeedService{Catalog: catalog, Ranking: ranking, Status: status, Sources: sources}
}

// GetFeed returns the ranked opportunity feed. With a wallet query param the
// order is personalized; without one it is the pure quality/recency order
// and carries no eligibility fields.
func (s *FeedService) GetFeed(c *fiber.Ctx) error {
	wallet := strings.ToLower(strings.TrimSpace(c.Query("wallet")))
	category := strings.ToLower(c.Query("category"))

	pageSize := defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page_size parameter"})
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		pageSize = n
	}

	filter := storage.CatalogFilter{}
	if category != "" && category != "all" {
		filter.Type = models.OpportunityType(category)
	}
	candidates, err := s.Catalog.List(c.UserContext(), filter)
	if err != nil {
		log.Printf("DB Error listing opportunities: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load opportunities"})
	}

	results, degraded := s.Ranking.Rank(c.UserContext(), wallet, candidates, pageSize)
	if s.Sources != nil {
		degraded = s.annotateRewardUSD(c, results) || degraded
	}

	// A signed-in user viewing their personalized feed refreshes the
	// informational claim statuses.
	if userID, _ := c.Locals("user_id").(string); userID != "" && wallet != "" {
		for _, r := range results {
			if r.Eligibility == nil {
				continue
			}
			if err := s.Status.RefreshFromEligibility(c.UserContext(), userID, *r.Eligibility); err != nil {
				log.Printf("Failed to refresh status for user=%s opp=%s: %v", userID, r.Opportunity.ID, err)
			}
		}
	}

	return c.JSON(fiber.Map{
		"results":  results,
		"count":    len(results),
		"degraded": degraded,
	})
}

// annotateRewardUSD decorates results with a USD estimate via the
// 60-minute price cache; a price source failure degrades the response, it
// never fails it. Returns whether annotation was degraded.
func (s *FeedService) annotateRewardUSD(c *fiber.Ctx, results []models.RankingResult) bool {
	symbolSet := make(map[string]struct{})
	for _, r := range results {
		if r.Opportunity.RewardToken != "" && r.Opportunity.RewardAmount > 0 {
			symbolSet[strings.ToUpper(r.Opportunity.RewardToken)] = struct{}{}
		}
	}
	if len(symbolSet) == 0 {
		return false
	}
	symbols := make([]string, 0, len(symbolSet))
	for sym := range symbolSet {
		symbols = append(symbols, sym)
	}

	prices, stale, err := s.Sources.TokenPricesUSD(c.UserContext(), symbols)
	if err != nil {
		log.Printf("[FEED] price annotation unavailable: %v", err)
		return true
	}
	for i := range results {
		o := results[i].Opportunity
		if price, ok := prices[strings.ToUpper(o.RewardToken)]; ok && o.RewardAmount > 0 {
			usd := price * o.RewardAmount
			results[i].RewardUSD = &usd
		}
	}
	return stale
}

// GetSpotlight proxies the externally curated spotlight catalog, served
// from the 10-minute source cache; on source failure a stale payload is
// returned with degraded set.
func (s *FeedService) GetSpotlight(c *fiber.Ctx) error {
	params := map[string]string{"limit": "10"}
	if category := strings.ToLower(c.Query("category")); category != "" {
		params["category"] = category
	}

	raw, degraded, err := s.Sources.FetchCatalog(c.UserContext(), params)
	if err != nil {
		log.Printf("[FEED] spotlight source unavailable with no cache: %v", err)
		return c.JSON(fiber.Map{"results": []any{}, "degraded": true})
	}

	c.Set("Content-Type", "application/json")
	if degraded {
		c.Set("X-Degraded", "true")
	}
	return c.Send(raw)
}

// GetOpportunityStatus returns the authenticated user's claim status for an
// opportunity, 404 when no record exists yet.
func (s *FeedService) GetOpportunityStatus(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	opportunityID := c.Params("id")
	if _, err := uuid.Parse(opportunityID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid opportunity ID"})
	}
	wallet := strings.ToLower(strings.TrimSpace(c.Query("wallet")))
	if wallet == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "wallet query parameter is required"})
	}

	st, err := s.Status.GetStatus(c.UserContext(), userID, wallet, opportunityID)
	if err != nil {
		log.Printf("DB Error fetching status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch status"})
	}
	if st == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No status recorded for this opportunity"})
	}
	return c.JSON(st)
}

// ClaimOpportunity records an external claim confirmation for the
// authenticated user. Idempotent on repeated identical calls.
func (s *FeedService) ClaimOpportunity(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	opportunityID := c.Params("id")
	if _, err := uuid.Parse(opportunityID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid opportunity ID"})
	}

	var req struct {
		WalletAddress string     `json:"wallet_address"`
		ClaimAmount   *float64   `json:"claim_amount"`
		ClaimedAt     *time.Time `json:"claimed_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "wallet_address is required"})
	}

	opp, err := s.Catalog.Get(c.UserContext(), opportunityID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if opp == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Opportunity not found"})
	}

	claimedAt := time.Now()
	if req.ClaimedAt != nil {
		claimedAt = *req.ClaimedAt
	}

	st, err := s.Status.RecordClaim(c.UserContext(), userID, req.WalletAddress, opportunityID, req.ClaimAmount, claimedAt)
	if err != nil {
		if errors.Is(err, ErrClaimConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Opportunity already claimed with different details"})
		}
		log.Printf("DB Error recording claim: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record claim"})
	}
	return c.JSON(fiber.Map{"message": "Claim recorded", "status": st})
}
