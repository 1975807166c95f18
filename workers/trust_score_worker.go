package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"opportunity-feed-system/models"
	"opportunity-feed-system/utils"

	"gorm.io/gorm"
)

// TrustScoreClient polls the external trust-scoring service and writes
// refreshed scores back onto the opportunity rows. Trust score is the only
// column the engine treats as mutable.
type TrustScoreClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

type trustScoreUpdate struct {
	OpportunityID string    `json:"opportunity_id"`
	TrustScore    float64   `json:"trust_score"`
	ScoredAt      time.Time `json:"scored_at"`
}

func NewTrustScoreClient(db *gorm.DB) *TrustScoreClient {
	baseURL := os.Getenv("TRUST_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("TRUST_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("FEED_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("FEED_SERVICE_TOKEN environment variable is required for trust score sync")
	}

	return &TrustScoreClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *TrustScoreClient) GetUpdatedScores(ctx context.Context, since time.Time) ([]trustScoreUpdate, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/trust-scores", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call trust-scoring service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("trust-scoring service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Scores []trustScoreUpdate `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode trust-scoring response: %w", err)
	}

	return response.Scores, nil
}

// PollTrustScores refreshes opportunity trust scores on an interval.
// lastSyncTime only advances on success — a failed window is retried whole
// on the next tick.
func PollTrustScores(ctx context.Context, client *TrustScoreClient, pollInterval time.Duration) {
	log.Println("Starting trust-score polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Trust-score polling stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()

			updates, err := client.GetUpdatedScores(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling trust scores: %v", err)
				continue
			}
			if len(updates) == 0 {
				lastSyncTime = tickTime
				continue
			}

			applied := 0
			failed := false
			for _, u := range updates {
				if u.TrustScore < 0 || u.TrustScore > 100 {
					log.Printf("⚠️ Skipping out-of-range trust score %.2f for %s", u.TrustScore, u.OpportunityID)
					continue
				}
				result := client.DB.Model(&models.Opportunity{}).
					Where("id = ?", u.OpportunityID).
					Update("trust_score", u.TrustScore)
				if result.Error != nil {
					log.Printf("❌ Failed to update trust score for %s: %v", u.OpportunityID, result.Error)
					failed = true
					continue
				}
				if result.RowsAffected > 0 {
					applied++
				}
			}

			if failed {
				// Retry the same window next tick.
				continue
			}
			lastSyncTime = tickTime
			log.Printf("✅ Applied %d trust score update(s).", applied)
		}
	}
}
