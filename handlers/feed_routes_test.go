package handlers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opportunity-feed-system/config"
	"opportunity-feed-system/models"
	"opportunity-feed-system/services"
	"opportunity-feed-system/storage"
)

type stubSignalProvider struct {
	signals models.WalletSignals
}

func (p stubSignalProvider) FetchSignals(ctx context.Context, walletAddress string) (models.WalletSignals, error) {
	return p.signals, nil
}

type feedApp struct {
	app         *fiber.App
	statusStore *storage.MemoryStatusStore
	opportunity models.Opportunity
}

func newFeedApp(t *testing.T) *feedApp {
	t.Helper()
	cfg := config.Default()

	catalog := storage.NewMemoryCatalogStore()
	opp := models.Opportunity{
		ID:           "opp-1",
		Slug:         "genesis-airdrop",
		Title:        "Genesis Airdrop",
		Type:         models.OpportunityTypeAirdrop,
		TrustScore:   90,
		Requirements: models.RequirementSet{MinWalletAgeDays: 30},
		CreatedAt:    time.Now(),
	}
	catalog.Put(opp)

	statusStore := storage.NewMemoryStatusStore()
	signals := services.NewWalletSignalService(stubSignalProvider{models.WalletSignals{WalletAgeDays: 60}}, cfg)
	eligibility := services.NewEligibilityService(storage.NewMemoryEligibilityStore(), signals, nil, cfg)
	ranking := services.NewRankingService(services.NewPreselector(cfg), eligibility, cfg)
	status := services.NewStatusService(statusStore, catalog)
	feed := services.NewFeedService(catalog, ranking, status, nil)

	app := fiber.New()
	SetupFeedRoutes(app, feed)
	return &feedApp{app: app, statusStore: statusStore, opportunity: opp}
}

// A signed-in personalized feed view must create the user's status row as a
// side effect of the first eligibility evaluation.
func TestFeedViewStartsStatusLifecycle(t *testing.T) {
	f := newFeedApp(t)

	req := httptest.NewRequest("GET", "/feed?wallet=0xAbC", nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	st, err := f.statusStore.Get(context.Background(), "user-1", "0xabc", f.opportunity.ID)
	require.NoError(t, err)
	require.NotNil(t, st, "feed view with user context must create the status row")
	assert.Equal(t, models.UserStatusEligible, st.Status)
}

func TestFeedViewAnonymousLeavesNoStatus(t *testing.T) {
	f := newFeedApp(t)

	resp, err := f.app.Test(httptest.NewRequest("GET", "/feed?wallet=0xabc", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	st, err := f.statusStore.Get(context.Background(), "", "0xabc", f.opportunity.ID)
	require.NoError(t, err)
	assert.Nil(t, st)
}
