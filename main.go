package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"opportunity-feed-system/config"
	"opportunity-feed-system/handlers"
	"opportunity-feed-system/middleware"
	"opportunity-feed-system/models"
	"opportunity-feed-system/services"
	"opportunity-feed-system/storage"
	"opportunity-feed-system/utils"
	"opportunity-feed-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	app := fiber.New()

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Opportunity{},
		&models.EligibilityRecord{},
		&models.HistoricalEligibilityRecord{},
		&models.UserOpportunityStatus{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- External collaborators ---
	signalsURL := os.Getenv("WALLET_SIGNALS_URL")
	if signalsURL == "" {
		log.Fatal("WALLET_SIGNALS_URL environment variable not set")
	}
	serviceToken := os.Getenv("FEED_SERVICE_TOKEN")

	signalProvider := services.NewHTTPWalletSignalProvider(signalsURL, serviceToken, cfg.WalletSignals.Timeout)
	catalogFetcher := services.NewHTTPSourceFetcher(os.Getenv("SPOTLIGHT_SOURCE_URL"), "/api/v1/public/spotlight", serviceToken, cfg.Sources.FetchTimeout)
	priceFetcher := services.NewHTTPSourceFetcher(os.Getenv("PRICE_SOURCE_URL"), "/api/v1/public/prices", serviceToken, cfg.Sources.FetchTimeout)

	// --- Stores ---
	catalogStore := storage.NewGormCatalogStore(db)
	eligibilityStore := storage.NewGormEligibilityStore(db)
	historicalStore := storage.NewGormHistoricalStore(db)
	statusStore := storage.NewGormStatusStore(db)

	// --- Engine services ---
	sourceCache := services.NewSourceCacheService(catalogFetcher, priceFetcher, cfg)
	walletSignals := services.NewWalletSignalService(signalProvider, cfg)

	var historical *services.HistoricalEligibilityService
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 not configured, historical snapshot eligibility disabled: %v", err)
	} else {
		historical = services.NewHistoricalEligibilityService(historicalStore, services.NewR2SnapshotSource(), cfg)
	}

	eligibility := services.NewEligibilityService(eligibilityStore, walletSignals, historical, cfg)
	preselector := services.NewPreselector(cfg)
	ranking := services.NewRankingService(preselector, eligibility, cfg)
	status := services.NewStatusService(statusStore, catalogStore)
	feed := services.NewFeedService(catalogStore, ranking, status, sourceCache)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Trust-score polling (external trust-scoring process owns the score) ---
	trustClient := workers.NewTrustScoreClient(db)
	go workers.PollTrustScores(ctx, trustClient, cfg.TrustSync.Interval)

	status.StartSweepScheduler()

	handlers.SetupFeedRoutes(app, feed)
	handlers.SetupStatusRoutes(app, feed)

	go func() {
		if err := app.Listen(cfg.Server.Address); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.Server.Address)
	log.Println("✅ Trust-score polling running")
	log.Println("✅ Expiry sweep scheduled (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
