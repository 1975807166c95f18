package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries the engine tunables. Defaults match the shipped behavior;
// every threshold and window the product team may still revisit is exposed
// through the environment rather than hard-coded.
type Config struct {
	Server struct {
		Address string
	}
	Sources struct {
		CatalogTTL   time.Duration
		PriceTTL     time.Duration
		FetchTimeout time.Duration
	}
	WalletSignals struct {
		TTL     time.Duration
		Timeout time.Duration
	}
	Eligibility struct {
		TTL             time.Duration
		LikelyThreshold float64
		MaybeThreshold  float64
	}
	Historical struct {
		TTL time.Duration
	}
	Preselect struct {
		RecencyWindowDays float64
		TrustWeight       float64
		RecencyWeight     float64
		WindowSize        int
		EvalSize          int
	}
	Ranking struct {
		EligibilityWeight float64
		HybridWeight      float64
	}
	TrustSync struct {
		Interval time.Duration
	}
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_ADDRESS", ":5300")

	v.SetDefault("SOURCE_CATALOG_TTL", "10m")
	v.SetDefault("SOURCE_PRICE_TTL", "60m")
	v.SetDefault("SOURCE_FETCH_TIMEOUT", "10s")

	v.SetDefault("WALLET_SIGNALS_TTL", "60m")
	v.SetDefault("WALLET_SIGNALS_TIMEOUT", "10s")

	v.SetDefault("ELIGIBILITY_TTL", "24h")
	v.SetDefault("ELIGIBILITY_LIKELY_THRESHOLD", 0.66)
	v.SetDefault("ELIGIBILITY_MAYBE_THRESHOLD", 0.33)

	v.SetDefault("HISTORICAL_TTL", "168h")

	v.SetDefault("PRESELECT_RECENCY_WINDOW_DAYS", 30.0)
	v.SetDefault("PRESELECT_TRUST_WEIGHT", 0.7)
	v.SetDefault("PRESELECT_RECENCY_WEIGHT", 0.3)
	v.SetDefault("PRESELECT_WINDOW_SIZE", 100)
	v.SetDefault("PRESELECT_EVAL_SIZE", 50)

	v.SetDefault("RANKING_ELIGIBILITY_WEIGHT", 0.6)
	v.SetDefault("RANKING_HYBRID_WEIGHT", 0.4)

	v.SetDefault("TRUST_SYNC_INTERVAL", "5m")

	cfg := &Config{}
	cfg.Server.Address = v.GetString("SERVER_ADDRESS")

	cfg.Sources.CatalogTTL = v.GetDuration("SOURCE_CATALOG_TTL")
	cfg.Sources.PriceTTL = v.GetDuration("SOURCE_PRICE_TTL")
	cfg.Sources.FetchTimeout = v.GetDuration("SOURCE_FETCH_TIMEOUT")

	cfg.WalletSignals.TTL = v.GetDuration("WALLET_SIGNALS_TTL")
	cfg.WalletSignals.Timeout = v.GetDuration("WALLET_SIGNALS_TIMEOUT")

	cfg.Eligibility.TTL = v.GetDuration("ELIGIBILITY_TTL")
	cfg.Eligibility.LikelyThreshold = v.GetFloat64("ELIGIBILITY_LIKELY_THRESHOLD")
	cfg.Eligibility.MaybeThreshold = v.GetFloat64("ELIGIBILITY_MAYBE_THRESHOLD")

	cfg.Historical.TTL = v.GetDuration("HISTORICAL_TTL")

	cfg.Preselect.RecencyWindowDays = v.GetFloat64("PRESELECT_RECENCY_WINDOW_DAYS")
	cfg.Preselect.TrustWeight = v.GetFloat64("PRESELECT_TRUST_WEIGHT")
	cfg.Preselect.RecencyWeight = v.GetFloat64("PRESELECT_RECENCY_WEIGHT")
	cfg.Preselect.WindowSize = v.GetInt("PRESELECT_WINDOW_SIZE")
	cfg.Preselect.EvalSize = v.GetInt("PRESELECT_EVAL_SIZE")

	cfg.Ranking.EligibilityWeight = v.GetFloat64("RANKING_ELIGIBILITY_WEIGHT")
	cfg.Ranking.HybridWeight = v.GetFloat64("RANKING_HYBRID_WEIGHT")

	cfg.TrustSync.Interval = v.GetDuration("TRUST_SYNC_INTERVAL")

	if cfg.Eligibility.MaybeThreshold < 0 || cfg.Eligibility.LikelyThreshold > 1 ||
		cfg.Eligibility.MaybeThreshold >= cfg.Eligibility.LikelyThreshold {
		return nil, fmt.Errorf("eligibility thresholds must satisfy 0 <= maybe < likely <= 1")
	}
	if cfg.Preselect.RecencyWindowDays <= 0 {
		return nil, fmt.Errorf("PRESELECT_RECENCY_WINDOW_DAYS must be > 0")
	}
	if cfg.Preselect.WindowSize < 1 || cfg.Preselect.EvalSize < 1 {
		return nil, fmt.Errorf("preselection window and eval sizes must be >= 1")
	}
	if cfg.Preselect.EvalSize > cfg.Preselect.WindowSize {
		return nil, fmt.Errorf("PRESELECT_EVAL_SIZE must not exceed PRESELECT_WINDOW_SIZE")
	}
	// Weight sums above 1 would let composed scores escape [0,1].
	if cfg.Preselect.TrustWeight < 0 || cfg.Preselect.RecencyWeight < 0 ||
		cfg.Preselect.TrustWeight+cfg.Preselect.RecencyWeight > 1 {
		return nil, fmt.Errorf("preselection weights must be non-negative and sum to at most 1")
	}
	if cfg.Ranking.EligibilityWeight < 0 || cfg.Ranking.HybridWeight < 0 ||
		cfg.Ranking.EligibilityWeight+cfg.Ranking.HybridWeight == 0 ||
		cfg.Ranking.EligibilityWeight+cfg.Ranking.HybridWeight > 1 {
		return nil, fmt.Errorf("ranking weights must be non-negative, not both zero, and sum to at most 1")
	}

	return cfg, nil
}

// Default returns the shipped configuration without consulting the
// environment. Tests use it as a baseline to override.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Address = ":5300"
	cfg.Sources.CatalogTTL = 10 * time.Minute
	cfg.Sources.PriceTTL = 60 * time.Minute
	cfg.Sources.FetchTimeout = 10 * time.Second
	cfg.WalletSignals.TTL = 60 * time.Minute
	cfg.WalletSignals.Timeout = 10 * time.Second
	cfg.Eligibility.TTL = 24 * time.Hour
	cfg.Eligibility.LikelyThreshold = 0.66
	cfg.Eligibility.MaybeThreshold = 0.33
	cfg.Historical.TTL = 7 * 24 * time.Hour
	cfg.Preselect.RecencyWindowDays = 30
	cfg.Preselect.TrustWeight = 0.7
	cfg.Preselect.RecencyWeight = 0.3
	cfg.Preselect.WindowSize = 100
	cfg.Preselect.EvalSize = 50
	cfg.Ranking.EligibilityWeight = 0.6
	cfg.Ranking.HybridWeight = 0.4
	cfg.TrustSync.Interval = 5 * time.Minute
	return cfg
}
