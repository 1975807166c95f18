// services/wallet_signal_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"opportunity-feed-system/config"
	"opportunity-feed-system/models"
)

// WalletSignalProvider is the external RPC-backed service returning a
// wallet's on-chain signals. It may fail or time out; that is a normal
// outcome for callers, not an error to propagate.
type WalletSignalProvider interface {
	FetchSignals(ctx context.Context, walletAddress string) (models.WalletSignals, error)
}

// WalletSignalService wraps the provider behind a TTL cache. On provider
// failure with no cached entry it reports signals unavailable instead of
// raising — the eligibility engine turns that into an indeterminate verdict.
type WalletSignalService struct {
	provider WalletSignalProvider
	cache    *CacheService[models.WalletSignals]
	timeout  time.Duration
}

func NewWalletSignalService(provider WalletSignalProvider, cfg *config.Config) *WalletSignalService {
	return &WalletSignalService{
		provider: provider,
		cache:    NewCacheService[models.WalletSignals](cfg.WalletSignals.TTL),
		timeout:  cfg.WalletSignals.Timeout,
	}
}

// GetSignals returns the wallet's signals and true, or a zero value and
// false when signals are unavailable. A stale cached value is preferred over
// unavailability when the provider fails.
func (s *WalletSignalService) GetSignals(ctx context.Context, walletAddress string) (models.WalletSignals, bool) {
	key := strings.ToLower(strings.TrimSpace(walletAddress))
	if key == "" {
		return models.WalletSignals{}, false
	}

	sig, degraded, err := s.cache.Get(ctx, key, func(ctx context.Context) (models.WalletSignals, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.provider.FetchSignals(ctx, key)
	})
	if err != nil {
		log.Printf("[SIGNALS] provider failed for %s with no cached entry: %v", key, err)
		return models.WalletSignals{}, false
	}
	if degraded {
		log.Printf("[SIGNALS] serving stale signals for %s after provider failure", key)
	}
	return sig, true
}

// HTTPWalletSignalProvider calls the wallet-signal service over HTTP.
type HTTPWalletSignalProvider struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewHTTPWalletSignalProvider(baseURL, token string, timeout time.Duration) *HTTPWalletSignalProvider {
	return &HTTPWalletSignalProvider{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPWalletSignalProvider) FetchSignals(ctx context.Context, walletAddress string) (models.WalletSignals, error) {
	var signals models.WalletSignals

	u := fmt.Sprintf("%s/api/v1/wallets/%s/signals", c.BaseURL, walletAddress)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return signals, fmt.Errorf("failed to create signals request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return signals, fmt.Errorf("failed to call signal provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return signals, fmt.Errorf("signal provider returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&signals); err != nil {
		return signals, fmt.Errorf("failed to decode signal provider response: %w", err)
	}
	return signals, nil
}
