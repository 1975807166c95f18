// services/source_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"opportunity-feed-system/config"
)

// SourceFetcher fetches raw data from an external catalog or price source.
// Failures and timeouts are expected; callers fall back to stale cache.
type SourceFetcher interface {
	Fetch(ctx context.Context, params map[string]string) ([]byte, error)
}

// SourceCacheService guards the two external sources behind fixed TTL-cache
// configurations: 10 minutes for the spotlight catalog source, 60 minutes
// for the token price source. Distinct fetch parameterizations are distinct
// cache keys.
type SourceCacheService struct {
	catalogFetcher SourceFetcher
	priceFetcher   SourceFetcher

	catalogCache *CacheService[[]byte]
	priceCache   *CacheService[map[string]float64]

	fetchTimeout time.Duration
}

func NewSourceCacheService(catalogFetcher, priceFetcher SourceFetcher, cfg *config.Config) *SourceCacheService {
	return &SourceCacheService{
		catalogFetcher: catalogFetcher,
		priceFetcher:   priceFetcher,
		catalogCache:   NewCacheService[[]byte](cfg.Sources.CatalogTTL),
		priceCache:     NewCacheService[map[string]float64](cfg.Sources.PriceTTL),
		fetchTimeout:   cfg.Sources.FetchTimeout,
	}
}

// FetchCatalog returns the raw spotlight catalog payload for params,
// served from the 10-minute cache when fresh.
func (s *SourceCacheService) FetchCatalog(ctx context.Context, params map[string]string) ([]byte, bool, error) {
	return s.catalogCache.Get(ctx, sourceKey(params), func(ctx context.Context) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
		return s.catalogFetcher.Fetch(ctx, params)
	})
}

// TokenPricesUSD returns USD prices for the given token symbols, served from
// the 60-minute cache when fresh. The symbol set is one parameterization: a
// different set is a different cache key.
func (s *SourceCacheService) TokenPricesUSD(ctx context.Context, symbols []string) (map[string]float64, bool, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, false, nil
	}
	norm := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			norm = append(norm, sym)
		}
	}
	sort.Strings(norm)

	params := map[string]string{"symbols": strings.Join(norm, ",")}
	return s.priceCache.Get(ctx, sourceKey(params), func(ctx context.Context) (map[string]float64, error) {
		ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
		raw, err := s.priceFetcher.Fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		var payload struct {
			Prices map[string]float64 `json:"prices"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode price source response: %w", err)
		}
		return payload.Prices, nil
	})
}

// sourceKey builds a deterministic cache key from a fetch parameterization.
func sourceKey(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "&")
}

// HTTPSourceFetcher is the production SourceFetcher: a GET against an
// external JSON API with the gateway service token attached.
type HTTPSourceFetcher struct {
	BaseURL    string
	Path       string
	Token      string
	HTTPClient *http.Client
}

func NewHTTPSourceFetcher(baseURL, path, token string, timeout time.Duration) *HTTPSourceFetcher {
	return &HTTPSourceFetcher{
		BaseURL:    baseURL,
		Path:       path,
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPSourceFetcher) Fetch(ctx context.Context, params map[string]string) ([]byte, error) {
	u, err := url.Parse(f.BaseURL + f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source URL: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create source request: %w", err)
	}
	if f.Token != "" {
		req.Header.Set("X-Service-Token", f.Token)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SOURCE] %s returned status %d: %s", u.Host, resp.StatusCode, string(body))
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
