package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opportunity-feed-system/config"
)

type fakeFetcher struct {
	payload []byte
	err     error
	calls   int
	params  []map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, params map[string]string) ([]byte, error) {
	f.calls++
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func TestFetchCatalog_CachedPerParameterization(t *testing.T) {
	catalog := &fakeFetcher{payload: []byte(`{"items":[]}`)}
	svc := NewSourceCacheService(catalog, &fakeFetcher{}, config.Default())
	ctx := context.Background()

	raw, degraded, err := svc.FetchCatalog(ctx, map[string]string{"category": "airdrop"})
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.JSONEq(t, `{"items":[]}`, string(raw))

	_, _, err = svc.FetchCatalog(ctx, map[string]string{"category": "airdrop"})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.calls, "same parameterization must be served from cache")

	_, _, err = svc.FetchCatalog(ctx, map[string]string{"category": "quest"})
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.calls, "different parameterization is a different cache key")
}

func TestTokenPricesUSD_NormalizesSymbolSet(t *testing.T) {
	prices := &fakeFetcher{payload: []byte(`{"prices":{"ARB":1.2,"OP":2.4}}`)}
	svc := NewSourceCacheService(&fakeFetcher{}, prices, config.Default())
	ctx := context.Background()

	got, degraded, err := svc.TokenPricesUSD(ctx, []string{"arb", " OP "})
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, map[string]float64{"ARB": 1.2, "OP": 2.4}, got)

	// Order and casing must not change the cache key.
	_, _, err = svc.TokenPricesUSD(ctx, []string{"OP", "ARB"})
	require.NoError(t, err)
	assert.Equal(t, 1, prices.calls)
	assert.Equal(t, "ARB,OP", prices.params[0]["symbols"])
}

func TestTokenPricesUSD_EmptySymbolSet(t *testing.T) {
	prices := &fakeFetcher{}
	svc := NewSourceCacheService(&fakeFetcher{}, prices, config.Default())

	got, degraded, err := svc.TokenPricesUSD(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, degraded)
	assert.Zero(t, prices.calls)
}

func TestTokenPricesUSD_MalformedPayload(t *testing.T) {
	prices := &fakeFetcher{payload: []byte(`not json`)}
	svc := NewSourceCacheService(&fakeFetcher{}, prices, config.Default())

	_, _, err := svc.TokenPricesUSD(context.Background(), []string{"ARB"})
	assert.Error(t, err)
}

func TestFetchCatalog_ErrorWithoutCachePropagates(t *testing.T) {
	catalog := &fakeFetcher{err: errors.New("upstream down")}
	svc := NewSourceCacheService(catalog, &fakeFetcher{}, config.Default())

	_, _, err := svc.FetchCatalog(context.Background(), nil)
	assert.Error(t, err)
}

func TestSourceKeyDeterministic(t *testing.T) {
	a := sourceKey(map[string]string{"b": "2", "a": "1"})
	b := sourceKey(map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, "a=1&b=2", a)
	assert.Equal(t, a, b)
}
