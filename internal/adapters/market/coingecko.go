package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nate-bot/internal/domain"
	"nate-bot/internal/infra/metrics"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// CoinGecko отдаёт рыночный срез для маркет-аналитических постов.
// Ключ не требуется: используются публичные эндпоинты trending и global.
type CoinGecko struct {
	http    *http.Client
	baseURL string
}

// NewCoinGecko создаёт клиента.
func NewCoinGecko(baseURL string, timeout time.Duration) *CoinGecko {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGecko{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var _ domain.MarketData = (*CoinGecko)(nil)

type trendingResponse struct {
	Coins []struct {
		Item struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"item"`
	} `json:"coins"`
}

type globalResponse struct {
	Data struct {
		TotalMarketCap      map[string]float64 `json:"total_market_cap"`
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

// Snapshot собирает трендовые монеты и глобальные показатели рынка.
func (c *CoinGecko) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	var trending trendingResponse
	if err := c.doGet(ctx, "/search/trending", &trending); err != nil {
		return domain.MarketSnapshot{}, err
	}
	var global globalResponse
	if err := c.doGet(ctx, "/global", &global); err != nil {
		return domain.MarketSnapshot{}, err
	}

	snap := domain.MarketSnapshot{FetchedAt: time.Now().UTC()}
	for _, coin := range trending.Coins {
		snap.Trending = append(snap.Trending, fmt.Sprintf("%s (%s)", coin.Item.Name, strings.ToUpper(coin.Item.Symbol)))
	}
	snap.TotalMarketCapUSD = global.Data.TotalMarketCap["usd"]
	snap.BTCDominance = global.Data.MarketCapPercentage["btc"]
	return snap, nil
}

func (c *CoinGecko) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("coingecko: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("coingecko", "get", path, start, err)
		return fmt.Errorf("coingecko: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("coingecko", "get", path, start, err)
		return fmt.Errorf("coingecko: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("coingecko: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("coingecko", "get", path, start, err)
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.ObserveNetworkRequest("coingecko", "get", path, start, err)
		return fmt.Errorf("coingecko: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("coingecko", "get", path, start, nil)
	return nil
}
