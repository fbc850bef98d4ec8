package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quantex/marketfeed/internal/domain"
)

// CatalogClient is the REST client for exchange market discovery. Every
// supported exchange exposes its tradable pairs under a single endpoint
// returning a JSON array of markets.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCatalogClient creates a catalog client.
//
// baseURL is the REST API root, e.g. "https://api.bitstamp.example".
func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiMarket is the wire shape of one catalog entry.
type apiMarket struct {
	ID    string `json:"id"`
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// Markets returns the exchange's full market catalog.
func (c *CatalogClient) Markets(ctx context.Context) ([]domain.Market, error) {
	body, err := c.doGet(ctx, "/markets")
	if err != nil {
		return nil, fmt.Errorf("exchange/rest: get markets: %w", err)
	}

	var apiMarkets []apiMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("exchange/rest: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for _, m := range apiMarkets {
		markets = append(markets, domain.Market{
			ID:    m.ID,
			Base:  m.Base,
			Quote: m.Quote,
		})
	}

	return markets, nil
}

// doGet sends an unauthenticated GET request to the catalog API.
func (c *CatalogClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
