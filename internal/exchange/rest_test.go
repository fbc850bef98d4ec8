package exchange_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/exchange"
)

func TestCatalogClientMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"BTC/USD","base":"BTC","quote":"USD"},
			{"id":"ETH/USD","base":"ETH","quote":"USD"}
		]`))
	}))
	defer srv.Close()

	client := exchange.NewCatalogClient(srv.URL)
	markets, err := client.Markets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Market{
		{ID: "BTC/USD", Base: "BTC", Quote: "USD"},
		{ID: "ETH/USD", Base: "ETH", Quote: "USD"},
	}, markets)
}

func TestCatalogClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := exchange.NewCatalogClient(srv.URL)
	_, err := client.Markets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "maintenance")
}

func TestCatalogClientBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	client := exchange.NewCatalogClient(srv.URL)
	_, err := client.Markets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode markets")
}

func TestStaticCatalogFindMarket(t *testing.T) {
	catalog := exchange.NewStaticCatalog([]domain.Market{
		{ID: "BTC/USD", Base: "BTC", Quote: "USD"},
	})

	m, ok := catalog.FindMarket("BTC/USD")
	require.True(t, ok)
	assert.Equal(t, "BTC", m.Base)

	_, ok = catalog.FindMarket("DOGE/USD")
	assert.False(t, ok)
}
