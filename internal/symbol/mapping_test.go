package symbol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/symbol"
)

var usdToUsdt = []domain.AssetMapping{
	{Canonical: "USD", Exchange: "USDT"},
}

func TestSplit(t *testing.T) {
	base, quote := symbol.Split("BTC/USD")
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USD", quote)

	base, quote = symbol.Split("BTCUSD")
	assert.Equal(t, "BTCUSD", base)
	assert.Equal(t, "", quote)
}

func TestMapForward(t *testing.T) {
	tests := []struct {
		name  string
		pair  string
		table []domain.AssetMapping
		want  string
	}{
		{"quote leg mapped", "BTC/USD", usdToUsdt, "BTC/USDT"},
		{"base leg mapped", "USD/JPY", usdToUsdt, "USDT/JPY"},
		{"no match passes through", "ETH/EUR", usdToUsdt, "ETH/EUR"},
		{"no separator passes through", "BTCUSD", usdToUsdt, "BTCUSD"},
		{"empty table passes through", "BTC/USD", nil, "BTC/USD"},
		{
			"first entry wins",
			"BTC/USD",
			[]domain.AssetMapping{
				{Canonical: "USD", Exchange: "USDT"},
				{Canonical: "USD", Exchange: "USDC"},
			},
			"BTC/USDT",
		},
		{
			"base checked before quote",
			"USD/USD",
			usdToUsdt,
			"USDT/USD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, symbol.MapForward(tt.pair, tt.table))
		})
	}
}

func TestMapBackward(t *testing.T) {
	assert.Equal(t, "BTC/USD", symbol.MapBackward("BTC/USDT", usdToUsdt))
	assert.Equal(t, "USD/JPY", symbol.MapBackward("USDT/JPY", usdToUsdt))
	assert.Equal(t, "ETH/EUR", symbol.MapBackward("ETH/EUR", usdToUsdt))
}

func TestMapBackwardInvertsMapForward(t *testing.T) {
	pairs := []string{"BTC/USD", "USD/JPY", "ETH/EUR", "LTC/BTC"}
	for _, pair := range pairs {
		mapped := symbol.MapForward(pair, usdToUsdt)
		assert.Equal(t, pair, symbol.MapBackward(mapped, usdToUsdt), "pair %s", pair)
	}
}

type fixedCatalog map[string]domain.Market

func (c fixedCatalog) FindMarket(s string) (domain.Market, bool) {
	m, ok := c[s]
	return m, ok
}

func TestTryMapForward(t *testing.T) {
	t.Run("prefers mapped symbol when listed", func(t *testing.T) {
		catalog := fixedCatalog{
			"BTC/USD":  {ID: "BTC/USD"},
			"BTC/USDT": {ID: "BTC/USDT"},
		}
		assert.Equal(t, "BTC/USDT", symbol.TryMapForward("BTC/USD", catalog, usdToUsdt))
	})

	t.Run("falls back to original when mapped is unlisted", func(t *testing.T) {
		catalog := fixedCatalog{
			"BTC/USD": {ID: "BTC/USD"},
		}
		assert.Equal(t, "BTC/USD", symbol.TryMapForward("BTC/USD", catalog, usdToUsdt))
	})

	t.Run("returns original when neither is listed", func(t *testing.T) {
		catalog := fixedCatalog{}
		assert.Equal(t, "BTC/USD", symbol.TryMapForward("BTC/USD", catalog, usdToUsdt))
	})
}
