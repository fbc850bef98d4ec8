package feed

import (
	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/symbol"
)

// SelectMarkets resolves the configured canonical symbols against an
// exchange's catalog. For each symbol the forward-mapped name is looked up
// first and the original name second, so that exchanges listing BTC/USDT
// while advertising BTC/USD resolve to the pair that actually trades.
// Symbols absent under both names are skipped.
func SelectMarkets(symbols []string, catalog domain.Catalog, table []domain.AssetMapping) []domain.Market {
	var markets []domain.Market
	for _, s := range symbols {
		if m, ok := catalog.FindMarket(symbol.MapForward(s, table)); ok {
			markets = append(markets, m)
			continue
		}
		if m, ok := catalog.FindMarket(s); ok {
			markets = append(markets, m)
		}
	}
	return markets
}
