// Package symbol translates asset-pair names between the canonical symbol
// space (e.g. BTC/USD) and exchange-specific symbol spaces. All functions are
// pure; a symbol with no separator or no matching table entry passes through
// unchanged.
package symbol

import (
	"strings"

	"github.com/quantex/marketfeed/internal/domain"
)

// Separator splits the base and quote legs of a canonical symbol.
const Separator = "/"

// Split returns the base and quote legs of a pair. The quote is empty when
// the pair has no separator.
func Split(pair string) (base, quote string) {
	i := strings.Index(pair, Separator)
	if i < 0 {
		return pair, ""
	}
	return pair[:i], pair[i+1:]
}

// MapForward rewrites a canonical pair into an exchange-specific one. The
// base leg is checked against the table first, then the quote leg; the first
// matching entry wins and only one leg is ever substituted.
func MapForward(pair string, table []domain.AssetMapping) string {
	base, quote := Split(pair)
	if quote == "" {
		return pair
	}
	for _, m := range table {
		if base == m.Canonical {
			return m.Exchange + Separator + quote
		}
		if quote == m.Canonical {
			return base + Separator + m.Exchange
		}
	}
	return pair
}

// MapBackward rewrites an exchange-specific pair into a canonical one. It is
// the mirror of MapForward: exchange names are substituted by canonical ones,
// base leg first, first table entry wins.
func MapBackward(pair string, table []domain.AssetMapping) string {
	base, quote := Split(pair)
	if quote == "" {
		return pair
	}
	for _, m := range table {
		if base == m.Exchange {
			return m.Canonical + Separator + quote
		}
		if quote == m.Exchange {
			return base + Separator + m.Canonical
		}
	}
	return pair
}

// TryMapForward returns the forward-mapped pair when the exchange's catalog
// recognizes it, and the original pair otherwise. Some exchanges list both
// conventions inconsistently (BTC/USD vs BTC/USDT), so the mapped symbol is
// preferred but the input is kept as a fallback.
func TryMapForward(pair string, catalog domain.Catalog, table []domain.AssetMapping) string {
	mapped := MapForward(pair, table)
	if _, ok := catalog.FindMarket(mapped); ok {
		return mapped
	}
	return pair
}
