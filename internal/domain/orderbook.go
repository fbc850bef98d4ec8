package domain

import "github.com/shopspring/decimal"

// RawLevel is a single price level exactly as it arrived from an exchange
// feed, before numeric validation. Exchanges deliver prices and sizes as
// strings (or stringified floats); parsing happens in the book store.
type RawLevel struct {
	Price string
	Size  string
}

// PriceLevel is a parsed, validated price level. A size of zero is never
// stored in a book; it only appears transiently in update deltas, where it
// means "remove this level".
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// AssetPair is the base/quote split of a canonical symbol, e.g. BTC/USD.
type AssetPair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// PublishingLevel is one formatted, zero-filtered level of a publishing
// order book. Price and volume are fixed-point strings with at most eight
// fractional digits and no trailing zeros.
type PublishingLevel struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
}

// PublishingOrderBook is the canonical, wire-agnostic order book shape
// handed to the publisher fan-out. Bids are ordered by descending price,
// asks by ascending price.
type PublishingOrderBook struct {
	Source    string            `json:"source"`
	Asset     string            `json:"asset"`
	AssetPair AssetPair         `json:"assetPair"`
	Timestamp string            `json:"timestamp"`
	Bids      []PublishingLevel `json:"bids"`
	Asks      []PublishingLevel `json:"asks"`
}

// TickPrice is the best bid and best ask of one market at a point in time.
// It is derived from a PublishingOrderBook and only exists when both sides
// of the book are non-empty.
type TickPrice struct {
	Source    string `json:"source"`
	Asset     string `json:"asset"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Timestamp string `json:"timestamp"`
}
