package domain

// Market is one tradable market in an exchange's catalog.
type Market struct {
	ID    string // exchange-native identifier, e.g. "BTC/USD"
	Base  string
	Quote string
}

// Catalog is a lookup over an exchange's market catalog. FindMarket takes a
// symbol in the exchange's own convention and reports whether the exchange
// trades it.
type Catalog interface {
	FindMarket(symbol string) (Market, bool)
}

// AssetMapping is one entry of the asset-pair mapping table: a canonical
// asset name and the name a particular exchange uses for it. The table is
// ordered; the first matching entry wins.
type AssetMapping struct {
	Canonical string `toml:"canonical"`
	Exchange  string `toml:"exchange"`
}
