package domain

// TradeSide is the taker side of an executed trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is a single executed trade as reported by an exchange feed. Trades
// are relayed to sinks unchanged; they are never merged into book state.
type Trade struct {
	Exchange string    `json:"exchange"`
	MarketID string    `json:"marketId"`
	Side     TradeSide `json:"side"`
	Price    string    `json:"price"`
	Amount   string    `json:"amount"`
}
