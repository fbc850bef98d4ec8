package domain

// FeedEvent is implemented by the three message variants an exchange feed
// delivers: a full level-2 snapshot, an incremental level-2 update, and an
// executed trade.
type FeedEvent interface {
	feedEvent()
}

// SnapshotEvent is a full replacement view of one market's order book.
type SnapshotEvent struct {
	Exchange string
	MarketID string
	Bids     []RawLevel
	Asks     []RawLevel
}

// UpdateEvent is an incremental set of price-level changes since the last
// snapshot or update for the same market.
type UpdateEvent struct {
	Exchange string
	MarketID string
	Bids     []RawLevel
	Asks     []RawLevel
}

// TradeEvent carries one executed trade.
type TradeEvent struct {
	Trade Trade
}

func (SnapshotEvent) feedEvent() {}
func (UpdateEvent) feedEvent()   {}
func (TradeEvent) feedEvent()    {}
