package domain

import "context"

// Publisher is a downstream sink for normalized market data. Implementations
// encode and transmit independently; a failing publisher must contain its
// own errors (the fan-out logs and continues).
type Publisher interface {
	// Name identifies the sink in logs.
	Name() string

	// PublishOrderBook delivers a full formatted order book.
	PublishOrderBook(ctx context.Context, book PublishingOrderBook) error

	// PublishTickPrice delivers a best bid/ask tick.
	PublishTickPrice(ctx context.Context, tick TickPrice) error

	// PublishTrade delivers an executed trade unchanged.
	PublishTrade(ctx context.Context, trade Trade) error
}
