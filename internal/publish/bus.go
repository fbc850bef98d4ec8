package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/quantex/marketfeed/internal/domain"
)

// Default fanout destination names on the signal bus.
const (
	OrderBooksChannel = "OrderBooks"
	TickPricesChannel = "TickPrices"
)

// BusPublisher relays order books and ticks to two fanout destinations on
// the signal bus as plain JSON, fire-and-forget. Trades have no bus
// destination and are ignored.
type BusPublisher struct {
	bus        domain.SignalBus
	orderBooks string
	tickPrices string
	logger     *slog.Logger
}

// NewBusPublisher creates a BusPublisher. Empty channel names fall back to
// the defaults.
func NewBusPublisher(bus domain.SignalBus, orderBooks, tickPrices string, logger *slog.Logger) *BusPublisher {
	if orderBooks == "" {
		orderBooks = OrderBooksChannel
	}
	if tickPrices == "" {
		tickPrices = TickPricesChannel
	}
	return &BusPublisher{
		bus:        bus,
		orderBooks: orderBooks,
		tickPrices: tickPrices,
		logger:     logger.With(slog.String("component", "bus_publisher")),
	}
}

// Name implements domain.Publisher.
func (p *BusPublisher) Name() string { return "bus" }

// PublishOrderBook sends the book to the order-books destination.
func (p *BusPublisher) PublishOrderBook(ctx context.Context, book domain.PublishingOrderBook) error {
	return p.send(ctx, p.orderBooks, book)
}

// PublishTickPrice sends the tick to the tick-prices destination.
func (p *BusPublisher) PublishTickPrice(ctx context.Context, tick domain.TickPrice) error {
	return p.send(ctx, p.tickPrices, tick)
}

// PublishTrade is a no-op; the bus contract only covers books and ticks.
func (p *BusPublisher) PublishTrade(ctx context.Context, trade domain.Trade) error {
	return nil
}

func (p *BusPublisher) send(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("publish: encode for %s: %w", channel, err)
	}
	if err := p.bus.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("publish: %s: %w", channel, err)
	}
	return nil
}

var _ domain.Publisher = (*BusPublisher)(nil)
