// Package feed connects exchange clients to the event handler: it selects
// the configured markets on each exchange and relays the event stream into
// the normalization pipeline.
package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/exchange"
	"github.com/quantex/marketfeed/internal/handler"
)

// Relay drains one exchange's event stream into the handler. One Relay runs
// per exchange, so events for any single market are processed in feed order.
type Relay struct {
	client  exchange.FeedClient
	events  *handler.Events
	markets []domain.Market
	logger  *slog.Logger
}

// NewRelay creates a Relay for the given exchange and its selected markets.
func NewRelay(client exchange.FeedClient, events *handler.Events, markets []domain.Market, logger *slog.Logger) *Relay {
	return &Relay{
		client:  client,
		events:  events,
		markets: markets,
		logger:  logger.With(slog.String("component", "relay"), slog.String("exchange", client.Name())),
	}
}

// Subscribe requests delivery for every selected market.
func (r *Relay) Subscribe() error {
	for _, m := range r.markets {
		if err := r.client.Subscribe(m); err != nil {
			return fmt.Errorf("feed: subscribe %s on %s: %w", m.ID, r.client.Name(), err)
		}
	}
	r.logger.Info("markets subscribed", slog.Int("count", len(r.markets)))
	return nil
}

// Run consumes events until the context is cancelled or the stream closes.
// Handler errors are logged and do not stop the relay.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("relay started")
	defer r.logger.Info("relay stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-r.client.Events():
			if !ok {
				return nil
			}
			if err := r.handle(ctx, ev); err != nil {
				r.logger.Warn("event handling failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (r *Relay) handle(ctx context.Context, ev domain.FeedEvent) error {
	switch e := ev.(type) {
	case domain.SnapshotEvent:
		return r.events.HandleSnapshot(ctx, e)
	case domain.UpdateEvent:
		return r.events.HandleUpdate(ctx, e)
	case domain.TradeEvent:
		return r.events.HandleTrade(ctx, e)
	default:
		return fmt.Errorf("feed: unknown event type %T", ev)
	}
}
