// Package exchange defines the boundary to exchange market-data feeds: the
// FeedClient interface the pipeline consumes, a websocket implementation of
// it, a REST market-catalog client, and a fake feed for local runs and tests.
package exchange

import (
	"context"

	"github.com/quantex/marketfeed/internal/domain"
)

// FeedClient is one exchange connection delivering level-2 and trade events.
// Events for a single market arrive in feed order; the client performs no
// reordering or sequence validation.
type FeedClient interface {
	// Name is the exchange display name, e.g. "Bitstamp".
	Name() string

	// Markets discovers the exchange's market catalog. A failure here means
	// the exchange is skipped for the run.
	Markets(ctx context.Context) ([]domain.Market, error)

	// Subscribe starts level-2 and trade delivery for one market.
	Subscribe(market domain.Market) error

	// Events is the stream of snapshot, update and trade events. No events
	// are delivered after Close.
	Events() <-chan domain.FeedEvent

	// Close tears the connection down.
	Close() error
}

// StaticCatalog implements domain.Catalog over a fixed market list.
type StaticCatalog struct {
	byID map[string]domain.Market
}

// NewStaticCatalog builds a catalog from discovered markets.
func NewStaticCatalog(markets []domain.Market) *StaticCatalog {
	byID := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
	}
	return &StaticCatalog{byID: byID}
}

// FindMarket implements domain.Catalog.
func (c *StaticCatalog) FindMarket(symbol string) (domain.Market, bool) {
	m, ok := c.byID[symbol]
	return m, ok
}

var _ domain.Catalog = (*StaticCatalog)(nil)
