// Package handler orchestrates the market-data pipeline for one exchange
// connection: it merges feed events into the order book store, derives ticks,
// applies publish throttling and bid/ask change detection, and hands the
// results to the publisher fan-out.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantex/marketfeed/internal/book"
	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/symbol"
)

// DefaultSourceSuffix marks relayed feeds in the published source name.
const DefaultSourceSuffix = "(w)"

// defaultUpdateInterval throttles update-driven publishes. Snapshot-driven
// publishes use the configured interval instead.
const defaultUpdateInterval = time.Second

// Config parameterizes an Events handler for one exchange connection.
type Config struct {
	// ExchangeName is the display name used in the published source field.
	ExchangeName string

	// SourceSuffix is appended to ExchangeName; DefaultSourceSuffix when empty.
	SourceSuffix string

	// SnapshotInterval is the minimum time between snapshot-driven publishes
	// of the same market.
	SnapshotInterval time.Duration

	// UpdateInterval is the minimum time between update-driven publishes of
	// the same market; defaultUpdateInterval when zero.
	UpdateInterval time.Duration

	// Mappings is the ordered asset-pair mapping table for this exchange.
	Mappings []domain.AssetMapping
}

// Events handles the feed events of one exchange connection. Events for
// different markets proceed independently; events for the same market are
// serialized by a per-key lock, so each book has a single writer at a time.
type Events struct {
	cfg    Config
	books  *book.Store
	pub    domain.Publisher
	logger *slog.Logger

	mu            sync.Mutex
	keyLocks      map[string]*sync.Mutex
	lastPublished map[string]time.Time        // per market key
	latestBidAsk  map[string]domain.TickPrice // per published asset
}

// NewEvents creates an Events handler publishing through pub.
func NewEvents(cfg Config, pub domain.Publisher, logger *slog.Logger) *Events {
	if cfg.SourceSuffix == "" {
		cfg.SourceSuffix = DefaultSourceSuffix
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = defaultUpdateInterval
	}
	return &Events{
		cfg:           cfg,
		books:         book.NewStore(),
		pub:           pub,
		logger:        logger.With(slog.String("component", "events"), slog.String("exchange", cfg.ExchangeName)),
		keyLocks:      make(map[string]*sync.Mutex),
		lastPublished: make(map[string]time.Time),
		latestBidAsk:  make(map[string]domain.TickPrice),
	}
}

// HandleSnapshot replaces the book for the event's market and publishes it
// if the snapshot throttle allows. A level parse error fails the whole
// snapshot; the market stays in its previous state.
func (h *Events) HandleSnapshot(ctx context.Context, ev domain.SnapshotEvent) error {
	key := ev.MarketID
	unlock := h.lockKey(key)
	defer unlock()

	b, err := h.books.ApplySnapshot(key, ev.Exchange, ev.MarketID, ev.Bids, ev.Asks)
	if err != nil {
		return err
	}

	h.maybePublish(ctx, key, b, h.cfg.SnapshotInterval)
	return nil
}

// HandleUpdate merges level deltas into the market's book and publishes if
// the update throttle allows. An update arriving before any snapshot is
// logged and dropped; the book stays absent until the next snapshot.
func (h *Events) HandleUpdate(ctx context.Context, ev domain.UpdateEvent) error {
	key := ev.MarketID
	unlock := h.lockKey(key)
	defer unlock()

	b, err := h.books.ApplyUpdate(key, ev.Bids, ev.Asks)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			h.logger.Info("update before snapshot, dropped",
				slog.String("market", key),
			)
			return nil
		}
		return err
	}

	h.maybePublish(ctx, key, b, h.cfg.UpdateInterval)
	return nil
}

// HandleTrade relays a trade to all sinks unchanged. Trades bypass the book
// store, the throttle and the change filter.
func (h *Events) HandleTrade(ctx context.Context, ev domain.TradeEvent) error {
	return h.pub.PublishTrade(ctx, ev.Trade)
}

// maybePublish emits the book (and, when bid or ask moved, a tick) unless a
// publish for key happened within interval. Caller holds the key lock.
func (h *Events) maybePublish(ctx context.Context, key string, b *book.Book, interval time.Duration) {
	h.mu.Lock()
	last, published := h.lastPublished[key]
	h.mu.Unlock()

	if published && time.Since(last) <= interval {
		return
	}

	pob := h.buildPublishing(b)
	if err := h.pub.PublishOrderBook(ctx, pob); err != nil {
		h.logger.Warn("order book publish failed",
			slog.String("market", key),
			slog.String("error", err.Error()),
		)
	}

	if tick, ok := ExtractTick(pob); ok && h.updateLatestBidAsk(tick) {
		if err := h.pub.PublishTickPrice(ctx, tick); err != nil {
			h.logger.Warn("tick publish failed",
				slog.String("market", key),
				slog.String("error", err.Error()),
			)
		}
	}

	h.mu.Lock()
	h.lastPublished[key] = time.Now()
	h.mu.Unlock()
}

// updateLatestBidAsk caches tick as the latest bid/ask for its asset and
// reports whether bid or ask actually moved. Equality is numeric, so a
// republished "4300.0" vs "4300" does not count as a change.
func (h *Events) updateLatestBidAsk(tick domain.TickPrice) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev, ok := h.latestBidAsk[tick.Asset]
	if ok && priceEqual(prev.Bid, tick.Bid) && priceEqual(prev.Ask, tick.Ask) {
		return false
	}
	h.latestBidAsk[tick.Asset] = tick
	return true
}

// buildPublishing formats a book into the canonical publishing shape:
// backward-mapped symbol, suffixed source, zero-filtered and fixed-point
// formatted levels, bids descending and asks ascending.
func (h *Events) buildPublishing(b *book.Book) domain.PublishingOrderBook {
	sym := symbol.MapBackward(b.MarketID, h.cfg.Mappings)
	base, quote := symbol.Split(sym)

	pob := domain.PublishingOrderBook{
		Source:    h.cfg.ExchangeName + h.cfg.SourceSuffix,
		Asset:     strings.ReplaceAll(sym, symbol.Separator, ""),
		AssetPair: domain.AssetPair{Base: base, Quote: quote},
		Timestamp: b.LastUpdated.Format(time.RFC3339Nano),
		Bids:      make([]domain.PublishingLevel, 0, b.BidCount()),
		Asks:      make([]domain.PublishingLevel, 0, b.AskCount()),
	}

	b.DescendBids(func(lvl domain.PriceLevel) bool {
		if appendable(lvl) {
			pob.Bids = append(pob.Bids, formatLevel(lvl))
		}
		return true
	})
	b.AscendAsks(func(lvl domain.PriceLevel) bool {
		if appendable(lvl) {
			pob.Asks = append(pob.Asks, formatLevel(lvl))
		}
		return true
	})

	return pob
}

// ExtractTick derives the best bid/ask tick from a publishing book. There is
// no tick unless both sides have at least one level. A best price of zero is
// carried through as "0", not dropped.
func ExtractTick(pob domain.PublishingOrderBook) (domain.TickPrice, bool) {
	if len(pob.Bids) == 0 || len(pob.Asks) == 0 {
		return domain.TickPrice{}, false
	}
	return domain.TickPrice{
		Source:    pob.Source,
		Asset:     pob.Asset,
		Bid:       pob.Bids[0].Price,
		Ask:       pob.Asks[0].Price,
		Timestamp: pob.Timestamp,
	}, true
}

// State is a point-in-time view of the handler for the introspection
// endpoint: which markets are tracked and the last published tick per asset.
type State struct {
	Exchange    string                      `json:"exchange"`
	Markets     []string                    `json:"markets"`
	LatestTicks map[string]domain.TickPrice `json:"latestTicks"`
}

// State returns a copy of the handler's aggregate state.
func (h *Events) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	ticks := make(map[string]domain.TickPrice, len(h.latestBidAsk))
	for asset, tick := range h.latestBidAsk {
		ticks[asset] = tick
	}
	return State{
		Exchange:    h.cfg.ExchangeName,
		Markets:     h.books.Keys(),
		LatestTicks: ticks,
	}
}

// lockKey serializes handling per market key without contending across
// unrelated markets.
func (h *Events) lockKey(key string) func() {
	h.mu.Lock()
	l, ok := h.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		h.keyLocks[key] = l
	}
	h.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func appendable(lvl domain.PriceLevel) bool {
	return !lvl.Price.IsZero() && !lvl.Size.IsZero()
}

func formatLevel(lvl domain.PriceLevel) domain.PublishingLevel {
	return domain.PublishingLevel{
		Price:  FormatAmount(lvl.Price),
		Volume: FormatAmount(lvl.Size),
	}
}

// FormatAmount renders a price or size as a fixed-point string with eight
// fractional digits, trailing zeros (and a bare trailing point) stripped.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(8)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func priceEqual(a, b string) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return da.Equal(db)
}
