package exchange

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/quantex/marketfeed/internal/domain"
)

// FakeFeed is a FeedClient that synthesizes random market data. It serves
// local development runs and lets the whole pipeline be exercised without a
// live exchange connection.
//
// Prices wander around a per-instance random base value so the change filter
// and throttle see realistic variation.
type FakeFeed struct {
	name string
	rng  *rand.Rand

	mu        sync.Mutex
	markets   []domain.Market
	snapshots map[string]bool
	closed    bool

	events chan domain.FeedEvent
	done   chan struct{}

	baseValue float64
}

// NewFakeFeed creates a fake feed advertising the given markets.
func NewFakeFeed(name string, markets []domain.Market) *FakeFeed {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &FakeFeed{
		name:      name,
		rng:       rng,
		markets:   markets,
		snapshots: make(map[string]bool),
		events:    make(chan domain.FeedEvent, 256),
		done:      make(chan struct{}),
		baseValue: rng.Float64() * 100,
	}
}

// Name implements FeedClient.
func (f *FakeFeed) Name() string { return f.name }

// Markets implements FeedClient.
func (f *FakeFeed) Markets(ctx context.Context) ([]domain.Market, error) {
	return f.markets, nil
}

// Subscribe implements FeedClient. The first subscription starts the event
// generator; each subscribed market gets an immediate snapshot so updates
// never land on an empty book.
func (f *FakeFeed) Subscribe(market domain.Market) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return domain.ErrFeedClosed
	}

	first := len(f.snapshots) == 0
	if f.snapshots[market.ID] {
		return nil
	}
	f.snapshots[market.ID] = true

	if first {
		go f.run()
	}
	return nil
}

// Events implements FeedClient.
func (f *FakeFeed) Events() <-chan domain.FeedEvent { return f.events }

// Close implements FeedClient.
func (f *FakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)
	return nil
}

// run emits an initial snapshot per subscribed market, then a random event
// every 0-200ms.
func (f *FakeFeed) run() {
	for _, id := range f.subscribed() {
		f.emit(f.makeSnapshot(id, 100))
	}

	for {
		select {
		case <-f.done:
			return
		case <-time.After(time.Duration(f.rng.Intn(200)) * time.Millisecond):
			f.emit(f.randomEvent())
		}
	}
}

func (f *FakeFeed) subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.snapshots))
	for id := range f.snapshots {
		ids = append(ids, id)
	}
	return ids
}

func (f *FakeFeed) emit(ev domain.FeedEvent) {
	select {
	case f.events <- ev:
	case <-f.done:
	}
}

// randomEvent follows a 30% trade / 70% book-update split.
func (f *FakeFeed) randomEvent() domain.FeedEvent {
	ids := f.subscribed()
	id := ids[f.rng.Intn(len(ids))]

	if f.rng.Float64() > 0.7 {
		return f.makeTrade(id)
	}
	return f.makeUpdate(id)
}

func (f *FakeFeed) makeSnapshot(marketID string, depth int) domain.SnapshotEvent {
	return domain.SnapshotEvent{
		Exchange: f.name,
		MarketID: marketID,
		Bids:     f.makeLevels(depth),
		Asks:     f.makeLevels(depth),
	}
}

func (f *FakeFeed) makeUpdate(marketID string) domain.UpdateEvent {
	depth := f.rng.Intn(21)
	return domain.UpdateEvent{
		Exchange: f.name,
		MarketID: marketID,
		Bids:     f.makeLevels(depth),
		Asks:     f.makeLevels(depth),
	}
}

func (f *FakeFeed) makeTrade(marketID string) domain.TradeEvent {
	side := domain.TradeSideBuy
	if f.rng.Float64() > 0.5 {
		side = domain.TradeSideSell
	}
	return domain.TradeEvent{
		Trade: domain.Trade{
			Exchange: f.name,
			MarketID: marketID,
			Side:     side,
			Price:    f.formatFloat(f.randomPrice()),
			Amount:   f.formatFloat(f.rng.Float64() * 10),
		},
	}
}

func (f *FakeFeed) makeLevels(count int) []domain.RawLevel {
	levels := make([]domain.RawLevel, count)
	for i := range levels {
		levels[i] = domain.RawLevel{
			Price: f.formatFloat(f.randomPrice()),
			Size:  f.formatFloat(f.rng.Float64() * 10),
		}
	}
	return levels
}

// randomPrice wanders at most 10 either side of the base value.
func (f *FakeFeed) randomPrice() float64 {
	sign := 1.0
	if f.rng.Float64() < 0.5 {
		sign = -1.0
	}
	return f.baseValue + sign*f.rng.Float64()*10
}

func (f *FakeFeed) formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

var _ FeedClient = (*FakeFeed)(nil)
