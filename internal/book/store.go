// Package book maintains one consistent, price-ordered order book per
// (exchange, market) key, built from snapshot-replace and delta-merge
// operations.
package book

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"github.com/quantex/marketfeed/internal/domain"
)

// Book is the live order book of one market on one exchange. Both sides are
// B-trees keyed by price, so inserts, removals and ordered iteration are all
// O(log n). No stored level ever has size zero.
type Book struct {
	Exchange    string
	MarketID    string
	LastUpdated time.Time

	bids *btree.BTreeG[domain.PriceLevel]
	asks *btree.BTreeG[domain.PriceLevel]
}

func byPrice(a, b domain.PriceLevel) bool {
	return a.Price.LessThan(b.Price)
}

func newBook(exchange, marketID string) *Book {
	return &Book{
		Exchange: exchange,
		MarketID: marketID,
		bids:     btree.NewBTreeG(byPrice),
		asks:     btree.NewBTreeG(byPrice),
	}
}

// DescendBids iterates the bid side from best (highest) price down. The
// iterator returns false to stop early.
func (b *Book) DescendBids(iter func(level domain.PriceLevel) bool) {
	b.bids.Reverse(iter)
}

// AscendAsks iterates the ask side from best (lowest) price up.
func (b *Book) AscendAsks(iter func(level domain.PriceLevel) bool) {
	b.asks.Scan(iter)
}

// BidCount returns the number of bid levels.
func (b *Book) BidCount() int { return b.bids.Len() }

// AskCount returns the number of ask levels.
func (b *Book) AskCount() int { return b.asks.Len() }

// Store owns the order books of one exchange connection, keyed by the
// exchange-native market identifier. The internal mutex only guards the key
// map; mutation of a single book is serialized per key by the event handler.
type Store struct {
	mu    sync.RWMutex
	books map[string]*Book
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{books: make(map[string]*Book)}
}

// Get returns the book for key if a snapshot has been applied.
func (s *Store) Get(key string) (*Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[key]
	return b, ok
}

// Keys returns the market keys currently tracked.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.books))
	for k := range s.books {
		keys = append(keys, k)
	}
	return keys
}

// ApplySnapshot builds a fresh book from a full level-2 snapshot and
// replaces whatever book previously existed at key. Levels with size zero
// are discarded. A non-numeric price or size fails the whole snapshot and
// leaves the previous book (if any) untouched.
func (s *Store) ApplySnapshot(key, exchange, marketID string, bids, asks []domain.RawLevel) (*Book, error) {
	fresh := newBook(exchange, marketID)

	if err := fillSide(fresh.bids, bids, exchange, marketID, "bid"); err != nil {
		return nil, err
	}
	if err := fillSide(fresh.asks, asks, exchange, marketID, "ask"); err != nil {
		return nil, err
	}

	fresh.LastUpdated = time.Now().UTC()

	// The fresh book is fully built before it becomes visible; a reader
	// never observes a partially applied snapshot.
	s.mu.Lock()
	s.books[key] = fresh
	s.mu.Unlock()
	return fresh, nil
}

// ApplyUpdate merges a set of level deltas into the existing book at key.
// Each delta removes the stored level at its price and, when the delta size
// is nonzero, re-inserts it with the new size. Returns ErrBookNotFound when
// no snapshot has been applied for key yet; a parse error fails the whole
// update and leaves the book in its prior state.
func (s *Store) ApplyUpdate(key string, bids, asks []domain.RawLevel) (*Book, error) {
	s.mu.RLock()
	b, ok := s.books[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("book: %s: %w", key, domain.ErrBookNotFound)
	}

	bidLevels, err := parseSide(bids, b.Exchange, b.MarketID, "bid")
	if err != nil {
		return nil, err
	}
	askLevels, err := parseSide(asks, b.Exchange, b.MarketID, "ask")
	if err != nil {
		return nil, err
	}

	mergeSide(b.bids, bidLevels)
	mergeSide(b.asks, askLevels)

	b.LastUpdated = time.Now().UTC()
	return b, nil
}

func parseSide(raw []domain.RawLevel, exchange, marketID, side string) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		parsed, err := parseLevel(lvl, exchange, marketID, side)
		if err != nil {
			return nil, err
		}
		levels = append(levels, parsed)
	}
	return levels, nil
}

func parseLevel(raw domain.RawLevel, exchange, marketID, side string) (domain.PriceLevel, error) {
	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return domain.PriceLevel{}, &domain.LevelParseError{
			Exchange: exchange, MarketID: marketID,
			Side: side, Field: "price", Value: raw.Price, Err: err,
		}
	}
	size, err := decimal.NewFromString(raw.Size)
	if err != nil {
		return domain.PriceLevel{}, &domain.LevelParseError{
			Exchange: exchange, MarketID: marketID,
			Side: side, Field: "size", Value: raw.Size, Err: err,
		}
	}
	return domain.PriceLevel{Price: price, Size: size}, nil
}

func fillSide(tree *btree.BTreeG[domain.PriceLevel], raw []domain.RawLevel, exchange, marketID, side string) error {
	for _, lvl := range raw {
		parsed, err := parseLevel(lvl, exchange, marketID, side)
		if err != nil {
			return err
		}
		if parsed.Size.IsZero() {
			continue
		}
		tree.Set(parsed)
	}
	return nil
}

// mergeSide applies parsed deltas as remove-then-reinsert, so a level whose
// size changed is replaced and a zero-size delta removes the level outright.
func mergeSide(tree *btree.BTreeG[domain.PriceLevel], deltas []domain.PriceLevel) {
	for _, d := range deltas {
		tree.Delete(domain.PriceLevel{Price: d.Price})
		if !d.Size.IsZero() {
			tree.Set(d)
		}
	}
}
