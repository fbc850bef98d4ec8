package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBookNotFound is returned when an update arrives for a market that
	// has not received a snapshot yet. Recoverable: the caller drops the
	// update and waits for the next snapshot.
	ErrBookNotFound = errors.New("order book not found")

	// ErrNotWritable is reported by the transport when a write is attempted
	// while the connection is down. Writes in that window are dropped.
	ErrNotWritable = errors.New("transport not writable")

	// ErrFeedClosed is returned by feed clients after Close.
	ErrFeedClosed = errors.New("feed closed")
)

// LevelParseError reports a non-numeric price or size in a snapshot or
// update level. It fails the whole enclosing operation so a corrupt level
// never reaches book state.
type LevelParseError struct {
	Exchange string
	MarketID string
	Side     string // "bid" or "ask"
	Field    string // "price" or "size"
	Value    string
	Err      error
}

func (e *LevelParseError) Error() string {
	return fmt.Sprintf("parse %s %s %s %s=%q: %v",
		e.Exchange, e.MarketID, e.Side, e.Field, e.Value, e.Err)
}

func (e *LevelParseError) Unwrap() error { return e.Err }
