package exchange_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/exchange"
)

func fakeMarkets() []domain.Market {
	return []domain.Market{
		{ID: "ABC/XYZ", Base: "ABC", Quote: "XYZ"},
	}
}

func TestFakeFeedEmitsInitialSnapshot(t *testing.T) {
	f := exchange.NewFakeFeed("fakeone", fakeMarkets())
	defer f.Close()

	markets, err := f.Markets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)

	require.NoError(t, f.Subscribe(markets[0]))

	select {
	case ev := <-f.Events():
		snap, ok := ev.(domain.SnapshotEvent)
		require.True(t, ok, "first event must be a snapshot, got %T", ev)
		assert.Equal(t, "fakeone", snap.Exchange)
		assert.Equal(t, "ABC/XYZ", snap.MarketID)
		assert.Len(t, snap.Bids, 100)
		assert.Len(t, snap.Asks, 100)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after subscribe")
	}
}

func TestFakeFeedKeepsEmittingEvents(t *testing.T) {
	f := exchange.NewFakeFeed("fakeone", fakeMarkets())
	defer f.Close()

	require.NoError(t, f.Subscribe(fakeMarkets()[0]))

	seen := 0
	deadline := time.After(3 * time.Second)
	for seen < 5 {
		select {
		case ev := <-f.Events():
			switch ev.(type) {
			case domain.SnapshotEvent, domain.UpdateEvent, domain.TradeEvent:
			default:
				t.Fatalf("unexpected event type %T", ev)
			}
			seen++
		case <-deadline:
			t.Fatalf("only %d events before deadline", seen)
		}
	}
}

func TestFakeFeedSubscribeAfterClose(t *testing.T) {
	f := exchange.NewFakeFeed("fakeone", fakeMarkets())
	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "close is idempotent")

	err := f.Subscribe(fakeMarkets()[0])
	assert.ErrorIs(t, err, domain.ErrFeedClosed)
}
