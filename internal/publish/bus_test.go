package publish_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/publish"
)

// memBus is a SignalBus recording publishes per channel.
type memBus struct {
	err      error
	messages map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{messages: map[string][][]byte{}}
}

func (b *memBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if b.err != nil {
		return b.err
	}
	b.messages[channel] = append(b.messages[channel], payload)
	return nil
}

func (b *memBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func TestBusPublishesToNamedChannels(t *testing.T) {
	bus := newMemBus()
	p := publish.NewBusPublisher(bus, "", "", discard())

	require.NoError(t, p.PublishTickPrice(context.Background(), sampleTick()))
	require.NoError(t, p.PublishOrderBook(context.Background(), domain.PublishingOrderBook{
		Source: "Bitstamp(w)",
		Asset:  "BTCUSD",
	}))
	require.NoError(t, p.PublishTrade(context.Background(), domain.Trade{}))

	require.Len(t, bus.messages[publish.TickPricesChannel], 1)
	require.Len(t, bus.messages[publish.OrderBooksChannel], 1)
	assert.Len(t, bus.messages, 2, "trades have no bus destination")

	var tick domain.TickPrice
	require.NoError(t, json.Unmarshal(bus.messages[publish.TickPricesChannel][0], &tick))
	assert.Equal(t, sampleTick(), tick)
}

func TestBusPublishErrorIsWrapped(t *testing.T) {
	bus := newMemBus()
	bus.err = errors.New("connection refused")
	p := publish.NewBusPublisher(bus, "", "", discard())

	err := p.PublishTickPrice(context.Background(), sampleTick())
	require.Error(t, err)
	assert.ErrorIs(t, err, bus.err)
}
