package publish_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/publish"
)

// countingSink records how many publishes it received, optionally failing.
type countingSink struct {
	name string
	err  error

	mu    sync.Mutex
	ticks int
	books int
}

func (s *countingSink) Name() string { return s.name }

func (s *countingSink) PublishOrderBook(ctx context.Context, ob domain.PublishingOrderBook) error {
	s.mu.Lock()
	s.books++
	s.mu.Unlock()
	return s.err
}

func (s *countingSink) PublishTickPrice(ctx context.Context, tick domain.TickPrice) error {
	s.mu.Lock()
	s.ticks++
	s.mu.Unlock()
	return s.err
}

func (s *countingSink) PublishTrade(ctx context.Context, trade domain.Trade) error {
	return s.err
}

func (s *countingSink) tickCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// stallingSink blocks inside every publish until released.
type stallingSink struct {
	release chan struct{}

	mu    sync.Mutex
	ticks []string
}

func (s *stallingSink) Name() string { return "stalling" }

func (s *stallingSink) PublishOrderBook(ctx context.Context, ob domain.PublishingOrderBook) error {
	<-s.release
	return nil
}

func (s *stallingSink) PublishTickPrice(ctx context.Context, tick domain.TickPrice) error {
	s.mu.Lock()
	s.ticks = append(s.ticks, tick.Bid)
	s.mu.Unlock()
	<-s.release
	return nil
}

func (s *stallingSink) PublishTrade(ctx context.Context, trade domain.Trade) error {
	<-s.release
	return nil
}

func (s *stallingSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ticks...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestFanoutReachesAllSinks(t *testing.T) {
	a := &countingSink{name: "a"}
	b := &countingSink{name: "b"}
	f := publish.NewFanout(discard(), a, b)
	defer f.Close()

	assert.NoError(t, f.PublishTickPrice(context.Background(), sampleTick()))

	waitFor(t, func() bool { return a.tickCount() == 1 && b.tickCount() == 1 })
}

func TestFanoutFailingSinkDoesNotAffectOthers(t *testing.T) {
	bad := &countingSink{name: "bad", err: errors.New("sink down")}
	good := &countingSink{name: "good"}
	f := publish.NewFanout(discard(), bad, good)
	defer f.Close()

	assert.NoError(t, f.PublishTickPrice(context.Background(), sampleTick()),
		"sink errors never propagate")

	waitFor(t, func() bool { return good.tickCount() == 1 && bad.tickCount() == 1 })
}

func TestFanoutDropsOverflowForStalledSink(t *testing.T) {
	stalled := &stallingSink{release: make(chan struct{})}
	f := publish.NewFanout(discard(), stalled)
	defer f.Close()

	// Far more publishes than one in-flight message plus a full queue can
	// hold. None of them may block the caller.
	const total = 10 * publish.SinkQueueSize
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			_ = f.PublishTickPrice(context.Background(), sampleTick())
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a stalled sink")
	}

	// Release the sink and let it drain whatever was actually retained.
	close(stalled.release)
	waitFor(t, func() bool { return len(stalled.received()) >= 1 })
	time.Sleep(50 * time.Millisecond)

	got := len(stalled.received())
	assert.LessOrEqual(t, got, publish.SinkQueueSize+1,
		"overflow beyond the bounded queue must be dropped, not retained")
	assert.Less(t, got, total)
}

func TestFanoutPreservesPerSinkOrder(t *testing.T) {
	stalled := &stallingSink{release: make(chan struct{})}
	f := publish.NewFanout(discard(), stalled)
	defer f.Close()

	ticks := []string{"1", "2", "3", "4", "5"}
	for _, bid := range ticks {
		tick := sampleTick()
		tick.Bid = bid
		assert.NoError(t, f.PublishTickPrice(context.Background(), tick))
	}

	close(stalled.release)
	waitFor(t, func() bool { return len(stalled.received()) == len(ticks) })
	assert.Equal(t, ticks, stalled.received())
}

func TestFanoutWithNoSinks(t *testing.T) {
	f := publish.NewFanout(discard())
	defer f.Close()
	assert.NoError(t, f.PublishOrderBook(context.Background(), domain.PublishingOrderBook{}))
	assert.NoError(t, f.PublishTickPrice(context.Background(), sampleTick()))
	assert.NoError(t, f.PublishTrade(context.Background(), domain.Trade{}))
}
