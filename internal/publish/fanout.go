// Package publish implements the sink fan-out and the individual sink
// publishers: framed socket, redis fanout bus, postgres tick table and S3
// tick archive.
package publish

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quantex/marketfeed/internal/domain"
)

// SinkQueueSize bounds the per-sink backlog. A sink that falls further
// behind drops messages instead of queuing them.
const SinkQueueSize = 64

type sinkWorker struct {
	sink  domain.Publisher
	queue chan func(domain.Publisher) error
}

// Fanout broadcasts every publish to all registered sinks. Each sink is
// served by a single worker goroutine fed through a bounded queue: sinks
// never delay each other, messages reach any one sink in publish order, and
// a slow or down sink drops the overflow rather than queuing it without
// bound. Sink errors are logged here rather than propagated — fan-out is not
// transactional.
type Fanout struct {
	workers []*sinkWorker
	logger  *slog.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewFanout creates a Fanout over the given sinks and starts one worker per
// sink. Call Close to stop the workers.
func NewFanout(logger *slog.Logger, sinks ...domain.Publisher) *Fanout {
	f := &Fanout{
		logger: logger.With(slog.String("component", "fanout")),
	}
	for _, sink := range sinks {
		w := &sinkWorker{
			sink:  sink,
			queue: make(chan func(domain.Publisher) error, SinkQueueSize),
		}
		f.workers = append(f.workers, w)
		f.wg.Add(1)
		go f.run(w)
	}
	return f
}

// Name implements domain.Publisher.
func (f *Fanout) Name() string { return "fanout" }

// PublishOrderBook offers the book to every sink.
func (f *Fanout) PublishOrderBook(ctx context.Context, book domain.PublishingOrderBook) error {
	f.each(func(p domain.Publisher) error { return p.PublishOrderBook(ctx, book) })
	return nil
}

// PublishTickPrice offers the tick to every sink.
func (f *Fanout) PublishTickPrice(ctx context.Context, tick domain.TickPrice) error {
	f.each(func(p domain.Publisher) error { return p.PublishTickPrice(ctx, tick) })
	return nil
}

// PublishTrade offers the trade to every sink.
func (f *Fanout) PublishTrade(ctx context.Context, trade domain.Trade) error {
	f.each(func(p domain.Publisher) error { return p.PublishTrade(ctx, trade) })
	return nil
}

// Close stops the sink workers after their queues drain. No publishes may be
// issued after Close.
func (f *Fanout) Close() {
	f.closeOnce.Do(func() {
		for _, w := range f.workers {
			close(w.queue)
		}
	})
	f.wg.Wait()
}

// each enqueues the publish for every sink without blocking; a full sink
// queue drops the message for that sink only.
func (f *Fanout) each(publish func(domain.Publisher) error) {
	for _, w := range f.workers {
		select {
		case w.queue <- publish:
		default:
			f.logger.Debug("sink backlog full, message dropped",
				slog.String("sink", w.sink.Name()),
			)
		}
	}
}

func (f *Fanout) run(w *sinkWorker) {
	defer f.wg.Done()
	for job := range w.queue {
		if err := job(w.sink); err != nil {
			f.logger.Warn("sink publish failed",
				slog.String("sink", w.sink.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}

var _ domain.Publisher = (*Fanout)(nil)
