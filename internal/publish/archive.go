package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantex/marketfeed/internal/domain"
)

// ArchivePublisher batches published ticks and flushes them to object
// storage as NDJSON objects under ticks/<date>/<uuid>.ndjson. Flushing is
// best-effort: a failed upload drops the batch and is logged by the fan-out.
type ArchivePublisher struct {
	writer        domain.BlobWriter
	prefix        string
	maxBatch      int
	flushInterval time.Duration
	logger        *slog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
	n   int
}

// NewArchivePublisher creates an ArchivePublisher writing through writer.
// maxBatch bounds the ticks per object; flushInterval bounds how long a
// partial batch may linger.
func NewArchivePublisher(writer domain.BlobWriter, prefix string, maxBatch int, flushInterval time.Duration, logger *slog.Logger) *ArchivePublisher {
	if prefix == "" {
		prefix = "ticks"
	}
	if maxBatch <= 0 {
		maxBatch = 500
	}
	if flushInterval <= 0 {
		flushInterval = time.Minute
	}
	return &ArchivePublisher{
		writer:        writer,
		prefix:        prefix,
		maxBatch:      maxBatch,
		flushInterval: flushInterval,
		logger:        logger.With(slog.String("component", "archive_publisher")),
	}
}

// Run flushes partial batches on a timer until the context is cancelled,
// then performs a final flush.
func (p *ArchivePublisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := p.Flush(flushCtx); err != nil {
				p.logger.Warn("final flush failed", slog.String("error", err.Error()))
			}
			return ctx.Err()
		case <-ticker.C:
			if err := p.Flush(ctx); err != nil {
				p.logger.Warn("interval flush failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Name implements domain.Publisher.
func (p *ArchivePublisher) Name() string { return "archive" }

// PublishOrderBook is a no-op; the archive keeps ticks only.
func (p *ArchivePublisher) PublishOrderBook(ctx context.Context, book domain.PublishingOrderBook) error {
	return nil
}

// PublishTickPrice appends the tick to the current batch, flushing when the
// batch is full.
func (p *ArchivePublisher) PublishTickPrice(ctx context.Context, tick domain.TickPrice) error {
	line, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("publish: encode archive tick: %w", err)
	}

	p.mu.Lock()
	p.buf.Write(line)
	p.buf.WriteByte('\n')
	p.n++
	full := p.n >= p.maxBatch
	p.mu.Unlock()

	if full {
		return p.Flush(ctx)
	}
	return nil
}

// PublishTrade is a no-op; trades are not archived.
func (p *ArchivePublisher) PublishTrade(ctx context.Context, trade domain.Trade) error {
	return nil
}

// Flush uploads the current batch, if any, as one NDJSON object.
func (p *ArchivePublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.n == 0 {
		p.mu.Unlock()
		return nil
	}
	batch := make([]byte, p.buf.Len())
	copy(batch, p.buf.Bytes())
	count := p.n
	p.buf.Reset()
	p.n = 0
	p.mu.Unlock()

	path := fmt.Sprintf("%s/%s/%s.ndjson",
		p.prefix, time.Now().UTC().Format("2006-01-02"), uuid.NewString())

	if err := p.writer.Put(ctx, path, bytes.NewReader(batch), "application/x-ndjson"); err != nil {
		return fmt.Errorf("publish: archive %d ticks to %s: %w", count, path, err)
	}

	p.logger.Debug("tick batch archived",
		slog.String("path", path),
		slog.Int("count", count),
	)
	return nil
}

var _ domain.Publisher = (*ArchivePublisher)(nil)
