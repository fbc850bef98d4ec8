package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantex/marketfeed/internal/domain"
)

// TablePublisher persists ticks to a PostgreSQL table. One row per tick:
// partition key is the asset, row key is "<source>_<timestamp>". Trades are
// intentionally not persisted by this sink, and full books are skipped to
// keep row volume bounded.
type TablePublisher struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewTablePublisher creates the target table when it does not exist yet and
// returns the publisher.
func NewTablePublisher(ctx context.Context, pool *pgxpool.Pool, table string, logger *slog.Logger) (*TablePublisher, error) {
	ident := pgx.Identifier{table}.Sanitize()
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			partition_key      text        NOT NULL,
			row_key            text        NOT NULL,
			original_timestamp timestamptz NOT NULL,
			bid                text        NOT NULL,
			ask                text        NOT NULL,
			PRIMARY KEY (partition_key, row_key)
		)`, ident)

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("publish: create table %s: %w", table, err)
	}

	return &TablePublisher{
		pool:   pool,
		table:  ident,
		logger: logger.With(slog.String("component", "table_publisher"), slog.String("table", table)),
	}, nil
}

// Name implements domain.Publisher.
func (p *TablePublisher) Name() string { return "table" }

// PublishOrderBook is a no-op; the table stores ticks only.
func (p *TablePublisher) PublishOrderBook(ctx context.Context, book domain.PublishingOrderBook) error {
	return nil
}

// PublishTickPrice inserts one row for the tick. A duplicate row key (same
// source and timestamp) is overwritten rather than rejected.
func (p *TablePublisher) PublishTickPrice(ctx context.Context, tick domain.TickPrice) error {
	ts, err := time.Parse(time.RFC3339Nano, tick.Timestamp)
	if err != nil {
		return fmt.Errorf("publish: tick timestamp %q: %w", tick.Timestamp, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (partition_key, row_key, original_timestamp, bid, ask)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (partition_key, row_key)
		DO UPDATE SET original_timestamp = EXCLUDED.original_timestamp,
		              bid = EXCLUDED.bid, ask = EXCLUDED.ask`, p.table)

	rowKey := tick.Source + "_" + tick.Timestamp
	if _, err := p.pool.Exec(ctx, query, tick.Asset, rowKey, ts, tick.Bid, tick.Ask); err != nil {
		return fmt.Errorf("publish: insert tick %s: %w", tick.Asset, err)
	}
	return nil
}

// PublishTrade is a no-op by design; trades are not persisted here.
func (p *TablePublisher) PublishTrade(ctx context.Context, trade domain.Trade) error {
	return nil
}

var _ domain.Publisher = (*TablePublisher)(nil)
