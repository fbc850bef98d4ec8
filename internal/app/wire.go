package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/quantex/marketfeed/internal/blob/s3"
	busredis "github.com/quantex/marketfeed/internal/bus/redis"
	"github.com/quantex/marketfeed/internal/config"
	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/publish"
	"github.com/quantex/marketfeed/internal/store/postgres"
	"github.com/quantex/marketfeed/internal/transport"
)

// Dependencies bundles the sinks and the transport the feeds publish
// through. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Socket is the raw TCP connection to the downstream sanitizer.
	Socket *transport.Socket

	// Publisher fans every event out to all enabled sinks.
	Publisher domain.Publisher

	// Archive is non-nil when the S3 sink is enabled; its Run loop must be
	// supervised by the caller.
	Archive *publish.ArchivePublisher
}

// Wire constructs the transport and every enabled sink from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Sanitizer socket (always on; reconnects in the background) ---
	sock := transport.New(transport.Config{
		Addr:              fmt.Sprintf("%s:%d", cfg.Sanitizer.Host, cfg.Sanitizer.Port),
		ReconnectInterval: cfg.Sanitizer.ReconnectInterval.Duration,
		Timeout:           cfg.Sanitizer.Timeout.Duration,
	}, logger)
	if err := sock.Connect(); err != nil {
		// Reconnection is already scheduled; publishing drops until then.
		logger.Warn("sanitizer not reachable at startup", slog.String("error", err.Error()))
	}
	closers = append(closers, func() { _ = sock.Close() })
	deps.Socket = sock

	sinks := []domain.Publisher{
		publish.NewSocketPublisher(sock, logger),
	}

	// --- Redis fanout sink ---
	if cfg.Redis.Enabled {
		redisClient, err := busredis.New(ctx, busredis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		bus := busredis.NewSignalBus(redisClient)
		sinks = append(sinks, publish.NewBusPublisher(
			bus, publish.OrderBooksChannel, publish.TickPricesChannel, logger,
		))
	}

	// --- Postgres tick table sink ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		table, err := publish.NewTablePublisher(ctx, pgClient.Pool(), cfg.Postgres.Table, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: table publisher: %w", err)
		}
		sinks = append(sinks, table)
	}

	// --- S3 tick archive sink ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		archive := publish.NewArchivePublisher(s3blob.NewWriter(s3Client), cfg.S3.Prefix, 0, 0, logger)
		deps.Archive = archive
		sinks = append(sinks, archive)
	}

	fanout := publish.NewFanout(logger, sinks...)
	// Appended last so cleanup drains the fanout workers before the sink
	// clients they publish through are closed.
	closers = append(closers, fanout.Close)
	deps.Publisher = fanout
	return deps, cleanup, nil
}
