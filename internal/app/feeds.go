package app

import (
	"context"
	"log/slog"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/exchange"
	"github.com/quantex/marketfeed/internal/feed"
	events "github.com/quantex/marketfeed/internal/handler"
	"github.com/quantex/marketfeed/internal/symbol"
)

// startFeeds builds one feed client, event handler and relay per exchange
// and starts them under the group. It returns the handlers so the server can
// report their state. An exchange whose catalog cannot be loaded is skipped;
// the rest of the service keeps running.
func (a *App) startFeeds(ctx context.Context, g *errgroup.Group, deps *Dependencies) ([]*events.Events, error) {
	clients, err := a.buildClients(ctx)
	if err != nil {
		return nil, err
	}

	var pipelines []*events.Events
	for _, client := range clients {
		client := client

		markets, err := client.Markets(ctx)
		if err != nil {
			a.logger.Warn("exchange skipped: can't load markets",
				slog.String("exchange", client.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}

		catalog := exchange.NewStaticCatalog(markets)
		selected := feed.SelectMarkets(a.cfg.Main.Symbols, catalog, a.cfg.Main.AssetMappings)
		if len(selected) == 0 {
			a.logger.Warn("exchange skipped: no configured symbols available",
				slog.String("exchange", client.Name()),
			)
			continue
		}

		h := events.NewEvents(events.Config{
			ExchangeName:     client.Name(),
			SourceSuffix:     a.cfg.Main.ExchangeNamesSuffix,
			SnapshotInterval: a.cfg.Main.PublishingInterval.Duration,
			Mappings:         a.cfg.Main.AssetMappings,
		}, deps.Publisher, a.logger)

		relay := feed.NewRelay(client, h, selected, a.logger)
		if err := relay.Subscribe(); err != nil {
			a.logger.Warn("exchange skipped: subscription failed",
				slog.String("exchange", client.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}

		a.closers = append(a.closers, func() { _ = client.Close() })
		g.Go(func() error { return relay.Run(ctx) })
		pipelines = append(pipelines, h)
	}

	a.logger.Info("feeds started", slog.Int("exchanges", len(pipelines)))
	return pipelines, nil
}

// buildClients creates the configured exchange clients, or synthetic ones
// when fake-exchanges mode is on.
func (a *App) buildClients(ctx context.Context) ([]exchange.FeedClient, error) {
	if a.cfg.FakeExchanges.Enabled {
		return a.buildFakeClients(), nil
	}

	var clients []exchange.FeedClient
	for _, e := range a.cfg.Exchanges {
		catalog := exchange.NewCatalogClient(e.ApiURL)
		ws := exchange.NewWSFeed(e.Name, e.WsURL, catalog, a.logger)
		if err := ws.Connect(ctx); err != nil {
			a.logger.Warn("exchange skipped: connect failed",
				slog.String("exchange", e.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		clients = append(clients, ws)
	}
	return clients, nil
}

// buildFakeClients synthesizes random exchanges and symbols. When fake mode
// is on the configured symbol list is replaced by generated pairs, so every
// fake exchange quotes the same random universe.
func (a *App) buildFakeClients() []exchange.FeedClient {
	symbols := randomSymbols(a.cfg.FakeExchanges.SymbolsCount)
	a.cfg.Main.Symbols = symbols

	markets := make([]domain.Market, 0, len(symbols))
	for _, s := range symbols {
		base, quote := symbol.Split(s)
		markets = append(markets, domain.Market{ID: s, Base: base, Quote: quote})
	}

	clients := make([]exchange.FeedClient, 0, a.cfg.FakeExchanges.ExchangesCount)
	for _, name := range randomNames(a.cfg.FakeExchanges.ExchangesCount) {
		clients = append(clients, exchange.NewFakeFeed(name, markets))
	}
	return clients
}

const (
	lowerAlphabet = "abcdefghijklmnopqrstuvwxyz"
	upperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// randomNames generates count distinct lowercase exchange names.
func randomNames(count int) []string {
	seen := make(map[string]bool, count)
	names := make([]string, 0, count)
	for len(names) < count {
		name := randomString(10, lowerAlphabet)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// randomSymbols generates count distinct pairs like "ABC/XYZ".
func randomSymbols(count int) []string {
	seen := make(map[string]bool, count)
	symbols := make([]string, 0, count)
	for len(symbols) < count {
		s := randomString(3, upperAlphabet) + symbol.Separator + randomString(3, upperAlphabet)
		if seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	return symbols
}

func randomString(n int, alphabet string) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
