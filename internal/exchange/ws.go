package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantex/marketfeed/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before a reconnect attempt.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// wireLevel is a [price, size] pair as carried on the feed wire.
type wireLevel [2]string

// wireMessage is the envelope of every inbound feed message.
type wireMessage struct {
	Type   string      `json:"type"` // "l2snapshot", "l2update", "trade"
	Market string      `json:"market"`
	Bids   []wireLevel `json:"bids,omitempty"`
	Asks   []wireLevel `json:"asks,omitempty"`
	Side   string      `json:"side,omitempty"`
	Price  string      `json:"price,omitempty"`
	Amount string      `json:"amount,omitempty"`
}

// wireCommand is an outbound subscription command.
type wireCommand struct {
	Op     string `json:"op"`
	Market string `json:"market"`
}

// WSFeed is a FeedClient over a websocket level-2 feed. It manages the
// connection lifecycle, keep-alive, reconnection with exponential backoff,
// and subscription restore after reconnect.
type WSFeed struct {
	name    string
	wsURL   string
	catalog *CatalogClient
	logger  *slog.Logger

	mu            sync.RWMutex
	conn          *websocket.Conn
	connDone      chan struct{} // closed when conn is replaced or the client closes
	closed        bool
	subscriptions []wireCommand

	events chan domain.FeedEvent
	done   chan struct{}
}

// NewWSFeed creates a websocket feed client for the given exchange. The
// catalog client serves market discovery; it may not be nil.
func NewWSFeed(name, wsURL string, catalog *CatalogClient, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		name:    name,
		wsURL:   wsURL,
		catalog: catalog,
		logger:  logger.With(slog.String("component", "ws_feed"), slog.String("exchange", name)),
		events:  make(chan domain.FeedEvent, 256),
		done:    make(chan struct{}),
	}
}

// Name implements FeedClient.
func (w *WSFeed) Name() string { return w.name }

// Markets implements FeedClient via the REST catalog.
func (w *WSFeed) Markets(ctx context.Context) ([]domain.Market, error) {
	return w.catalog.Markets(ctx)
}

// Connect establishes the websocket connection and starts the read and ping
// loops.
func (w *WSFeed) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return domain.ErrFeedClosed
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("exchange/ws: connect %s: %w", w.name, err)
	}

	// Retire the previous connection and its loops before swapping in the
	// new one, so a flapping feed never accumulates pingers.
	if w.connDone != nil {
		close(w.connDone)
	}
	if w.conn != nil {
		_ = w.conn.Close()
	}

	w.conn = conn
	w.connDone = make(chan struct{})

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn)
	go w.pingLoop(conn, w.connDone)

	// Restore any previous subscriptions after reconnect.
	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("exchange/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Subscribe implements FeedClient. The feed delivers both level-2 and trade
// events for a subscribed market.
func (w *WSFeed) Subscribe(market domain.Market) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("exchange/ws: %s not connected", w.name)
	}

	cmd := wireCommand{Op: "subscribe", Market: market.ID}
	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("exchange/ws: subscribe %s: %w", market.ID, err)
	}

	// Track for restore on reconnection.
	w.subscriptions = append(w.subscriptions, cmd)
	return nil
}

// Events implements FeedClient.
func (w *WSFeed) Events() <-chan domain.FeedEvent { return w.events }

// Close shuts down the connection and stops the loops.
func (w *WSFeed) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	if w.connDone != nil {
		close(w.connDone)
		w.connDone = nil
	}

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// sendCommand sends a JSON command. Caller must hold w.mu.
func (w *WSFeed) sendCommand(cmd wireCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads messages from its own connection and converts them to feed
// events. On disconnect it hands over to reconnect, unless a newer
// connection has already replaced this one.
func (w *WSFeed) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}

			w.mu.RLock()
			stale := w.conn != conn
			w.mu.RUnlock()
			if stale {
				return
			}

			w.reconnect()
			return // a fresh readLoop starts from reconnect -> Connect
		}

		w.handleMessage(message)
	}
}

// pingLoop keeps one connection alive. It exits when that connection is
// retired, so reconnects never stack pingers.
func (w *WSFeed) pingLoop(conn *websocket.Conn, connDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-connDone:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses one wire message and emits the matching feed event.
// Unparseable messages are dropped silently.
func (w *WSFeed) handleMessage(raw []byte) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	var ev domain.FeedEvent
	switch msg.Type {
	case "l2snapshot":
		ev = domain.SnapshotEvent{
			Exchange: w.name,
			MarketID: msg.Market,
			Bids:     rawLevels(msg.Bids),
			Asks:     rawLevels(msg.Asks),
		}
	case "l2update":
		ev = domain.UpdateEvent{
			Exchange: w.name,
			MarketID: msg.Market,
			Bids:     rawLevels(msg.Bids),
			Asks:     rawLevels(msg.Asks),
		}
	case "trade":
		ev = domain.TradeEvent{
			Trade: domain.Trade{
				Exchange: w.name,
				MarketID: msg.Market,
				Side:     domain.TradeSide(msg.Side),
				Price:    msg.Price,
				Amount:   msg.Amount,
			},
		}
	default:
		return
	}

	select {
	case w.events <- ev:
	case <-w.done:
	}
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the client is closed.
func (w *WSFeed) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.logger.Info("feed reconnecting", slog.Int64("delay_ms", delay.Milliseconds()))
		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func rawLevels(levels []wireLevel) []domain.RawLevel {
	out := make([]domain.RawLevel, len(levels))
	for i, lvl := range levels {
		out[i] = domain.RawLevel{Price: lvl[0], Size: lvl[1]}
	}
	return out
}

var _ FeedClient = (*WSFeed)(nil)
