package publish

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantex/marketfeed/internal/domain"
)

// StreamWriter is the write side of the reconnecting socket transport.
type StreamWriter interface {
	Write(data []byte) error
	Writable() bool
}

// frameHeaderSize is the length prefix in bytes: a big-endian uint32 of the
// JSON payload length.
const frameHeaderSize = 4

// envelope is the JSON payload of one frame.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SocketPublisher writes ticks and trades as length-prefixed JSON frames
// over a stream connection. Delivery is best-effort at-most-once: when the
// transport is not writable the message is dropped without buffering or
// retry. Full order books are not part of the socket protocol.
type SocketPublisher struct {
	sock   StreamWriter
	logger *slog.Logger
}

// NewSocketPublisher creates a SocketPublisher over sock.
func NewSocketPublisher(sock StreamWriter, logger *slog.Logger) *SocketPublisher {
	return &SocketPublisher{
		sock:   sock,
		logger: logger.With(slog.String("component", "socket_publisher")),
	}
}

// Name implements domain.Publisher.
func (p *SocketPublisher) Name() string { return "socket" }

// PublishOrderBook is a no-op; the socket consumer only takes ticks and
// trades.
func (p *SocketPublisher) PublishOrderBook(ctx context.Context, book domain.PublishingOrderBook) error {
	return nil
}

// PublishTickPrice frames the tick as {"type":"order","data":tick}.
func (p *SocketPublisher) PublishTickPrice(ctx context.Context, tick domain.TickPrice) error {
	return p.send(envelope{Type: "order", Data: tick})
}

// PublishTrade frames the trade as {"type":"trade","data":trade}.
func (p *SocketPublisher) PublishTrade(ctx context.Context, trade domain.Trade) error {
	return p.send(envelope{Type: "trade", Data: trade})
}

func (p *SocketPublisher) send(env envelope) error {
	buf, err := frame(env)
	if err != nil {
		return err
	}

	if err := p.sock.Write(buf); err != nil {
		if errors.Is(err, domain.ErrNotWritable) {
			// Explicit drop policy while the transport is down.
			p.logger.Debug("transport down, message dropped",
				slog.String("type", env.Type),
			)
			return nil
		}
		return err
	}
	return nil
}

// frame encodes an envelope as UTF-8 JSON prefixed by a 4-byte big-endian
// payload length, returned as one contiguous buffer so the transport issues
// a single write.
func frame(env envelope) ([]byte, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("publish: encode %s frame: %w", env.Type, err)
	}

	buf := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[:frameHeaderSize], uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)
	return buf, nil
}

var _ domain.Publisher = (*SocketPublisher)(nil)
