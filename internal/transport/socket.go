// Package transport provides a reconnecting TCP stream connection for the
// socket-based sink. The connection recycles itself on peer close and on
// inactivity timeout; writes during a disconnected window are dropped, never
// queued.
package transport

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/quantex/marketfeed/internal/domain"
)

// Status is the connection state of a Socket.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Config holds the connection parameters for a Socket.
type Config struct {
	Addr string

	// ReconnectInterval is the fixed delay before a reconnect attempt.
	ReconnectInterval time.Duration

	// Timeout is the inactivity timeout after which the connection is
	// considered dead and recycled. Zero disables the timeout.
	Timeout time.Duration

	// DialTimeout bounds a single dial attempt.
	DialTimeout time.Duration
}

// Socket is a reconnecting stream connection, safe for concurrent writers.
// Reconnection is driven only by peer close and inactivity timeout; a write
// error is logged and does not by itself recycle the connection.
type Socket struct {
	cfg    Config
	logger *slog.Logger

	mu           sync.Mutex
	conn         net.Conn
	status       Status
	reconnecting bool
	closed       bool
}

// New creates a Socket in the disconnected state. Call Connect to establish
// the connection.
func New(cfg Config, logger *slog.Logger) *Socket {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Socket{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "socket"), slog.String("addr", cfg.Addr)),
		status: StatusDisconnected,
	}
}

// Connect attempts the initial connection. On failure the reconnect cycle is
// started and the dial error is returned; the Socket remains usable (writes
// are dropped until it comes up).
func (s *Socket) Connect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return net.ErrClosed
	}
	s.status = StatusConnecting
	s.mu.Unlock()

	conn, err := net.DialTimeout("tcp", s.cfg.Addr, s.cfg.DialTimeout)
	if err != nil {
		s.logger.Warn("connect failed", slog.String("error", err.Error()))
		s.mu.Lock()
		s.status = StatusDisconnected
		s.mu.Unlock()
		s.scheduleReconnect()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.status = StatusConnected
	s.reconnecting = false
	s.mu.Unlock()

	s.logger.Info("socket connected")
	go s.monitor(conn)
	return nil
}

// Writable reports whether the connection is up.
func (s *Socket) Writable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusConnected && s.conn != nil
}

// Status returns the current connection state.
func (s *Socket) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Write sends data as one contiguous write. While disconnected it returns
// ErrNotWritable and the data is dropped. A write error on a live connection
// is logged and returned, but reconnection is left to the close/timeout
// monitor.
func (s *Socket) Write(data []byte) error {
	s.mu.Lock()
	conn := s.conn
	writable := s.status == StatusConnected && conn != nil
	s.mu.Unlock()

	if !writable {
		return domain.ErrNotWritable
	}

	if _, err := conn.Write(data); err != nil {
		s.logger.Warn("socket write failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Close shuts the socket down permanently; no further reconnects happen.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.status = StatusDisconnected
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// monitor blocks on reads to detect peer close and inactivity. The sink
// protocol is write-only; inbound bytes are discarded and only refresh the
// inactivity deadline.
func (s *Socket) monitor(conn net.Conn) {
	buf := make([]byte, 512)
	for {
		if s.cfg.Timeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.Timeout))
		}
		_, err := conn.Read(buf)
		if err == nil {
			continue
		}

		s.mu.Lock()
		stale := s.conn != conn // a newer connection replaced this one
		closed := s.closed
		if !stale && !closed {
			s.conn = nil
			s.status = StatusDisconnected
		}
		s.mu.Unlock()
		_ = conn.Close()

		if stale || closed {
			return
		}

		if errors.Is(err, os.ErrDeadlineExceeded) {
			s.logger.Warn("socket connection timed out")
		} else {
			s.logger.Info("socket closed by peer", slog.String("error", err.Error()))
		}
		s.scheduleReconnect()
		return
	}
}

// scheduleReconnect arms a single reconnect timer; the reconnecting flag
// keeps overlapping close/timeout events from stacking attempts.
func (s *Socket) scheduleReconnect() {
	s.mu.Lock()
	if s.reconnecting || s.closed {
		s.mu.Unlock()
		return
	}
	s.reconnecting = true
	s.mu.Unlock()

	s.logger.Info("reconnecting",
		slog.Int64("delay_ms", s.cfg.ReconnectInterval.Milliseconds()),
	)
	time.AfterFunc(s.cfg.ReconnectInterval, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.reconnecting = false
		s.mu.Unlock()
		_ = s.Connect() // on failure Connect arms the next attempt
	})
}
