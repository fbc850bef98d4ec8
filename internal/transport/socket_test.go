package transport_test

import (
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantex/marketfeed/internal/domain"
	"github.com/quantex/marketfeed/internal/transport"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// acceptServer is a minimal TCP peer collecting accepted connections.
type acceptServer struct {
	ln net.Listener

	mu    sync.Mutex
	conns []net.Conn
}

func newAcceptServer(t *testing.T) *acceptServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &acceptServer{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *acceptServer) addr() string { return s.ln.Addr().String() }

func (s *acceptServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *acceptServer) closeConn(i int) {
	s.mu.Lock()
	conn := s.conns[i]
	s.mu.Unlock()
	_ = conn.Close()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestConnectAndWrite(t *testing.T) {
	srv := newAcceptServer(t)

	sock := transport.New(transport.Config{
		Addr:              srv.addr(),
		ReconnectInterval: 50 * time.Millisecond,
	}, discard())
	t.Cleanup(func() { _ = sock.Close() })

	require.NoError(t, sock.Connect())
	waitFor(t, func() bool { return sock.Writable() })
	assert.Equal(t, transport.StatusConnected, sock.Status())

	require.NoError(t, sock.Write([]byte("hello")))

	srv.mu.Lock()
	conn := srv.conns[0]
	srv.mu.Unlock()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 5)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestWriteWhileDisconnectedIsDropped(t *testing.T) {
	sock := transport.New(transport.Config{
		Addr:              "127.0.0.1:1", // nothing listens here
		ReconnectInterval: time.Hour,
	}, discard())
	t.Cleanup(func() { _ = sock.Close() })

	err := sock.Write([]byte("dropped"))
	assert.ErrorIs(t, err, domain.ErrNotWritable)
	assert.False(t, sock.Writable())
	assert.Equal(t, transport.StatusDisconnected, sock.Status())
}

func TestReconnectAfterPeerClose(t *testing.T) {
	srv := newAcceptServer(t)

	sock := transport.New(transport.Config{
		Addr:              srv.addr(),
		ReconnectInterval: 50 * time.Millisecond,
	}, discard())
	t.Cleanup(func() { _ = sock.Close() })

	require.NoError(t, sock.Connect())
	waitFor(t, func() bool { return srv.connCount() == 1 })

	srv.closeConn(0)
	waitFor(t, func() bool { return srv.connCount() == 2 })
	waitFor(t, func() bool { return sock.Writable() })
}

func TestReconnectAfterInactivityTimeout(t *testing.T) {
	srv := newAcceptServer(t)

	sock := transport.New(transport.Config{
		Addr:              srv.addr(),
		ReconnectInterval: 50 * time.Millisecond,
		Timeout:           100 * time.Millisecond,
	}, discard())
	t.Cleanup(func() { _ = sock.Close() })

	require.NoError(t, sock.Connect())
	// The silent peer trips the inactivity deadline and the socket recycles.
	waitFor(t, func() bool { return srv.connCount() >= 2 })
}

func TestInitialDialFailureRetries(t *testing.T) {
	// Reserve an address, then close the listener so the first dial fails.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	sock := transport.New(transport.Config{
		Addr:              addr,
		ReconnectInterval: 50 * time.Millisecond,
		DialTimeout:       200 * time.Millisecond,
	}, discard())
	t.Cleanup(func() { _ = sock.Close() })

	require.Error(t, sock.Connect())

	// Bring the listener back; the armed retry should find it.
	ln2, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln2.Close() })
	go func() {
		for {
			if _, err := ln2.Accept(); err != nil {
				return
			}
		}
	}()

	waitFor(t, func() bool { return sock.Writable() })
}

func TestCloseStopsReconnects(t *testing.T) {
	srv := newAcceptServer(t)

	sock := transport.New(transport.Config{
		Addr:              srv.addr(),
		ReconnectInterval: 20 * time.Millisecond,
	}, discard())

	require.NoError(t, sock.Connect())
	waitFor(t, func() bool { return srv.connCount() == 1 })

	require.NoError(t, sock.Close())
	assert.Equal(t, transport.StatusDisconnected, sock.Status())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, srv.connCount(), "no new connections after Close")
}
