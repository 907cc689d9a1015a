// Package ws provides a WebSocket implementation of the LMCP transport,
// for tool servers reachable over a network instead of a process pipe.
// Each WebSocket text frame carries one complete message.
package ws

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/transport"
)

// Options configures a WebSocket transport.
type Options struct {
	Logger logx.Logger
	// Header is sent with the upgrade request; used for auth headers.
	Header http.Header
}

// Transport implements transport.Transport over a client-mode WebSocket.
type Transport struct {
	endpoint string
	logger   logx.Logger
	header   http.Header

	conn    net.Conn
	writeMu sync.Mutex

	readCh  chan []byte
	readErr error
	done    chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewTransport creates a WebSocket transport for the given ws:// or wss://
// endpoint. The connection is not dialed until Connect.
func NewTransport(endpoint string, opts Options) (*Transport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket endpoint %q: scheme must be ws or wss", endpoint)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}
	return &Transport{
		endpoint: endpoint,
		logger:   logger,
		header:   opts.Header,
		readCh:   make(chan []byte, 16),
		done:     make(chan struct{}),
	}, nil
}

// Connect dials the server and starts the frame reader.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("websocket transport already connected")
	}
	if t.closed {
		return transport.ErrClosed
	}

	dialer := ws.Dialer{}
	if len(t.header) > 0 {
		dialer.Header = ws.HandshakeHeaderHTTP(t.header)
	}

	conn, _, _, err := dialer.Dial(ctx, t.endpoint)
	if err != nil {
		return fmt.Errorf("failed to dial %q: %w", t.endpoint, err)
	}

	t.conn = conn
	t.started = true
	t.logger.Debug("websocket transport connected to %s", t.endpoint)

	go t.readLoop()
	return nil
}

func (t *Transport) readLoop() {
	for {
		data, err := wsutil.ReadServerText(t.conn)
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				t.logger.Warn("websocket read error: %v", err)
				t.readErr = err
			}
			close(t.readCh)
			return
		}
		select {
		case t.readCh <- data:
		case <-t.done:
			return
		}
	}
}

// Send writes one message as a single text frame.
func (t *Transport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	if t.closed || !t.started {
		t.mu.Unlock()
		return transport.ErrClosed
	}
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := wsutil.WriteClientMessage(t.conn, ws.OpText, data); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrClosed, err)
	}
	return nil
}

// Receive returns the next frame, io.EOF-equivalent error when the server
// closes the socket, or ctx.Err() if the caller gives up first.
func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-t.readCh:
		if !ok {
			if t.readErr != nil {
				return nil, t.readErr
			}
			return nil, transport.ErrClosed
		}
		return data, nil
	case <-t.done:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the socket down. Safe to call multiple times.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsAlive reports whether the socket is connected and not closed.
func (t *Transport) IsAlive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.closed
}

var _ transport.Transport = (*Transport)(nil)
