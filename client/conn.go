package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/protocol"
	"github.com/lhassa8/LMCP/transport"
)

// State is the lifecycle state of a Conn.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateReady
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NotificationHandler receives unsolicited server notifications. The default
// handler ignores them.
type NotificationHandler func(n *protocol.JSONRPCNotification)

// callOutcome is the single-fulfillment completion slot of one in-flight
// request: exactly one of resp or err is set, delivered to exactly one
// waiting caller.
type callOutcome struct {
	resp *protocol.JSONRPCResponse
	err  error
}

// Conn represents one live session with one tool server. Multiple calls may
// be outstanding concurrently; a single reader loop owns the transport's
// receive side and correlates responses to callers purely by request id.
type Conn struct {
	id        uuid.UUID
	cfg       Config
	transport transport.Transport
	logger    logx.Logger

	state  atomic.Int32
	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan callOutcome

	infoMu     sync.RWMutex
	serverInfo protocol.Implementation
	serverCaps protocol.ServerCapabilities

	registry *SchemaRegistry

	readerDone chan struct{}
	createdAt  time.Time
}

// NewConn creates a connection over the given transport. The connection
// starts Disconnected; call Connect to launch the transport and perform the
// handshake.
func NewConn(t transport.Transport, opts ...Option) *Conn {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Conn{
		id:         uuid.New(),
		cfg:        cfg,
		transport:  t,
		logger:     cfg.Logger,
		pending:    make(map[int64]chan callOutcome),
		readerDone: make(chan struct{}),
		createdAt:  time.Now(),
	}
	c.registry = newSchemaRegistry(c)
	c.state.Store(int32(StateDisconnected))
	return c
}

// ID returns the connection's opaque handle.
func (c *Conn) ID() uuid.UUID { return c.id }

// Name returns the configured display name for logging.
func (c *Conn) Name() string { return c.cfg.Name }

// State returns the current lifecycle state.
func (c *Conn) State() State { return State(c.state.Load()) }

// IsReady reports whether callMethod-style operations are currently accepted.
func (c *Conn) IsReady() bool { return c.State() == StateReady }

// CreatedAt returns the connection's creation time.
func (c *Conn) CreatedAt() time.Time { return c.createdAt }

// Registry returns the per-connection schema registry.
func (c *Conn) Registry() *SchemaRegistry { return c.registry }

// ServerInfo returns the server implementation info learned in the handshake.
func (c *Conn) ServerInfo() protocol.Implementation {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()
	return c.serverInfo
}

// ServerCapabilities returns the capabilities declared by the server.
func (c *Conn) ServerCapabilities() protocol.ServerCapabilities {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()
	return c.serverCaps
}

// Connect launches the transport, starts the reader loop and performs the
// initialize handshake. On any failure the transport is torn down and the
// connection is left Disconnected.
func (c *Conn) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		if c.State() == StateClosed || c.State() == StateClosing {
			return ErrConnectionClosed
		}
		return ErrAlreadyConnected
	}

	if err := c.transport.Connect(ctx); err != nil {
		c.state.Store(int32(StateDisconnected))
		return NewLaunchError(c.cfg.Name, err)
	}

	go c.readLoop()

	c.state.Store(int32(StateHandshaking))
	if err := c.handshake(ctx); err != nil {
		// Tear the process down; the reader loop exits on transport close.
		c.state.Store(int32(StateClosing))
		_ = c.transport.Close()
		<-c.readerDone
		c.state.Store(int32(StateDisconnected))
		return err
	}

	c.state.Store(int32(StateReady))
	c.logger.Info("connection %s ready (server=%s %s)", c.id, c.ServerInfo().Name, c.ServerInfo().Version)
	return nil
}

// handshake sends the initialize request, awaits the capability response
// within the handshake timeout, and acknowledges with the initialized
// notification.
func (c *Conn) handshake(ctx context.Context) error {
	hsCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	params := protocol.InitializeRequestParams{
		ProtocolVersion: protocol.CurrentProtocolVersion,
		Capabilities:    c.cfg.Capabilities,
		ClientInfo:      c.cfg.ClientInfo,
	}

	resp, err := c.call(hsCtx, protocol.MethodInitialize, params)
	if err != nil {
		if IsTimeoutError(err) || errors.Is(err, context.DeadlineExceeded) {
			return NewHandshakeError(HandshakeTimeout, "no initialize response", err)
		}
		return NewHandshakeError(HandshakeMalformed, "initialize exchange failed", err)
	}
	if resp.Error != nil {
		return NewHandshakeError(HandshakeRejected, resp.Error.Message, nil)
	}

	var result protocol.InitializeResult
	if err := decodePayload(resp.Result, &result); err != nil {
		return NewHandshakeError(HandshakeMalformed, "could not parse initialize result", err)
	}
	if result.ProtocolVersion == "" {
		return NewHandshakeError(HandshakeMalformed, "initialize result missing protocolVersion", nil)
	}

	c.infoMu.Lock()
	c.serverInfo = result.ServerInfo
	c.serverCaps = result.Capabilities
	c.infoMu.Unlock()

	if err := c.notify(protocol.MethodInitialized, protocol.InitializedNotificationParams{}); err != nil {
		return NewHandshakeError(HandshakeMalformed, "failed to acknowledge handshake", err)
	}
	return nil
}

// Call sends a request and suspends the caller until the matching response
// arrives, the context is done, or the connection closes. Only accepted in
// the Ready state.
func (c *Conn) Call(ctx context.Context, method string, params interface{}) (*protocol.JSONRPCResponse, error) {
	switch c.State() {
	case StateReady:
	case StateClosing, StateClosed:
		return nil, ErrConnectionClosed
	default:
		return nil, ErrNotConnected
	}
	return c.call(ctx, method, params)
}

// call is the state-agnostic request path, shared with the handshake.
func (c *Conn) call(ctx context.Context, method string, params interface{}) (*protocol.JSONRPCResponse, error) {
	if _, ok := ctx.Deadline(); !ok && c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	id := c.nextID.Add(1)
	outcome := make(chan callOutcome, 1)

	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.pending[id] = outcome
	c.mu.Unlock()

	data, err := json.Marshal(protocol.NewRequest(id, method, params))
	if err != nil {
		c.unregister(id)
		return nil, &ClientError{Message: "failed to marshal request", Cause: err}
	}

	if err := c.transport.Send(ctx, data); err != nil {
		c.unregister(id)
		if errors.Is(err, transport.ErrClosed) {
			return nil, NewConnectionLostError("send on dead transport", err)
		}
		return nil, &ClientError{Message: "failed to send request", Cause: err}
	}

	select {
	case out := <-outcome:
		return out.resp, out.err
	case <-ctx.Done():
		// Only this caller's wait is cancelled; a late response for this
		// id is dropped by the reader loop.
		c.unregister(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewTimeoutError(method, c.cfg.RequestTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// Notify sends a fire-and-forget notification. Only accepted in the Ready
// state.
func (c *Conn) Notify(method string, params interface{}) error {
	if c.State() != StateReady {
		if c.State() == StateClosed || c.State() == StateClosing {
			return ErrConnectionClosed
		}
		return ErrNotConnected
	}
	return c.notify(method, params)
}

func (c *Conn) notify(method string, params interface{}) error {
	data, err := json.Marshal(protocol.NewNotification(method, params))
	if err != nil {
		return &ClientError{Message: "failed to marshal notification", Cause: err}
	}
	if err := c.transport.Send(context.Background(), data); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return NewConnectionLostError("send on dead transport", err)
		}
		return &ClientError{Message: "failed to send notification", Cause: err}
	}
	return nil
}

// Ping probes the server for liveness.
func (c *Conn) Ping(ctx context.Context) error {
	resp, err := c.Call(ctx, protocol.MethodPing, struct{}{})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return NewServerError(protocol.MethodPing, int(resp.Error.Code), resp.Error.Message)
	}
	return nil
}

// Close cancels every pending request with a ConnectionLostError, terminates
// the transport (and with it the server process) and marks the connection
// Closed. Idempotent.
func (c *Conn) Close() error {
	for {
		s := c.State()
		if s == StateClosed || s == StateClosing {
			return nil
		}
		if c.state.CompareAndSwap(int32(s), int32(StateClosing)) {
			break
		}
	}

	c.failPending(NewConnectionLostError("connection closed", ErrConnectionClosed))
	err := c.transport.Close()
	c.state.Store(int32(StateClosed))
	c.logger.Debug("connection %s closed", c.id)
	return err
}

// readLoop is the sole receive consumer for this connection. It correlates
// responses by request id and dispatches notifications; on transport death
// it fails every pending request and marks the connection Closed.
func (c *Conn) readLoop() {
	defer close(c.readerDone)
	for {
		data, err := c.transport.Receive(context.Background())
		if err != nil {
			c.handleTransportFailure(err)
			return
		}
		if len(data) == 0 {
			continue
		}

		var base protocol.BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			c.logger.Error("unrecoverable parse failure on connection %s: %v", c.id, err)
			_ = c.transport.Close()
			c.handleTransportFailure(err)
			return
		}

		switch {
		case base.ID != nil:
			c.dispatchResponse(&base)
		case base.Method != "":
			c.dispatchNotification(&base, data)
		default:
			c.logger.Warn("dropping frame that is neither response nor notification")
		}
	}
}

func (c *Conn) dispatchResponse(base *protocol.BaseMessage) {
	id := *base.ID

	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		// Timed-out caller already gave up, or the server invented an id.
		c.logger.Debug("dropping response for unknown request id %d", id)
		return
	}

	resp := &protocol.JSONRPCResponse{
		JSONRPC: base.JSONRPC,
		ID:      base.ID,
		Error:   base.Error,
	}
	if len(base.Result) > 0 {
		var result interface{}
		if err := json.Unmarshal(base.Result, &result); err != nil {
			ch <- callOutcome{err: &ClientError{Message: "failed to decode result", Cause: err}}
			return
		}
		resp.Result = result
	}
	ch <- callOutcome{resp: resp}
}

func (c *Conn) dispatchNotification(base *protocol.BaseMessage, raw []byte) {
	handler := c.cfg.NotificationHandler
	if handler == nil {
		c.logger.Debug("ignoring notification %s", base.Method)
		return
	}
	var n protocol.JSONRPCNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		c.logger.Warn("failed to parse notification %s: %v", base.Method, err)
		return
	}
	handler(&n)
}

// handleTransportFailure fails all pending requests and transitions to
// Closed, unless an orderly Close is already in progress.
func (c *Conn) handleTransportFailure(cause error) {
	s := c.State()
	if s == StateClosing || s == StateClosed {
		return
	}
	c.logger.Warn("connection %s lost: %v", c.id, cause)
	c.failPending(NewConnectionLostError("transport failed", cause))
	_ = c.transport.Close()
	c.state.Store(int32(StateClosed))
}

// failPending delivers err to every waiting caller and refuses further
// registrations.
func (c *Conn) failPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- callOutcome{err: err}
	}
}

func (c *Conn) unregister(id int64) {
	c.mu.Lock()
	if c.pending != nil {
		delete(c.pending, id)
	}
	c.mu.Unlock()
}
