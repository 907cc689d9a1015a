package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/protocol"
	"github.com/lhassa8/LMCP/transport"
)

// sentRequest is one message captured by the mock transport, decoded just
// far enough for assertions and scripted replies.
type sentRequest struct {
	ID     *int64
	Method string
	Params map[string]interface{}
	Raw    []byte
}

// mockTransport implements transport.Transport against an in-memory queue.
// Each Send is recorded; a respond hook may push replies back, which the
// connection's reader loop picks up via Receive.
type mockTransport struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	sent      []sentRequest
	sendErr   error
	respond   func(m *mockTransport, req sentRequest)

	incoming chan []byte
	done     chan struct{}
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		incoming: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

func (m *mockTransport) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return transport.ErrClosed
	}
	m.connected = true
	return nil
}

func (m *mockTransport) Send(ctx context.Context, data []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return transport.ErrClosed
	}
	if m.sendErr != nil {
		err := m.sendErr
		m.mu.Unlock()
		return err
	}

	var frame struct {
		ID     *int64                 `json:"id"`
		Method string                 `json:"method"`
		Params map[string]interface{} `json:"params"`
	}
	_ = json.Unmarshal(data, &frame)
	req := sentRequest{ID: frame.ID, Method: frame.Method, Params: frame.Params, Raw: data}
	m.sent = append(m.sent, req)
	respond := m.respond
	m.mu.Unlock()

	if respond != nil {
		respond(m, req)
	}
	return nil
}

func (m *mockTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-m.incoming:
		if !ok {
			return nil, transport.ErrClosed
		}
		return data, nil
	case <-m.done:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *mockTransport) IsAlive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && !m.closed
}

// push queues a frame for the reader loop.
func (m *mockTransport) push(t *testing.T, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal frame: %v", err)
	}
	select {
	case m.incoming <- data:
	case <-m.done:
	}
}

// pushRaw queues a pre-encoded frame, for malformed-input tests.
func (m *mockTransport) pushRaw(data []byte) {
	select {
	case m.incoming <- data:
	case <-m.done:
	}
}

func (m *mockTransport) reply(t *testing.T, id int64, result interface{}) {
	t.Helper()
	m.push(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func (m *mockTransport) replyError(t *testing.T, id int64, code int, message string) {
	t.Helper()
	m.push(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]interface{}{"code": code, "message": message},
	})
}

// countSent returns how many requests with the given method were sent.
func (m *mockTransport) countSent(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, req := range m.sent {
		if req.Method == method {
			n++
		}
	}
	return n
}

var _ transport.Transport = (*mockTransport)(nil)

// echoToolSchema is the discovery payload served by the scripted responder:
// one echo tool with a required message and an optional suffix.
func echoToolSchema() map[string]interface{} {
	return map[string]interface{}{
		"tools": []map[string]interface{}{
			{
				"name":        "echo",
				"description": "Echoes the message back",
				"inputSchema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"message": map[string]interface{}{"type": "string", "description": "Text to echo"},
						"suffix":  map[string]interface{}{"type": "string"},
					},
					"required": []string{"message"},
				},
			},
		},
	}
}

// scriptedResponder answers initialize, tools/list and tools/call the way a
// minimal echo server would.
func scriptedResponder(t *testing.T) func(m *mockTransport, req sentRequest) {
	return func(m *mockTransport, req sentRequest) {
		if req.ID == nil {
			return // notification, nothing to answer
		}
		switch req.Method {
		case protocol.MethodInitialize:
			m.reply(t, *req.ID, map[string]interface{}{
				"protocolVersion": protocol.CurrentProtocolVersion,
				"capabilities":    map[string]interface{}{},
				"serverInfo":      map[string]interface{}{"name": "echo-server", "version": "1.0.0"},
			})
		case protocol.MethodListTools:
			m.reply(t, *req.ID, echoToolSchema())
		case protocol.MethodCallTool:
			args, _ := req.Params["arguments"].(map[string]interface{})
			msg, _ := args["message"].(string)
			suffix, _ := args["suffix"].(string)
			m.reply(t, *req.ID, map[string]interface{}{
				"content": []map[string]interface{}{
					{"type": "text", "text": msg + suffix},
				},
			})
		case protocol.MethodPing:
			m.reply(t, *req.ID, map[string]interface{}{})
		}
	}
}

// readyConn builds a connected, handshaken Conn over a scripted mock
// transport. The caller owns Close.
func readyConn(t *testing.T, opts ...Option) (*Conn, *mockTransport) {
	t.Helper()
	mt := newMockTransport()
	mt.respond = scriptedResponder(t)
	opts = append([]Option{WithLogger(logx.NewNilLogger())}, opts...)
	conn := NewConn(mt, opts...)
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, mt
}
