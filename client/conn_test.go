package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/protocol"
)

func TestConnectHandshake(t *testing.T) {
	conn, mt := readyConn(t)

	assert.Equal(t, StateReady, conn.State())
	assert.True(t, conn.IsReady())
	assert.Equal(t, "echo-server", conn.ServerInfo().Name)
	assert.Equal(t, "1.0.0", conn.ServerInfo().Version)

	// The handshake is exactly one request plus one notification.
	assert.Equal(t, 1, mt.countSent(protocol.MethodInitialize))
	assert.Equal(t, 1, mt.countSent(protocol.MethodInitialized))
}

func TestConnectRejectsSecondAttempt(t *testing.T) {
	conn, _ := readyConn(t)
	err := conn.Connect(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestConnectHandshakeRejected(t *testing.T) {
	mt := newMockTransport()
	mt.respond = func(m *mockTransport, req sentRequest) {
		if req.ID != nil && req.Method == protocol.MethodInitialize {
			m.replyError(t, *req.ID, -32600, "unsupported protocol version")
		}
	}
	conn := NewConn(mt, WithLogger(logx.NewNilLogger()))

	err := conn.Connect(context.Background())
	require.Error(t, err)
	require.True(t, IsHandshakeError(err))

	var hsErr *HandshakeError
	require.ErrorAs(t, err, &hsErr)
	assert.Equal(t, HandshakeRejected, hsErr.Reason)
	assert.Equal(t, StateDisconnected, conn.State())
}

func TestConnectHandshakeTimeout(t *testing.T) {
	mt := newMockTransport()
	mt.respond = func(m *mockTransport, req sentRequest) {} // never answer
	conn := NewConn(mt,
		WithLogger(logx.NewNilLogger()),
		WithHandshakeTimeout(50*time.Millisecond),
	)

	err := conn.Connect(context.Background())
	require.Error(t, err)

	var hsErr *HandshakeError
	require.ErrorAs(t, err, &hsErr)
	assert.Equal(t, HandshakeTimeout, hsErr.Reason)
	assert.Equal(t, StateDisconnected, conn.State())
}

func TestConnectHandshakeMalformed(t *testing.T) {
	mt := newMockTransport()
	mt.respond = func(m *mockTransport, req sentRequest) {
		if req.ID != nil && req.Method == protocol.MethodInitialize {
			// Result without a protocolVersion is not a valid handshake.
			m.reply(t, *req.ID, map[string]interface{}{"serverInfo": map[string]interface{}{"name": "x"}})
		}
	}
	conn := NewConn(mt, WithLogger(logx.NewNilLogger()))

	err := conn.Connect(context.Background())
	require.Error(t, err)

	var hsErr *HandshakeError
	require.ErrorAs(t, err, &hsErr)
	assert.Equal(t, HandshakeMalformed, hsErr.Reason)
}

func TestCallBeforeConnect(t *testing.T) {
	conn := NewConn(newMockTransport(), WithLogger(logx.NewNilLogger()))
	_, err := conn.Call(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

// Responses delivered out of order must still reach the caller that sent
// the matching request.
func TestConcurrentCallsCorrelateByID(t *testing.T) {
	conn, mt := readyConn(t)

	var pmu sync.Mutex
	var held []sentRequest
	mt.respond = func(m *mockTransport, req sentRequest) {
		if req.Method != "test/op" {
			return
		}
		pmu.Lock()
		defer pmu.Unlock()
		held = append(held, req)
		if len(held) == 2 {
			for i := len(held) - 1; i >= 0; i-- {
				r := held[i]
				m.reply(t, *r.ID, map[string]interface{}{"token": r.Params["token"]})
			}
		}
	}

	results := make(map[string]string)
	var rmu sync.Mutex
	var wg sync.WaitGroup
	for _, token := range []string{"alpha", "beta"} {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			resp, err := conn.Call(context.Background(), "test/op", map[string]interface{}{"token": token})
			require.NoError(t, err)
			payload, ok := resp.Result.(map[string]interface{})
			require.True(t, ok)
			rmu.Lock()
			results[token] = payload["token"].(string)
			rmu.Unlock()
		}(token)
	}
	wg.Wait()

	assert.Equal(t, "alpha", results["alpha"])
	assert.Equal(t, "beta", results["beta"])
}

func TestCallTimeoutDropsLateResponse(t *testing.T) {
	conn, mt := readyConn(t)

	var lateID int64
	var idMu sync.Mutex
	mt.respond = func(m *mockTransport, req sentRequest) {
		if req.Method == "slow/op" {
			idMu.Lock()
			lateID = *req.ID
			idMu.Unlock()
			return // no reply within the deadline
		}
		scriptedResponder(t)(m, req)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := conn.Call(ctx, "slow/op", nil)
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err))

	// The late response must be dropped, not crash or leak to a new caller.
	idMu.Lock()
	mt.reply(t, lateID, map[string]interface{}{"late": true})
	idMu.Unlock()

	require.NoError(t, conn.Ping(context.Background()))
}

func TestCloseFailsAllPending(t *testing.T) {
	conn, mt := readyConn(t)
	mt.respond = func(m *mockTransport, req sentRequest) {} // hang everything

	const n = 5
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := conn.Call(context.Background(), "hang/op", nil)
			errs <- err
		}()
	}

	// Wait until all requests are registered before closing.
	require.Eventually(t, func() bool {
		return mt.countSent("hang/op") == n
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	for i := 0; i < n; i++ {
		err := <-errs
		require.Error(t, err)
		assert.True(t, IsConnectionLostError(err), "expected connection-lost, got %v", err)
	}

	// New work after close fails immediately.
	_, err := conn.Call(context.Background(), "hang/op", nil)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Equal(t, StateClosed, conn.State())
}

func TestCloseIdempotent(t *testing.T) {
	conn, _ := readyConn(t)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}

func TestTransportDeathFailsPending(t *testing.T) {
	conn, mt := readyConn(t)
	mt.respond = func(m *mockTransport, req sentRequest) {}

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Call(context.Background(), "hang/op", nil)
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return mt.countSent("hang/op") == 1
	}, time.Second, 5*time.Millisecond)

	// Simulate the server dying mid-request.
	require.NoError(t, mt.Close())

	err := <-errCh
	require.Error(t, err)
	assert.True(t, IsConnectionLostError(err))

	require.Eventually(t, func() bool {
		return conn.State() == StateClosed
	}, time.Second, 5*time.Millisecond)
}

func TestUnknownResponseIDIgnored(t *testing.T) {
	conn, mt := readyConn(t)

	mt.reply(t, 9999, map[string]interface{}{"orphan": true})

	// The connection keeps working after dropping the orphan frame.
	require.NoError(t, conn.Ping(context.Background()))
	assert.Equal(t, StateReady, conn.State())
}

func TestNotificationDispatch(t *testing.T) {
	got := make(chan string, 1)
	conn, mt := readyConn(t, WithNotificationHandler(func(n *protocol.JSONRPCNotification) {
		got <- n.Method
	}))
	defer conn.Close()

	mt.push(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "notifications/tools/list_changed",
		"params":  map[string]interface{}{},
	})

	select {
	case method := <-got:
		assert.Equal(t, "notifications/tools/list_changed", method)
	case <-time.After(time.Second):
		t.Fatal("notification was not dispatched")
	}
}

func TestPing(t *testing.T) {
	conn, mt := readyConn(t)
	require.NoError(t, conn.Ping(context.Background()))
	assert.Equal(t, 1, mt.countSent(protocol.MethodPing))
}
