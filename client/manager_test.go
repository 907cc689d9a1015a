package client

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/transport/stdio"
)

func managerForTest() *Manager {
	return NewManager(WithLogger(logx.NewNilLogger()))
}

func openMockConn(t *testing.T, m *Manager) (*Conn, *mockTransport) {
	t.Helper()
	mt := newMockTransport()
	mt.respond = scriptedResponder(t)
	conn, err := m.OpenTransport(context.Background(), mt)
	require.NoError(t, err)
	return conn, mt
}

func TestManagerOpenTransport(t *testing.T) {
	m := managerForTest()
	conn, _ := openMockConn(t, m)
	defer m.CloseAll()

	assert.True(t, conn.IsReady())
	got, ok := m.Get(conn.ID())
	require.True(t, ok)
	assert.Same(t, conn, got)
	assert.Len(t, m.Conns(), 1)
}

func TestManagerOpenLaunchFailure(t *testing.T) {
	m := managerForTest()
	_, err := m.Open(context.Background(), stdio.LaunchConfig{
		Command: "/nonexistent/lmcp-test-binary",
	})
	require.Error(t, err)

	var launchErr *LaunchError
	assert.ErrorAs(t, err, &launchErr)
	assert.Empty(t, m.Conns())
}

func TestManagerOpenFailedHandshakeNotRegistered(t *testing.T) {
	m := managerForTest()
	mt := newMockTransport()
	mt.respond = func(tr *mockTransport, req sentRequest) {
		if req.ID != nil {
			tr.replyError(t, *req.ID, -32600, "go away")
		}
	}
	_, err := m.OpenTransport(context.Background(), mt)
	require.Error(t, err)
	assert.True(t, IsHandshakeError(err))
	assert.Empty(t, m.Conns())
}

func TestManagerClose(t *testing.T) {
	m := managerForTest()
	conn, _ := openMockConn(t, m)

	require.NoError(t, m.Close(conn.ID()))
	assert.Equal(t, StateClosed, conn.State())
	_, ok := m.Get(conn.ID())
	assert.False(t, ok)
}

func TestManagerCloseUnknownID(t *testing.T) {
	m := managerForTest()
	err := m.Close(uuid.New())
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestManagerCloseAll(t *testing.T) {
	m := managerForTest()
	connA, _ := openMockConn(t, m)
	connB, _ := openMockConn(t, m)

	require.NoError(t, m.CloseAll())
	assert.Equal(t, StateClosed, connA.State())
	assert.Equal(t, StateClosed, connB.State())
	assert.Empty(t, m.Conns())

	// Idempotent.
	require.NoError(t, m.CloseAll())
}

func TestManagerPerOpenOptionsOverrideDefaults(t *testing.T) {
	m := NewManager(WithLogger(logx.NewNilLogger()), WithName("default"))
	mt := newMockTransport()
	mt.respond = scriptedResponder(t)
	conn, err := m.OpenTransport(context.Background(), mt, WithName("override"))
	require.NoError(t, err)
	defer m.CloseAll()

	assert.Equal(t, "override", conn.Name())
}

func TestLaunchConfigFingerprint(t *testing.T) {
	a := stdio.LaunchConfig{Command: "npx", Args: []string{"server"}, Env: map[string]string{"A": "1", "B": "2"}}
	b := stdio.LaunchConfig{Command: "npx", Args: []string{"server"}, Env: map[string]string{"B": "2", "A": "1"}}
	c := stdio.LaunchConfig{Command: "npx", Args: []string{"server", "--flag"}}

	// Env map iteration order must not affect identity.
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
