package ws

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/transport"
)

func TestNewTransportValidatesScheme(t *testing.T) {
	_, err := NewTransport("http://example.com/mcp", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be ws or wss")

	_, err = NewTransport("://bad", Options{})
	require.Error(t, err)

	tr, err := NewTransport("ws://example.com/mcp", Options{Logger: logx.NewNilLogger()})
	require.NoError(t, err)
	assert.False(t, tr.IsAlive())

	tr, err = NewTransport("wss://example.com/mcp", Options{
		Header: http.Header{"Authorization": []string{"Bearer x"}},
	})
	require.NoError(t, err)
	assert.NotNil(t, tr)
}

func TestSendBeforeConnectFails(t *testing.T) {
	tr, err := NewTransport("ws://example.com/mcp", Options{Logger: logx.NewNilLogger()})
	require.NoError(t, err)

	sendErr := tr.Send(context.Background(), []byte("{}"))
	assert.ErrorIs(t, sendErr, transport.ErrClosed)
}

func TestCloseBeforeConnect(t *testing.T) {
	tr, err := NewTransport("ws://example.com/mcp", Options{Logger: logx.NewNilLogger()})
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	connectErr := tr.Connect(context.Background())
	assert.ErrorIs(t, connectErr, transport.ErrClosed)
}
