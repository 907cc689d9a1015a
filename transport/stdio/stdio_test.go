package stdio

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/transport"
)

// streamPair wires a transport to in-memory pipes: what the transport sends
// arrives on out, what the test writes to in arrives at Receive.
func streamPair(t *testing.T) (*Transport, *io.PipeWriter, *bufio.Reader) {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	tr := NewTransportWithStreams(inR, outW, Options{Logger: logx.NewNilLogger()})
	require.NoError(t, tr.Connect(context.Background()))
	t.Cleanup(func() { _ = tr.Close() })
	return tr, inW, bufio.NewReader(outR)
}

// sendAsync runs Send in a goroutine: pipe writes block until the test
// reads the other end.
func sendAsync(tr *Transport, data []byte) chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- tr.Send(context.Background(), data) }()
	return errCh
}

func TestSendFramesWithNewline(t *testing.T) {
	tr, _, out := streamPair(t)

	errCh := sendAsync(tr, []byte(`{"id":1}`))
	line, err := out.ReadString('\n')
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, "{\"id\":1}\n", line)
}

func TestSendDoesNotDoubleFrame(t *testing.T) {
	tr, _, out := streamPair(t)

	errCh := sendAsync(tr, []byte("{\"id\":2}\n"))
	line, err := out.ReadString('\n')
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, "{\"id\":2}\n", line)
}

func TestReceiveSplitsLines(t *testing.T) {
	tr, in, _ := streamPair(t)

	go func() {
		_, _ = in.Write([]byte("{\"a\":1}\r\n{\"b\":2}\n"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(first))

	second, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(second))
}

func TestReceiveEOFWhenStreamEnds(t *testing.T) {
	tr, in, _ := streamPair(t)

	go func() {
		_, _ = in.Write([]byte("{\"last\":true}\n"))
		_ = in.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := tr.Receive(ctx)
	require.NoError(t, err)

	_, err = tr.Receive(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReceiveHonorsContext(t *testing.T) {
	tr, _, _ := streamPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendAfterCloseFails(t *testing.T) {
	tr, _, _ := streamPair(t)
	require.NoError(t, tr.Close())

	err := tr.Send(context.Background(), []byte("{}"))
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	tr, _, _ := streamPair(t)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsAlive())
}

func TestConnectFailsForMissingBinary(t *testing.T) {
	tr := NewTransport(LaunchConfig{Command: "/nonexistent/lmcp-test-binary"},
		Options{Logger: logx.NewNilLogger()})

	err := tr.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start process")
	assert.False(t, tr.IsAlive())
	assert.Equal(t, 0, tr.PID())
}

func TestSendBeforeConnectFails(t *testing.T) {
	tr := NewTransport(LaunchConfig{Command: "true"}, Options{Logger: logx.NewNilLogger()})
	err := tr.Send(context.Background(), []byte("{}"))
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestLaunchConfigString(t *testing.T) {
	assert.Equal(t, "npx", LaunchConfig{Command: "npx"}.String())
	assert.Equal(t, "npx -y server", LaunchConfig{Command: "npx", Args: []string{"-y", "server"}}.String())
}
