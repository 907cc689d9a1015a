// Package stdio provides a Transport implementation that communicates with
// a child process over its standard input/output streams. Messages are
// newline-delimited JSON, one complete message per line.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/transport"
)

// DefaultGracePeriod is how long Close waits for the child process to exit
// after being signalled before it is forcibly killed.
const DefaultGracePeriod = 5 * time.Second

// LaunchConfig describes how to start a tool server process. The client
// treats it as an opaque value handed over by whatever resolved the server
// package; no installer or catalog logic lives here.
type LaunchConfig struct {
	Command string
	Args    []string
	Dir     string
	Env     map[string]string
}

// Fingerprint returns a stable identity for the launch descriptor, used to
// serialize concurrent opens of the same server.
func (c LaunchConfig) Fingerprint() string {
	var sb strings.Builder
	sb.WriteString(c.Command)
	for _, a := range c.Args {
		sb.WriteString("\x00")
		sb.WriteString(a)
	}
	sb.WriteString("\x00dir=")
	sb.WriteString(c.Dir)
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString("\x00")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(c.Env[k])
	}
	return sb.String()
}

// String renders the descriptor for logging.
func (c LaunchConfig) String() string {
	if len(c.Args) == 0 {
		return c.Command
	}
	return c.Command + " " + strings.Join(c.Args, " ")
}

// Options configures a stdio transport.
type Options struct {
	Logger      logx.Logger
	GracePeriod time.Duration
}

// Transport implements transport.Transport over a child process's stdio.
type Transport struct {
	cfg    LaunchConfig
	logger logx.Logger
	grace  time.Duration

	cmd   *exec.Cmd
	stdin io.WriteCloser

	writeMu sync.Mutex

	readCh   chan []byte
	readErr  error
	readOnce sync.Once

	procDone chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewTransport creates a stdio transport for the given launch descriptor.
// The child process is not started until Connect.
func NewTransport(cfg LaunchConfig, opts Options) *Transport {
	logger := opts.Logger
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Transport{
		cfg:      cfg,
		logger:   logger,
		grace:    grace,
		readCh:   make(chan []byte, 16),
		procDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// NewTransportWithStreams creates a transport over pre-existing streams
// instead of a child process. Used for testing the framing layer; Connect
// is a no-op on the result.
func NewTransportWithStreams(r io.Reader, w io.WriteCloser, opts Options) *Transport {
	t := NewTransport(LaunchConfig{Command: "<streams>"}, opts)
	t.stdin = w
	t.started = true
	go t.readLoop(r)
	return t
}

// Connect starts the child process and begins reading framed messages from
// its stdout.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		if t.cmd == nil {
			return nil // stream-backed, nothing to start
		}
		return fmt.Errorf("stdio transport already connected")
	}
	if t.closed {
		return transport.ErrClosed
	}

	cmd := exec.Command(t.cfg.Command, t.cfg.Args...)
	cmd.Dir = t.cfg.Dir
	if len(t.cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range t.cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start process %q: %w", t.cfg.Command, err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.started = true
	t.logger.Debug("stdio transport started process %s (pid=%d)", t.cfg, cmd.Process.Pid)

	go t.readLoop(stdout)
	go t.drainStderr(stderr)
	go func() {
		err := cmd.Wait()
		if err != nil {
			t.logger.Debug("process %q exited: %v", t.cfg.Command, err)
		}
		close(t.procDone)
	}()

	return nil
}

// readLoop is the sole stdout consumer. Each complete line becomes one
// message on readCh; the channel is closed when the stream ends.
func (t *Transport) readLoop(stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 {
			select {
			case t.readCh <- line:
			case <-t.done:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				t.logger.Warn("stdio read error: %v", err)
			}
			t.readOnce.Do(func() { t.readErr = err })
			close(t.readCh)
			return
		}
	}
}

// drainStderr forwards the child's stderr to the logger so server-side
// diagnostics are not lost.
func (t *Transport) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		t.logger.Debug("server stderr: %s", scanner.Text())
	}
}

// Send writes one newline-framed message to the child's stdin.
func (t *Transport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	if t.closed || !t.started {
		t.mu.Unlock()
		return transport.ErrClosed
	}
	t.mu.Unlock()

	if len(data) == 0 {
		return fmt.Errorf("cannot send empty message")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	framed := append(bytes.TrimRight(data, "\n"), '\n')
	if _, err := t.stdin.Write(framed); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrClosed, err)
	}
	return nil
}

// Receive returns the next framed message. It returns io.EOF once the
// process has closed its stdout, or ctx.Err() if the caller gives up first.
func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case line, ok := <-t.readCh:
		if !ok {
			if t.readErr != nil && t.readErr != io.EOF {
				return nil, t.readErr
			}
			return nil, io.EOF
		}
		return line, nil
	case <-t.done:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close signals the process to terminate, waits up to the grace period,
// then kills it. Safe to call multiple times.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	started := t.started
	close(t.done)
	t.mu.Unlock()

	if !started {
		return nil
	}

	// Closing stdin is the conventional shutdown signal for stdio servers.
	if t.stdin != nil {
		_ = t.stdin.Close()
	}

	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Signal(os.Interrupt)
		select {
		case <-t.procDone:
		case <-time.After(t.grace):
			t.logger.Warn("process %q did not exit within %v, killing", t.cfg.Command, t.grace)
			_ = t.cmd.Process.Kill()
			<-t.procDone
		}
	}

	t.logger.Debug("stdio transport closed for %q", t.cfg.Command)
	return nil
}

// IsAlive reports whether the child process is running and the transport
// has not been closed.
func (t *Transport) IsAlive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started || t.closed {
		return false
	}
	select {
	case <-t.procDone:
		return false
	default:
		return true
	}
}

// PID returns the child process id, or 0 before Connect.
func (t *Transport) PID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd != nil && t.cmd.Process != nil {
		return t.cmd.Process.Pid
	}
	return 0
}

var _ transport.Transport = (*Transport)(nil)
