package client

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/transport"
	"github.com/lhassa8/LMCP/transport/stdio"
)

// Manager owns a set of connections and serializes opens of the same server
// so that concurrent callers share one process instead of racing to spawn
// duplicates.
type Manager struct {
	cfg    Config
	logger logx.Logger

	mu            sync.Mutex
	conns         map[uuid.UUID]*Conn
	byFingerprint map[string]*Conn
	opening       map[string]*sync.Mutex
}

// NewManager creates a connection manager. The options become defaults for
// every connection it opens; per-open options override them.
func NewManager(opts ...Option) *Manager {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		cfg:           cfg,
		logger:        cfg.Logger,
		conns:         make(map[uuid.UUID]*Conn),
		byFingerprint: make(map[string]*Conn),
		opening:       make(map[string]*sync.Mutex),
	}
}

// Open launches the server described by lc, or returns the existing live
// connection when one with an identical launch configuration is already
// open. Opens of the same configuration are serialized; opens of different
// configurations proceed concurrently.
func (m *Manager) Open(ctx context.Context, lc stdio.LaunchConfig, opts ...Option) (*Conn, error) {
	fp := lc.Fingerprint()

	lock := m.openLock(fp)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	existing, ok := m.byFingerprint[fp]
	m.mu.Unlock()
	if ok && existing.IsReady() {
		m.logger.Debug("reusing connection %s for %s", existing.ID(), lc.String())
		return existing, nil
	}
	if ok {
		// A dead entry for this fingerprint; drop it before relaunching.
		m.remove(existing.ID())
	}

	cfg := m.cfg
	for _, opt := range opts {
		opt(&cfg)
	}
	t := stdio.NewTransport(lc, stdio.Options{
		Logger:      cfg.Logger,
		GracePeriod: cfg.GracePeriod,
	})

	conn, err := m.connect(ctx, t, cfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.conns[conn.ID()] = conn
	m.byFingerprint[fp] = conn
	m.mu.Unlock()
	return conn, nil
}

// OpenTransport connects over a caller-supplied transport, for servers not
// reached through a child process. No deduplication applies.
func (m *Manager) OpenTransport(ctx context.Context, t transport.Transport, opts ...Option) (*Conn, error) {
	cfg := m.cfg
	for _, opt := range opts {
		opt(&cfg)
	}
	conn, err := m.connect(ctx, t, cfg)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.conns[conn.ID()] = conn
	m.mu.Unlock()
	return conn, nil
}

func (m *Manager) connect(ctx context.Context, t transport.Transport, cfg Config) (*Conn, error) {
	conn := NewConn(t, func(c *Config) { *c = cfg })
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// openLock returns the serialization mutex for one launch fingerprint.
func (m *Manager) openLock(fp string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.opening[fp]
	if !ok {
		lock = &sync.Mutex{}
		m.opening[fp] = lock
	}
	return lock
}

// Get returns the connection with the given id.
func (m *Manager) Get(id uuid.UUID) (*Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[id]
	return conn, ok
}

// Conns returns all managed connections.
func (m *Manager) Conns() []*Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Conn, 0, len(m.conns))
	for _, conn := range m.conns {
		out = append(out, conn)
	}
	return out
}

// Close terminates one connection and forgets it.
func (m *Manager) Close(id uuid.UUID) error {
	conn, ok := m.remove(id)
	if !ok {
		return ErrServerNotFound
	}
	return conn.Close()
}

// CloseAll terminates every connection, best effort: one connection's close
// failure never prevents the others from closing. The individual errors are
// aggregated.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	conns := make([]*Conn, 0, len(m.conns))
	for _, conn := range m.conns {
		conns = append(conns, conn)
	}
	m.conns = make(map[uuid.UUID]*Conn)
	m.byFingerprint = make(map[string]*Conn)
	m.mu.Unlock()

	var errs error
	for _, conn := range conns {
		errs = multierr.Append(errs, conn.Close())
	}
	return errs
}

func (m *Manager) remove(id uuid.UUID) (*Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[id]
	if !ok {
		return nil, false
	}
	delete(m.conns, id)
	for fp, c := range m.byFingerprint {
		if c.ID() == id {
			delete(m.byFingerprint, fp)
		}
	}
	return conn, true
}
