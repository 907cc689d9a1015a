// Package transport defines the message transport layer used by the LMCP
// client. A Transport owns a bidirectional byte stream to one tool server
// and frames discrete messages on top of it; higher layers never see the
// framing rule.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send and Receive once the transport has been
// closed or the peer has gone away.
var ErrClosed = errors.New("transport is closed")

// Transport is the interface implemented by all LMCP transports.
//
// Send and Receive operate on one complete framed message at a time. A
// transport has exactly one consumer calling Receive; concurrent Send calls
// are serialized internally.
type Transport interface {
	// Connect establishes the underlying channel (spawns the child process,
	// dials the socket). It must be called once before Send or Receive.
	Connect(ctx context.Context) error

	// Send writes one complete message atomically.
	Send(ctx context.Context, data []byte) error

	// Receive blocks until one complete message is available, the peer
	// goes away (io.EOF), or ctx is done.
	Receive(ctx context.Context) ([]byte, error)

	// Close tears the channel down. Idempotent; always releases any OS
	// resources held.
	Close() error

	// IsAlive reports whether the transport is connected and the peer has
	// not terminated.
	IsAlive() bool
}
