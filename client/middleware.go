package client

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Invocation carries one tool call through the interceptor chain. The
// argument map is shared, not copied; interceptors must treat it as
// read-only.
type Invocation struct {
	ConnectionID uuid.UUID
	Tool         string
	Args         map[string]interface{}
	Attempt      int
	Started      time.Time
	Meta         map[string]interface{}
}

func newInvocation(connID uuid.UUID, tool string, args map[string]interface{}) *Invocation {
	return &Invocation{
		ConnectionID: connID,
		Tool:         tool,
		Args:         args,
		Attempt:      1,
		Started:      time.Now(),
		Meta:         map[string]interface{}{},
	}
}

// Elapsed returns the time since the invocation entered the chain.
func (inv *Invocation) Elapsed() time.Duration {
	return time.Since(inv.Started)
}

// Handler executes one tool invocation and returns its result.
type Handler func(ctx context.Context, inv *Invocation) (*ToolResult, error)

// Interceptor wraps a Handler with additional behavior. An interceptor may
// short-circuit (cache hit), re-invoke next (retry) or observe and pass
// through (logging, metrics).
type Interceptor func(next Handler) Handler

// Chain composes interceptors around a base handler. The first interceptor
// is outermost: Chain(h, a, b) runs a(b(h)).
func Chain(base Handler, interceptors ...Interceptor) Handler {
	h := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		h = interceptors[i](h)
	}
	return h
}
