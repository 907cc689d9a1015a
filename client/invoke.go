package client

import (
	"context"
	"strings"

	"github.com/lhassa8/LMCP/protocol"
)

// ToolResult is the unwrapped payload of a successful tool invocation.
type ToolResult struct {
	Content []protocol.Content
}

// Text concatenates the text parts of the result content.
func (r *ToolResult) Text() string {
	var sb strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

// CallTool performs a raw tools/call without argument validation and
// unwraps the result envelope. A tool that ran and failed surfaces as a
// ToolExecutionError carrying the server's message; protocol-level errors
// surface as ServerError.
func (c *Conn) CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolResult, error) {
	resp, err := c.Call(ctx, protocol.MethodCallTool, protocol.CallToolRequestParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		if resp.Error.Code.IsProtocolError() {
			return nil, NewServerError(protocol.MethodCallTool, int(resp.Error.Code), resp.Error.Message)
		}
		return nil, NewToolExecutionError(name, int(resp.Error.Code), resp.Error.Message, resp.Error.Data)
	}

	var result protocol.CallToolResult
	if err := decodePayload(resp.Result, &result); err != nil {
		return nil, &ClientError{Message: "malformed tools/call result", Cause: err}
	}
	if result.IsError {
		out := &ToolResult{Content: result.Content}
		return nil, NewToolExecutionError(name, 0, out.Text(), nil)
	}
	return &ToolResult{Content: result.Content}, nil
}

// ReadResource fetches the contents of a resource by URI.
func (c *Conn) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	resp, err := c.Call(ctx, protocol.MethodReadResource, protocol.ReadResourceRequestParams{URI: uri})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, NewServerError(protocol.MethodReadResource, int(resp.Error.Code), resp.Error.Message)
	}
	var result protocol.ReadResourceResult
	if err := decodePayload(resp.Result, &result); err != nil {
		return nil, &ClientError{Message: "malformed resources/read result", Cause: err}
	}
	return result.Contents, nil
}

// Invoker is the invocation proxy: it resolves the tool's descriptor
// (discovering on first use), validates arguments client-side, and runs the
// call through its interceptor chain.
type Invoker struct {
	conn    *Conn
	handler Handler
}

// NewInvoker builds an invoker around conn. Interceptors wrap the call in
// the order given, first outermost; the recommended order is logging,
// retry, cache, so retries are logged and cache hits skip both the wire and
// the retry bookkeeping.
func NewInvoker(conn *Conn, interceptors ...Interceptor) *Invoker {
	base := func(ctx context.Context, inv *Invocation) (*ToolResult, error) {
		return conn.invokeValidated(ctx, inv.Tool, inv.Args)
	}
	return &Invoker{
		conn:    conn,
		handler: Chain(base, interceptors...),
	}
}

// Invoke validates args against the tool's cached schema and performs the
// call, passing through the interceptor chain.
func (i *Invoker) Invoke(ctx context.Context, tool string, args map[string]interface{}) (*ToolResult, error) {
	inv := newInvocation(i.conn.ID(), tool, args)
	return i.handler(ctx, inv)
}

// invokeValidated is the innermost handler: descriptor lookup with
// auto-discovery, client-side validation, then the wire call. Validation
// failures happen before any message is sent.
func (c *Conn) invokeValidated(ctx context.Context, tool string, args map[string]interface{}) (*ToolResult, error) {
	if c.registry.Empty() {
		if _, err := c.registry.Discover(ctx); err != nil {
			return nil, err
		}
	}
	desc, ok := c.registry.Tool(tool)
	if !ok {
		return nil, &ClientError{Message: "tool " + tool + " not found on connection " + c.cfg.Name, Cause: ErrToolNotFound}
	}
	if err := c.registry.Validate(desc, args); err != nil {
		return nil, err
	}
	return c.CallTool(ctx, tool, args)
}
