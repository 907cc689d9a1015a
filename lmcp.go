// Package lmcp provides a Go client for the Model Context Protocol (MCP).
//
// # Overview
//
// LMCP lets an application talk to independently running MCP tool servers,
// discover the tools and resources each server exposes, and invoke those
// tools as if they were local functions. The library covers the full client
// side of the protocol: process-pipe and WebSocket transports, the
// initialize handshake, request/response correlation over a single reader
// loop, schema discovery with client-side argument validation, and a
// composable interceptor pipeline (logging, caching, retry, metrics)
// wrapped around every invocation.
//
// # Organization
//
//   - github.com/lhassa8/LMCP/client: connection, discovery, invocation and
//     interceptor pipeline
//   - github.com/lhassa8/LMCP/transport: transport layer implementations
//     (stdio child process, WebSocket)
//   - github.com/lhassa8/LMCP/protocol: JSON-RPC framing and MCP message
//     definitions
//   - github.com/lhassa8/LMCP/logx: logging facade used across the library
//
// # Basic Usage
//
//	import (
//	  "github.com/lhassa8/LMCP/client"
//	  "github.com/lhassa8/LMCP/transport/stdio"
//	)
//
//	mgr := client.NewManager()
//	defer mgr.CloseAll()
//
//	conn, err := mgr.Open(ctx, stdio.LaunchConfig{
//	  Command: "my-tool-server",
//	  Args:    []string{"--workdir", "."},
//	})
//	if err != nil {
//	  log.Fatal(err)
//	}
//
//	inv := client.NewInvoker(conn,
//	  client.NewLoggingInterceptor(logger),
//	  client.NewRetryInterceptor(client.NewExponentialBackoff(500*time.Millisecond, 3*time.Second, 3), logger),
//	  client.NewCacheInterceptor(30*time.Second).Intercept(),
//	)
//	res, err := inv.Invoke(ctx, "echo", map[string]any{"message": "hi"})
package lmcp

// Version is the library version.
const Version = "0.2.0"
