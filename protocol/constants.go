package protocol

const (
	// CurrentProtocolVersion defines the MCP version this library implementation supports.
	CurrentProtocolVersion = "2025-03-26"
	// OldProtocolVersion is an older version accepted for compatibility.
	OldProtocolVersion = "2024-11-05"

	// --- Message Type (Method Name) Constants ---

	// Initialization
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized" // Notification

	// Tools
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"

	// Resources
	MethodListResources = "resources/list"
	MethodReadResource  = "resources/read"

	// Ping
	MethodPing = "ping"
)

// ErrorCode represents a JSON-RPC error code.
type ErrorCode int

// Standard JSON-RPC 2.0 error codes.
const (
	ErrorCodeParseError     ErrorCode = -32700
	ErrorCodeInvalidRequest ErrorCode = -32600
	ErrorCodeMethodNotFound ErrorCode = -32601
	ErrorCodeInvalidParams  ErrorCode = -32602
	ErrorCodeInternalError  ErrorCode = -32603
)

// IsProtocolError reports whether the code falls in the reserved JSON-RPC
// range. Errors outside this range are treated as tool-level failures
// reported by the server, not protocol violations.
func (c ErrorCode) IsProtocolError() bool {
	return c >= -32768 && c <= -32600
}
