// Package client provides the client-side core of the LMCP protocol:
// connection lifecycle, request/response correlation, schema discovery,
// invocation dispatch and the interceptor pipeline.
package client

import (
	"errors"
	"fmt"
	"time"
)

// Standard error types that can be used with errors.Is().
var (
	ErrNotConnected     = errors.New("connection is not ready")
	ErrAlreadyConnected = errors.New("connection is already established")
	ErrConnectionClosed = errors.New("connection is closed")
	ErrRequestTimeout   = errors.New("request timed out")
	ErrConnectionLost   = errors.New("connection lost")
	ErrToolNotFound     = errors.New("tool not found")
	ErrServerNotFound   = errors.New("server not found")
)

// ClientError is the base error type for client errors.
type ClientError struct {
	Message string
	Code    int
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// LaunchError indicates the server process could not be started. Fatal, not
// retried.
type LaunchError struct {
	ClientError
	Command string
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %s", e.Command, e.ClientError.Error())
}

// NewLaunchError creates a new LaunchError.
func NewLaunchError(command string, cause error) error {
	return &LaunchError{
		ClientError: ClientError{Message: "process could not be started", Cause: cause},
		Command:     command,
	}
}

// HandshakeReason classifies why a handshake failed.
type HandshakeReason string

const (
	HandshakeTimeout   HandshakeReason = "timeout"
	HandshakeMalformed HandshakeReason = "malformed-response"
	HandshakeRejected  HandshakeReason = "server-rejected"
)

// HandshakeError indicates the initialize exchange failed. Fatal for the
// connection; the caller may retry with a fresh open.
type HandshakeError struct {
	ClientError
	Reason HandshakeReason
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed (%s): %s", e.Reason, e.ClientError.Error())
}

// NewHandshakeError creates a new HandshakeError.
func NewHandshakeError(reason HandshakeReason, message string, cause error) error {
	return &HandshakeError{
		ClientError: ClientError{Message: message, Cause: cause},
		Reason:      reason,
	}
}

// ConnectionLostError indicates the server process died or the pipe closed
// while requests were in flight. Classified transient.
type ConnectionLostError struct {
	ClientError
}

// NewConnectionLostError creates a new ConnectionLostError.
func NewConnectionLostError(message string, cause error) error {
	if cause == nil {
		cause = ErrConnectionLost
	}
	return &ConnectionLostError{
		ClientError: ClientError{Message: message, Cause: cause},
	}
}

// TimeoutError indicates no response arrived within the caller's deadline.
// Classified transient; the request may still complete server-side, in
// which case the late response is dropped by the reader loop.
type TimeoutError struct {
	ClientError
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("timeout after %v during %s", e.Timeout, e.Operation)
	}
	return fmt.Sprintf("timeout during %s", e.Operation)
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, timeout time.Duration, cause error) error {
	return &TimeoutError{
		ClientError: ClientError{Message: "operation timed out", Cause: cause},
		Operation:   operation,
		Timeout:     timeout,
	}
}

// DiscoveryError indicates the server returned a malformed schema. Fatal,
// not retried; the server is incompatible.
type DiscoveryError struct {
	ClientError
}

// NewDiscoveryError creates a new DiscoveryError.
func NewDiscoveryError(message string, cause error) error {
	return &DiscoveryError{
		ClientError: ClientError{Message: message, Cause: cause},
	}
}

// MissingParameterError indicates a required parameter was absent from the
// argument map. Raised client-side before anything is sent; retrying would
// reproduce the same failure.
type MissingParameterError struct {
	ClientError
	Tool      string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("tool %q: missing required parameter %q", e.Tool, e.Parameter)
}

// NewMissingParameterError creates a new MissingParameterError.
func NewMissingParameterError(tool, parameter string) error {
	return &MissingParameterError{
		ClientError: ClientError{Message: "missing required parameter"},
		Tool:        tool,
		Parameter:   parameter,
	}
}

// ToolExecutionError indicates the server ran the tool and the tool itself
// failed (a business error such as file-not-found). Deterministic; never
// retried automatically and never conflated with connection errors.
type ToolExecutionError struct {
	ClientError
	Tool string
	Data interface{} // optional server payload
}

func (e *ToolExecutionError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tool %q failed (code=%d): %s", e.Tool, e.Code, e.Message)
	}
	return fmt.Sprintf("tool %q failed: %s", e.Tool, e.Message)
}

// NewToolExecutionError creates a new ToolExecutionError.
func NewToolExecutionError(tool string, code int, message string, data interface{}) error {
	return &ToolExecutionError{
		ClientError: ClientError{Message: message, Code: code},
		Tool:        tool,
		Data:        data,
	}
}

// ServerError indicates a protocol-level error reported by the server
// (invalid request, method not found), as opposed to a tool-level failure.
type ServerError struct {
	ClientError
	Method string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error during %s (code=%d): %s", e.Method, e.Code, e.Message)
}

// NewServerError creates a new ServerError.
func NewServerError(method string, code int, message string) error {
	return &ServerError{
		ClientError: ClientError{Message: message, Code: code},
		Method:      method,
	}
}

// AuthError indicates the server rejected the invocation's credentials.
type AuthError struct {
	ClientError
}

// NewAuthError creates a new AuthError.
func NewAuthError(message string, cause error) error {
	return &AuthError{
		ClientError: ClientError{Message: message, Cause: cause},
	}
}

// RetryExhaustedError wraps the last transient failure after the retry
// interceptor has used up its attempt budget.
type RetryExhaustedError struct {
	ClientError
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Cause)
}

// NewRetryExhaustedError creates a new RetryExhaustedError.
func NewRetryExhaustedError(attempts int, cause error) error {
	return &RetryExhaustedError{
		ClientError: ClientError{Message: "retries exhausted", Cause: cause},
		Attempts:    attempts,
	}
}

// IsTimeoutError checks if an error is a timeout error.
func IsTimeoutError(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr) || errors.Is(err, ErrRequestTimeout)
}

// IsConnectionLostError checks if an error indicates the connection died.
func IsConnectionLostError(err error) bool {
	var lostErr *ConnectionLostError
	return errors.As(err, &lostErr) || errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrConnectionClosed)
}

// IsToolExecutionError checks if an error is a server-reported tool failure.
func IsToolExecutionError(err error) bool {
	var toolErr *ToolExecutionError
	return errors.As(err, &toolErr)
}

// IsHandshakeError checks if an error is a handshake failure.
func IsHandshakeError(err error) bool {
	var hsErr *HandshakeError
	return errors.As(err, &hsErr)
}

// IsValidationError checks if an error is a client-side validation failure.
func IsValidationError(err error) bool {
	var missErr *MissingParameterError
	return errors.As(err, &missErr)
}

// IsTransient reports whether a failure is plausibly resolved by retrying:
// the connection died or the request timed out. Validation, discovery,
// handshake and tool-execution failures are deterministic and excluded.
func IsTransient(err error) bool {
	return IsConnectionLostError(err) || IsTimeoutError(err)
}
