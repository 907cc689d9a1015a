package client

import (
	"errors"
	"fmt"
	"strings"
)

// Formatter renders results and errors for end-user display.
type Formatter interface {
	FormatResult(result *ToolResult) string
	FormatError(err error) string
}

// TextFormatter renders plain text: result content concatenated, errors
// classified by kind with a short actionable message.
type TextFormatter struct{}

// NewTextFormatter creates a TextFormatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// FormatResult implements Formatter.FormatResult.
func (f *TextFormatter) FormatResult(result *ToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, c := range result.Content {
		switch c.Type {
		case "text":
			parts = append(parts, c.Text)
		case "image":
			parts = append(parts, "[image]")
		default:
			parts = append(parts, fmt.Sprintf("[%s content]", c.Type))
		}
	}
	return strings.Join(parts, "\n")
}

// FormatError implements Formatter.FormatError.
func (f *TextFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return fmt.Sprintf("could not start server %q: check that the command exists and is executable", launchErr.Command)
	}
	var hsErr *HandshakeError
	if errors.As(err, &hsErr) {
		return fmt.Sprintf("server did not complete the handshake (%s): %s", hsErr.Reason, hsErr.Message)
	}
	var missErr *MissingParameterError
	if errors.As(err, &missErr) {
		return fmt.Sprintf("tool %q requires parameter %q", missErr.Tool, missErr.Parameter)
	}
	var toolErr *ToolExecutionError
	if errors.As(err, &toolErr) {
		return fmt.Sprintf("tool %q reported an error: %s", toolErr.Tool, toolErr.Message)
	}
	var retryErr *RetryExhaustedError
	if errors.As(err, &retryErr) {
		return fmt.Sprintf("gave up after %d attempts: %v", retryErr.Attempts, retryErr.Cause)
	}
	if IsTimeoutError(err) {
		return "the server did not respond in time"
	}
	if IsConnectionLostError(err) {
		return "the connection to the server was lost"
	}
	return err.Error()
}
