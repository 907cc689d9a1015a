package client

import (
	"context"

	"github.com/lhassa8/LMCP/logx"
)

// NewLoggingInterceptor returns an interceptor that logs every invocation's
// start, outcome and latency. It never alters the result or error.
func NewLoggingInterceptor(logger logx.Logger) Interceptor {
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) (*ToolResult, error) {
			logger.Debug("invoking tool %q (conn=%s attempt=%d)", inv.Tool, inv.ConnectionID, inv.Attempt)
			result, err := next(ctx, inv)
			if err != nil {
				logger.Warn("tool %q failed after %v: %v", inv.Tool, inv.Elapsed(), err)
				return nil, err
			}
			logger.Info("tool %q completed in %v", inv.Tool, inv.Elapsed())
			return result, nil
		}
	}
}
