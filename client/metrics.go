package client

import (
	"context"
	"sync"
	"time"
)

// ToolMetrics aggregates the outcomes of invocations of one tool.
type ToolMetrics struct {
	Calls         int64
	Errors        int64
	TotalDuration time.Duration
}

// AvgDuration returns the mean latency across all calls.
func (m ToolMetrics) AvgDuration() time.Duration {
	if m.Calls == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(m.Calls)
}

// MetricsInterceptor counts invocations and accumulates latency per tool.
// It never alters results or errors.
type MetricsInterceptor struct {
	mu      sync.Mutex
	perTool map[string]ToolMetrics
}

// NewMetricsInterceptor creates an empty metrics collector.
func NewMetricsInterceptor() *MetricsInterceptor {
	return &MetricsInterceptor{perTool: make(map[string]ToolMetrics)}
}

// Intercept implements the metrics collection as an Interceptor.
func (m *MetricsInterceptor) Intercept() Interceptor {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) (*ToolResult, error) {
			start := time.Now()
			result, err := next(ctx, inv)
			m.record(inv.Tool, time.Since(start), err)
			return result, err
		}
	}
}

func (m *MetricsInterceptor) record(tool string, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metrics := m.perTool[tool]
	metrics.Calls++
	metrics.TotalDuration += d
	if err != nil {
		metrics.Errors++
	}
	m.perTool[tool] = metrics
}

// Snapshot returns a copy of the per-tool metrics.
func (m *MetricsInterceptor) Snapshot() map[string]ToolMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ToolMetrics, len(m.perTool))
	for tool, metrics := range m.perTool {
		out[tool] = metrics
	}
	return out
}

// Reset discards all collected metrics.
func (m *MetricsInterceptor) Reset() {
	m.mu.Lock()
	m.perTool = make(map[string]ToolMetrics)
	m.mu.Unlock()
}
