// Package logx provides the standard logger facade for the LMCP project.
package logx

import (
	"log"
	"os"

	"go.uber.org/zap"
)

// Logger defines the interface for logging.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// DefaultLogger provides a basic logger implementation using the standard log package.
type DefaultLogger struct {
	logger *log.Logger
}

// NewDefaultLogger creates a new logger writing to stderr with standard flags.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(os.Stderr, "[LMCP] ", log.LstdFlags|log.Lmsgprefix),
	}
}

func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	l.logger.Printf("DEBUG: "+msg, args...)
}
func (l *DefaultLogger) Info(msg string, args ...interface{}) { l.logger.Printf("INFO: "+msg, args...) }
func (l *DefaultLogger) Warn(msg string, args ...interface{}) { l.logger.Printf("WARN: "+msg, args...) }
func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	l.logger.Printf("ERROR: "+msg, args...)
}

var _ Logger = (*DefaultLogger)(nil)

// ZapLogger adapts a zap.SugaredLogger to the Logger interface for
// applications that already log through zap.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps the given zap logger. A nil logger falls back to
// zap.NewProduction; if even that fails, a no-op zap logger is used.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
	}
	return &ZapLogger{sugar: logger.Sugar()}
}

func (l *ZapLogger) Debug(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }
func (l *ZapLogger) Info(format string, v ...interface{})  { l.sugar.Infof(format, v...) }
func (l *ZapLogger) Warn(format string, v ...interface{})  { l.sugar.Warnf(format, v...) }
func (l *ZapLogger) Error(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }

var _ Logger = (*ZapLogger)(nil)

// NilLogger discards all log output. Useful in tests.
type NilLogger struct{}

// NewNilLogger creates a logger that discards everything.
func NewNilLogger() *NilLogger { return &NilLogger{} }

func (l *NilLogger) Debug(format string, v ...interface{}) {}
func (l *NilLogger) Info(format string, v ...interface{})  {}
func (l *NilLogger) Warn(format string, v ...interface{})  {}
func (l *NilLogger) Error(format string, v ...interface{}) {}

var _ Logger = (*NilLogger)(nil)
