package ports

import "context"

// Logger defines a standard interface for logging messages and errors.
// This allows injecting different logging implementations (e.g., standard log, zap).
type Logger interface {
	// Debug logs a message at Debug level.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs a message at Info level.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs a message at Warning level.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs an error message at Error level.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}

// NopLogger is a Logger that discards everything. Handy default for tests
// and for components constructed without an explicit logger.
type NopLogger struct{}

func (NopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (NopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (NopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (NopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}
