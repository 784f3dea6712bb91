// Package logging provides the process-wide leveled logging façade used by
// every other package in this module.
package logging

// Logger defines the interface for application logging. All framework and
// domain code logs through this interface so the concrete backend (zap, in
// this module) stays swappable without touching call sites.
//
// The key-value calling convention matches structured logging libraries
// like zap's SugaredLogger, logrus, and slog:
//
//	logger.Info("subscribed", "topic", info.Topic, "script", info.ScriptName)
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)

	// Fatal logs at fatal level and terminates the process. Callers should
	// treat it as non-returning.
	Fatal(msg string, kv ...any)

	// WithStack returns a Logger that captures a stack trace, best-effort,
	// on every subsequent record at Error level or above. Records at lower
	// levels carry no trace.
	WithStack() Logger
}
