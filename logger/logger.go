// Package logger lets the protocol engine log through whichever structured
// logging framework the host application already uses.
//
// The engine only depends on the Logger interface. Two implementations ship
// with the module: NewSlog (log/slog, optionally rendered by console-slog) and
// NewZap (go.uber.org/zap).
//
// Levels:
//
//   - DebugLevel: wire traffic (packets written, bytes received, drains).
//   - InfoLevel:  scan summaries and endpoint lifecycle.
//   - WarnLevel:  rejected commands, poll exhaustion, stale bytes.
//   - ErrorLevel: transport failures.
//   - FatalLevel: reserved for command-line front-ends.
package logger

// Level indicates the logging severity level.
type Level = int8

const (
	// DebugLevel logs are voluminous and usually disabled outside bench testing.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel
	// ErrorLevel logs are high-priority.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// Logger defines the logging interface used throughout the engine packages.
type Logger interface {
	// Debug logs a message with key/value pairs at DebugLevel.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message with key/value pairs at InfoLevel.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message with key/value pairs at WarnLevel.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message with key/value pairs at ErrorLevel.
	Error(msg string, keysAndValues ...any)
	// Fatal logs a message at FatalLevel and then calls os.Exit(1).
	Fatal(msg string, keysAndValues ...any)
	// With creates a child logger carrying the given key/value pairs.
	// Key-values added to the child don't affect the parent, and vice versa.
	With(keyValues ...any) Logger
	// Level returns the minimum enabled level for this logger.
	Level() Level
	// SetLevel sets the minimum enabled level for this logger.
	SetLevel(level Level)
}

// ParseLevel maps a level name ("debug", "info", "warn", "error") to a Level.
// Unknown names map to InfoLevel.
func ParseLevel(name string) Level {
	switch name {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}
