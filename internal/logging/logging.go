// =============================================================================
// ContaFlow Reconciler - Logging
// =============================================================================
//
// The reconciliation core never writes to a terminal or file directly: it
// emits discrete leveled messages through an injected Sink. The concrete sink
// is decided entirely by the caller: the CLI wires a zap-backed sink, tests
// wire a capture or nop sink, and an embedding application can forward
// messages to whatever status surface it owns.
//
// =============================================================================

package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Level classifies a log message.
type Level int

const (
	// LevelInfo is routine progress information.
	LevelInfo Level = iota

	// LevelSuccess marks a completed step worth highlighting.
	LevelSuccess

	// LevelWarning marks a recovered or tolerated anomaly.
	LevelWarning

	// LevelError marks a failure (per-record or run-level).
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Sink receives log messages from the core.
type Sink interface {
	Log(level Level, message string)
}

// Logger is a thin convenience wrapper around a Sink.
type Logger struct {
	sink Sink
}

// New creates a Logger over the given sink. A nil sink yields a logger that
// discards everything.
func New(sink Sink) *Logger {
	if sink == nil {
		sink = NopSink{}
	}
	return &Logger{sink: sink}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.sink.Log(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logger) Successf(format string, args ...interface{}) {
	l.sink.Log(LevelSuccess, fmt.Sprintf(format, args...))
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.sink.Log(LevelWarning, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.sink.Log(LevelError, fmt.Sprintf(format, args...))
}

// NopSink discards all messages.
type NopSink struct{}

func (NopSink) Log(Level, string) {}

// ZapSink forwards messages to a zap logger. Success has no zap equivalent
// and maps to Info.
type ZapSink struct {
	z *zap.SugaredLogger
}

// NewZapSink wraps a zap logger as a Sink.
func NewZapSink(z *zap.Logger) *ZapSink {
	return &ZapSink{z: z.Sugar()}
}

func (s *ZapSink) Log(level Level, message string) {
	switch level {
	case LevelWarning:
		s.z.Warn(message)
	case LevelError:
		s.z.Error(message)
	default:
		s.z.Info(message)
	}
}
