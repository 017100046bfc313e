package common

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Severity represents log message severity levels
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the diagnostics sink used by the access backends and the
// command layer. Memory dumps never go through it.
type Logger interface {
	// Log logs a message with the specified severity
	Log(severity Severity, msg string)

	// Logf logs a formatted message with the specified severity
	Logf(severity Severity, format string, args ...interface{})

	// Enabled reports whether messages of the given severity are emitted
	Enabled(severity Severity) bool

	// Error logs an error
	Error(err error)

	Debug(msg string)
	Info(msg string)
	Warning(msg string)
}

// StdLogger implements Logger on top of the standard log package. All
// diagnostics go to one stream, stderr by default, so that stdout carries
// nothing but command output.
type StdLogger struct {
	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	minLevel   Severity
}

// NewStdLogger creates a logger writing to stderr with the given
// program name as message prefix.
func NewStdLogger(prog string, minLevel Severity) *StdLogger {
	return NewStdLoggerWithWriter(os.Stderr, prog, minLevel)
}

// NewStdLoggerWithWriter creates a logger writing to w.
func NewStdLoggerWithWriter(w io.Writer, prog string, minLevel Severity) *StdLogger {
	prefix := ""
	if prog != "" {
		prefix = prog + ": "
	}
	return &StdLogger{
		debugLog:   log.New(w, prefix+"debug: ", 0),
		infoLog:    log.New(w, prefix, 0),
		warningLog: log.New(w, prefix+"warning: ", 0),
		errorLog:   log.New(w, prefix, 0),
		minLevel:   minLevel,
	}
}

// SetMinLevel changes the lowest severity that is emitted.
func (l *StdLogger) SetMinLevel(minLevel Severity) {
	l.minLevel = minLevel
}

func (l *StdLogger) Enabled(severity Severity) bool {
	return severity >= l.minLevel
}

// Log logs a message with the specified severity
func (l *StdLogger) Log(severity Severity, msg string) {
	if severity < l.minLevel {
		return
	}

	switch severity {
	case SeverityDebug:
		l.debugLog.Output(2, msg)
	case SeverityInfo:
		l.infoLog.Output(2, msg)
	case SeverityWarning:
		l.warningLog.Output(2, msg)
	case SeverityError:
		l.errorLog.Output(2, msg)
	}
}

// Logf logs a formatted message with the specified severity
func (l *StdLogger) Logf(severity Severity, format string, args ...interface{}) {
	l.Log(severity, fmt.Sprintf(format, args...))
}

// Error logs an error. Errors that carry a code are printed with their
// code description when debugging.
func (l *StdLogger) Error(err error) {
	if err == nil {
		return
	}
	if d, ok := err.(interface{ Detail() string }); ok && l.Enabled(SeverityDebug) {
		l.Log(SeverityError, d.Detail())
		return
	}
	l.Log(SeverityError, err.Error())
}

// Debug logs a debug message
func (l *StdLogger) Debug(msg string) {
	l.Log(SeverityDebug, msg)
}

// Info logs an info message
func (l *StdLogger) Info(msg string) {
	l.Log(SeverityInfo, msg)
}

// Warning logs a warning message
func (l *StdLogger) Warning(msg string) {
	l.Log(SeverityWarning, msg)
}

// NoOpLogger is a logger that doesn't log anything
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-op logger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Log(severity Severity, msg string)                          {}
func (l *NoOpLogger) Logf(severity Severity, format string, args ...interface{}) {}
func (l *NoOpLogger) Enabled(severity Severity) bool                             { return false }
func (l *NoOpLogger) Error(err error)                                            {}
func (l *NoOpLogger) Debug(msg string)                                           {}
func (l *NoOpLogger) Info(msg string)                                            {}
func (l *NoOpLogger) Warning(msg string)                                         {}
