// Package sklogimpl holds the pluggable Logger behind the sklog functions.
// It lives apart from sklog so that Logger implementations can import it
// without an import cycle.
package sklogimpl

import (
	"fmt"
	"sync"
)

// Severity of a log line.
type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
	Fatal
)

var severityNames = []string{"DEBUG", "INFO", "WARNING", "ERROR", "FATAL"}

// String returns the upper case name of the severity.
func (s Severity) String() string {
	if s < Debug || s > Fatal {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// Logger is implemented by every log destination.
//
// depth is the number of stack frames between the original sklog call site
// and the Log call, so that implementations can report the right location.
// An empty format means the args are joined with fmt.Sprint.
type Logger interface {
	Log(depth int, severity Severity, format string, args ...interface{})
	Flush()
}

var (
	logger   Logger
	loggerMu sync.RWMutex
)

// SetLogger replaces the process-wide Logger.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// GetLogger returns the process-wide Logger.
func GetLogger() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Log sends a line to the process-wide Logger.
func Log(depth int, severity Severity, format string, args ...interface{}) {
	GetLogger().Log(depth+1, severity, format, args...)
}

// Flush flushes the process-wide Logger.
func Flush() {
	GetLogger().Flush()
}

// Format renders a log line the way every Logger is expected to.
func Format(format string, args ...interface{}) string {
	if format == "" {
		return fmt.Sprint(args...)
	}
	return fmt.Sprintf(format, args...)
}
