// Package recordinglogging implements sklogimpl.Logger by keeping every log
// line in memory, so that tests can make assertions on what code logged.
package recordinglogging

import (
	"strings"
	"sync"

	"github.com/kodariks/iot-webapp/go/sklog/sklogimpl"
)

// Record is a single logged line.
type Record struct {
	Severity sklogimpl.Severity
	Message  string
}

// Logger implements sklogimpl.Logger. It is safe for concurrent use.
type Logger struct {
	mutex   sync.Mutex
	records []Record
}

// New returns an empty Logger.
func New() *Logger {
	return &Logger{}
}

// Log implements sklogimpl.Logger. Fatal lines are recorded like any other;
// the process is not terminated.
func (l *Logger) Log(_ int, severity sklogimpl.Severity, format string, args ...interface{}) {
	r := Record{
		Severity: severity,
		Message:  sklogimpl.Format(format, args...),
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.records = append(l.records, r)
}

// Flush implements sklogimpl.Logger.
func (l *Logger) Flush() {}

// Records returns a copy of everything logged so far, oldest first.
func (l *Logger) Records() []Record {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]Record(nil), l.records...)
}

// Messages returns the messages logged at the given severity or above.
func (l *Logger) Messages(min sklogimpl.Severity) []string {
	var rv []string
	for _, r := range l.Records() {
		if r.Severity >= min {
			rv = append(rv, r.Message)
		}
	}
	return rv
}

// String joins all messages with newlines, the way they would appear if
// they had been printed one per line.
func (l *Logger) String() string {
	return strings.Join(l.Messages(sklogimpl.Debug), "\n")
}

// Reset discards all records.
func (l *Logger) Reset() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.records = nil
}

var _ sklogimpl.Logger = (*Logger)(nil)
