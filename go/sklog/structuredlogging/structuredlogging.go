// Package structuredlogging implements sklogimpl.Logger by writing one JSON
// entry per line to stderr or stdout. Cloud Run and Cloud Functions ingest
// those lines into Cloud Logging with severity and source location intact.
package structuredlogging

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"runtime"
	"strings"

	"cloud.google.com/go/logging"
	"cloud.google.com/go/logging/apiv2/loggingpb"

	"github.com/kodariks/iot-webapp/go/sklog/sklogimpl"
)

// StructuredLogger implements sklogimpl.Logger.
type StructuredLogger struct {
	logger *logging.Logger
}

// New returns a StructuredLogger which writes JSON entries to w.
func New(ctx context.Context, w io.Writer) (*StructuredLogger, error) {
	logsClient, err := logging.NewClient(
		ctx, "unused-project-id" /* Unused with RedirectAsJSON */)
	if err != nil {
		return nil, err
	}
	logger := logsClient.Logger(
		"unused-log-id", /* Unused with RedirectAsJSON */
		logging.RedirectAsJSON(w))
	return &StructuredLogger{
		logger: logger,
	}, nil
}

// Flush implements sklogimpl.Logger.
func (s *StructuredLogger) Flush() {
	if err := s.logger.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush logging.Logger: %s", err)
	}
}

// Log implements sklogimpl.Logger.
func (s *StructuredLogger) Log(depth int, severity sklogimpl.Severity, format string, args ...interface{}) {
	s.LogCtx(context.Background(), depth+1, severity, format, args...)
}

// LogCtx is like Log but attaches the labels stored in ctx by WithContext.
func (s *StructuredLogger) LogCtx(ctx context.Context, depth int, severity sklogimpl.Severity, format string, args ...interface{}) {
	s.emit(ctx, depth, severity, sklogimpl.Format(format, args...))
	if severity == sklogimpl.Fatal {
		buf := make([]byte, 1<<16)
		n := runtime.Stack(buf, true)
		s.emit(ctx, depth, severity, string(buf[:n]))
		s.Flush()
		os.Exit(255)
	}
}

func (s *StructuredLogger) emit(ctx context.Context, depth int, severity sklogimpl.Severity, msg string) {
	loc := sourceLocation(depth)
	c := getCtx(ctx)
	for part := range splitMessage(msg) {
		entry := logging.Entry{
			Payload:        part,
			Severity:       convertSeverity(severity),
			SourceLocation: loc,
		}
		if c != nil {
			entry.Labels = c.Labels
			entry.HTTPRequest = c.HTTPRequest
		}
		s.logger.Log(entry)
	}
}

func convertSeverity(severity sklogimpl.Severity) logging.Severity {
	switch severity {
	case sklogimpl.Debug:
		return logging.Debug
	case sklogimpl.Info:
		return logging.Info
	case sklogimpl.Warning:
		return logging.Warning
	case sklogimpl.Error:
		return logging.Error
	case sklogimpl.Fatal:
		return logging.Alert
	default:
		return logging.Default
	}
}

func sourceLocation(depth int) *loggingpb.LogEntrySourceLocation {
	_, file, line, ok := runtime.Caller(3 + depth)
	if !ok {
		return nil
	}
	if slash := strings.LastIndex(file, "/"); slash >= 0 {
		file = file[slash+1:]
	}
	return &loggingpb.LogEntrySourceLocation{
		File: file,
		Line: int64(line),
	}
}

// maxLogMessageBytes is the largest payload we emit in a single entry;
// longer entries get truncated by the ingestion agent.
const maxLogMessageBytes = 50 * 1024

// splitMessage breaks msg into chunks of at most maxLogMessageBytes, keeping
// lines intact where it can.
func splitMessage(msg string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if len(msg) <= maxLogMessageBytes {
			yield(msg)
			return
		}
		var b strings.Builder
		flush := func() bool {
			if b.Len() == 0 {
				return true
			}
			defer b.Reset()
			return yield(b.String())
		}
		for line := range strings.SplitSeq(msg, "\n") {
			if len(line) > maxLogMessageBytes {
				if !flush() {
					return
				}
				for len(line) > maxLogMessageBytes {
					if !yield(line[:maxLogMessageBytes]) {
						return
					}
					line = line[maxLogMessageBytes:]
				}
			}
			if b.Len() > 0 && b.Len()+len(line)+1 > maxLogMessageBytes {
				if !flush() {
					return
				}
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(line)
		}
		flush()
	}
}

type contextKeyType struct{}

var contextKey = contextKeyType{}

// Context holds request-scoped fields attached to every entry logged with
// LogCtx.
type Context struct {
	HTTPRequest *logging.HTTPRequest
	Labels      map[string]string
}

func getCtx(ctx context.Context) *Context {
	if v, ok := ctx.Value(contextKey).(*Context); ok {
		return v
	}
	return nil
}

// WithContext returns a copy of ctx carrying v.
func WithContext(ctx context.Context, v Context) context.Context {
	return context.WithValue(ctx, contextKey, &v)
}

// Assert that we implement the sklogimpl.Logger interface.
var _ sklogimpl.Logger = (*StructuredLogger)(nil)
