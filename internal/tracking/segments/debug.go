package segments

import (
	"io"
	"log"
)

var (
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the logging streams for the segments package.
// The package logs only to the diag and trace streams; the other writers are
// ignored. Pass nil for any writer to disable that stream.
func SetLogWriters(_, diag, trace io.Writer) {
	diagLogger = newLogger("[segments] ", diag)
	traceLogger = newLogger("[segments] ", trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// diagf logs to the diag stream (per-event summaries).
func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}

// tracef logs to the trace stream (per-cluster telemetry).
func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
