package neighbors

import (
	"io"
	"log"
)

var traceLogger *log.Logger

// SetLogWriters configures the logging streams for the neighbors package.
// The package logs only to the trace stream; the other writers are
// ignored. Pass nil for any writer to disable that stream.
func SetLogWriters(_, _, trace io.Writer) {
	traceLogger = newLogger("[neighbors] ", trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// tracef logs to the trace stream (per-range telemetry).
func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
