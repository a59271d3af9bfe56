package hits

import (
	"io"
	"log"
)

var diagLogger *log.Logger

// SetLogWriters configures the logging streams for the hits package.
// The package logs only to the diag stream; the other writers are
// ignored. Pass nil for any writer to disable that stream.
func SetLogWriters(_, diag, _ io.Writer) {
	diagLogger = newLogger("[hits] ", diag)
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
