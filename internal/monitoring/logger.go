// Package monitoring holds the process-level logger and the Prometheus
// metrics of the track finder. Algorithm packages log through their own
// debug streams; this package is for the commands and the event pipeline.
package monitoring

import "log"

// Logf prints process-level messages: run start and end, store and config
// problems, per-run summaries. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
