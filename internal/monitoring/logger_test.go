package monitoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

// Not parallel: swaps the package logger.
func TestSetLogger(t *testing.T) {
	original := Logf
	t.Cleanup(func() { Logf = original })

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("run %s: %d events", "abc", 3)
	assert.Equal(t, []string{"run abc: 3 events"}, got)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted") })
	assert.Len(t, got, 1)
}

// Not parallel: the collectors are process-wide.
func TestObserveEvent(t *testing.T) {
	events := counterValue(t, eventsProcessed)
	segs := counterValue(t, eventObjects.WithLabelValues("segments"))

	ObserveEvent(EventCounts{Hits: 60, Clusters: 9, SuperClusters: 9, Segments: 9, Trains: 1, Candidates: 1}, 3*time.Millisecond)

	assert.Equal(t, events+1, counterValue(t, eventsProcessed))
	assert.Equal(t, segs+9, counterValue(t, eventObjects.WithLabelValues("segments")))
}

// Not parallel: the collectors are process-wide.
func TestAddTruncationsAndSuspicious(t *testing.T) {
	before := counterValue(t, truncations.WithLabelValues("hough_hits"))
	AddTruncations("hough_hits", 2)
	AddTruncations("hough_hits", 0)
	assert.Equal(t, before+2, counterValue(t, truncations.WithLabelValues("hough_hits")))

	before = counterValue(t, suspicious.WithLabelValues("segments"))
	AddSuspicious("segments", 1)
	AddSuspicious("segments", -1)
	assert.Equal(t, before+1, counterValue(t, suspicious.WithLabelValues("segments")))
}
