package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cdc",
		Name:      "events_total",
		Help:      "Events processed by the track finder",
	})

	// Labels: kind (hits, clusters, superclusters, segments, trains, candidates)
	eventObjects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cdc",
		Name:      "objects_total",
		Help:      "Objects produced by the track finder, by kind",
	}, []string{"kind"})

	eventDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cdc",
		Name:      "event_duration_seconds",
		Help:      "Time spent on one event",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	})

	// Labels: stage (hough_hits, hough_segments)
	truncations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cdc",
		Name:      "truncations_total",
		Help:      "Work lists truncated at their configured capacity",
	}, []string{"stage"})

	// Labels: stage (segments, linking)
	suspicious = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cdc",
		Name:      "automaton_suspicious_total",
		Help:      "Automaton relaxations stopped by the iteration cap",
	}, []string{"stage"})
)

// EventCounts summarises one processed event.
type EventCounts struct {
	Hits          int
	SuperClusters int
	Clusters      int
	Segments      int
	Trains        int
	Candidates    int
}

// ObserveEvent records one processed event.
func ObserveEvent(c EventCounts, d time.Duration) {
	eventsProcessed.Inc()
	eventDuration.Observe(d.Seconds())
	eventObjects.WithLabelValues("hits").Add(float64(c.Hits))
	eventObjects.WithLabelValues("superclusters").Add(float64(c.SuperClusters))
	eventObjects.WithLabelValues("clusters").Add(float64(c.Clusters))
	eventObjects.WithLabelValues("segments").Add(float64(c.Segments))
	eventObjects.WithLabelValues("trains").Add(float64(c.Trains))
	eventObjects.WithLabelValues("candidates").Add(float64(c.Candidates))
}

// AddTruncations counts truncated work lists of a stage.
func AddTruncations(stage string, n int) {
	if n > 0 {
		truncations.WithLabelValues(stage).Add(float64(n))
	}
}

// AddSuspicious counts capped automaton relaxations of a stage.
func AddSuspicious(stage string, n int) {
	if n > 0 {
		suspicious.WithLabelValues(stage).Add(float64(n))
	}
}
