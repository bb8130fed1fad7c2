package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicepipe_synthesis_requests_total",
		Help: "Total number of synthesis requests",
	}, []string{"status", "mode"})

	synthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicepipe_synthesis_duration_seconds",
		Help:    "End-to-end synthesis pipeline duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	// Stream metrics
	streamChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicepipe_stream_chunks_total",
		Help: "Total number of stream chunks demultiplexed",
	})

	audioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicepipe_audio_bytes_total",
		Help: "Total audio bytes received from the synthesis API",
	})

	skippedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicepipe_stream_records_skipped_total",
		Help: "Total malformed timestamp-stream records skipped",
	})

	// Cache metrics
	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicepipe_cache_events_total",
		Help: "Total cache store events",
	}, []string{"event"}) // event: "hit", "miss", "write"
)

// RecordSynthesis counts one finished pipeline run by outcome and mode.
func RecordSynthesis(status, mode string) {
	synthesisRequests.WithLabelValues(status, mode).Inc()
}

// ObserveSynthesisDuration records the wall-clock duration of a pipeline run.
func ObserveSynthesisDuration(d time.Duration) {
	synthesisDuration.Observe(d.Seconds())
}

// RecordChunk counts one demultiplexed chunk and its audio payload size.
func RecordChunk(bytes int) {
	streamChunks.Inc()
	audioBytes.Add(float64(bytes))
}

// RecordSkippedRecord counts a malformed stream record that was skipped.
func RecordSkippedRecord() {
	skippedRecords.Inc()
}

// RecordCacheEvent counts a cache hit, miss or write.
func RecordCacheEvent(event string) {
	cacheEvents.WithLabelValues(event).Inc()
}
