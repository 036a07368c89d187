package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered on the default registry so any service in
// this module can expose them via promhttp.

var (
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visitstream_events_ingested_total",
		Help: "Raw events accepted by the ingest endpoint.",
	}, []string{"event_type"})

	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visitstream_events_rejected_total",
		Help: "Events rejected at the ingest boundary.",
	}, []string{"reason"})

	MalformedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitstream_malformed_events_total",
		Help: "Events skipped by the activity classifier for missing required fields.",
	})

	SummariesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitstream_summaries_written_total",
		Help: "Visit summaries persisted by the summary worker.",
	})

	NoiseRetirements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitstream_noise_retirements_total",
		Help: "Sessions whose remaining events were pure noise and were deleted without a summary.",
	})

	EventsRetired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitstream_events_retired_total",
		Help: "Raw events deleted after being covered by a summary or classified as noise.",
	})

	SessionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitstream_session_errors_total",
		Help: "Per-session failures during summary processing.",
	})

	CycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitstream_cycle_errors_total",
		Help: "Worker cycles aborted by a store failure.",
	})
)
