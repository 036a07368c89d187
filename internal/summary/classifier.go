package summary

import (
	"time"

	"github.com/pavelzhurov/visitstream/internal/event"
)

// Classify separates real user activity from heartbeat noise.
//
// The input must be ordered by event time. baseline seeds the running
// scroll position, normally with the final scroll depth of the previous
// visit's summary, so a heartbeat repeating the last known position is
// recognized as noise even across visit boundaries.
//
// Rules, applied in stream order:
//   - any non-heartbeat event is real activity (unknown types included);
//   - a heartbeat without a scroll value is dropped and never touches
//     the baseline;
//   - a heartbeat whose scroll value equals the running baseline is
//     dropped;
//   - a heartbeat whose scroll value differs is kept and becomes the new
//     baseline.
//
// Events missing a session id or event type are skipped and counted in
// the second return value.
func Classify(events []event.Event, baseline *float64) ([]event.Event, int) {
	kept := make([]event.Event, 0, len(events))
	malformed := 0

	for _, e := range events {
		if e.EventType == "" || e.SessionID == "" {
			malformed++
			continue
		}

		if !e.IsHeartbeat() {
			kept = append(kept, e)
			continue
		}

		if e.HBScrollPercent == nil {
			continue
		}

		// Exact equality: clients send discretized percentages.
		if baseline != nil && *e.HBScrollPercent == *baseline {
			continue
		}

		scroll := *e.HBScrollPercent
		baseline = &scroll
		kept = append(kept, e)
	}

	return kept, malformed
}

// visitClosed reports whether activity ending at lastActivity is old
// enough to close the visit. The boundary is inclusive: a visit closes
// exactly at lastActivity + timeout.
func visitClosed(lastActivity, now time.Time, timeout time.Duration) bool {
	return now.Sub(lastActivity) >= timeout
}
