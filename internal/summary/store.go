package summary

import (
	"context"
	"time"

	"github.com/pavelzhurov/visitstream/internal/event"
)

// EventStore is the slice of the raw event log the worker needs: ordered
// per-session scans and bulk retirement of consumed rows.
type EventStore interface {
	// LoadSessionEvents returns all events of one session ordered by
	// event time.
	LoadSessionEvents(ctx context.Context, sessionID string) ([]event.Event, error)

	// RetireSessionEvents deletes the session's events with
	// event_time <= upTo and reports how many rows went away. Events
	// arriving after upTo are left for the next visit.
	RetireSessionEvents(ctx context.Context, sessionID string, upTo time.Time) (int64, error)
}

// SummaryStore reads and writes the summary log.
type SummaryStore interface {
	// FindClosedSessions returns sessions whose last real activity is at
	// least inactivityTimeout old and not yet covered by a summary. A
	// store failure returns an error, never an empty result.
	FindClosedSessions(ctx context.Context, inactivityTimeout time.Duration) ([]string, error)

	// Watermark returns the latest summary bound for the session, or
	// nil when no summary exists yet.
	Watermark(ctx context.Context, sessionID string) (*Watermark, error)

	// Insert persists one summary. Single-row atomic.
	Insert(ctx context.Context, s *VisitSummary) error

	// ListBySession returns the session's summaries ordered by visit end.
	ListBySession(ctx context.Context, sessionID string) ([]*VisitSummary, error)
}
