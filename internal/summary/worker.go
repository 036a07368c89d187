package summary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/internal/config"
	"github.com/pavelzhurov/visitstream/internal/event"
	"github.com/pavelzhurov/visitstream/internal/metrics"
)

// Worker drives the segmentation pipeline on a fixed interval. Each pass
// asks the store for closed sessions and processes every session through
// load → trim → classify → aggregate → insert → retire. The insert
// happens strictly before the retire: if the process dies in between,
// the next pass trims the already-summarized events away and retries the
// delete, so a visit is never summarized twice.
type Worker struct {
	events    EventStore
	summaries SummaryStore
	cfg       config.SummaryConfig
	logger    *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewWorker(events EventStore, summaries SummaryStore, cfg config.SummaryConfig, logger *zap.Logger) *Worker {
	if cfg.SessionWorkers < 1 {
		cfg.SessionWorkers = 1
	}
	return &Worker{
		events:    events,
		summaries: summaries,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes passes until the context is cancelled. A failed pass is
// logged and retried on the next tick; a session in flight finishes its
// insert-before-delete sequence before the loop observes cancellation.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("summary worker started",
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Duration("inactivity_timeout", w.cfg.InactivityTimeout),
		zap.Int("session_workers", w.cfg.SessionWorkers),
	)

	for {
		if err := w.RunCycle(ctx); err != nil {
			metrics.CycleErrors.Inc()
			w.logger.Error("summary cycle failed", zap.Error(err))
		}

		select {
		case <-time.After(w.cfg.PollInterval):
		case <-ctx.Done():
			w.logger.Info("summary worker stopped")
			return
		}
	}
}

// RunCycle performs one full pass. A selector failure aborts the cycle:
// an empty result from a failed call must not be read as "nothing to do".
func (w *Worker) RunCycle(ctx context.Context) error {
	sessionIDs, err := w.summaries.FindClosedSessions(ctx, w.cfg.InactivityTimeout)
	if err != nil {
		return fmt.Errorf("selector failed: %w", err)
	}

	if len(sessionIDs) == 0 {
		w.logger.Debug("no closed sessions to process")
		return nil
	}

	w.logger.Info("closed sessions found", zap.Int("count", len(sessionIDs)))

	// Sessions are independent units of work; each session id appears
	// once per cycle, so one goroutine owns the whole sequence for its
	// session and per-session processing stays serialized.
	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < w.cfg.SessionWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sessionID := range jobs {
				if err := w.ProcessSession(ctx, sessionID); err != nil {
					metrics.SessionErrors.Inc()
					w.logger.Error("failed to process session",
						zap.Error(err),
						zap.String("session_id", sessionID),
					)
				}
			}
		}()
	}

feed:
	for _, sessionID := range sessionIDs {
		select {
		case jobs <- sessionID:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return nil
}

// ProcessSession runs the per-session pipeline. Errors do not affect
// other sessions: the events stay in place and the session is naturally
// retried on the next cycle.
func (w *Worker) ProcessSession(ctx context.Context, sessionID string) error {
	events, err := w.events.LoadSessionEvents(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	if len(events) == 0 {
		w.logger.Debug("no events for session", zap.String("session_id", sessionID))
		return nil
	}

	// Read the watermark after the load so a summary written by a
	// previous half-finished cycle is respected.
	wm, err := w.summaries.Watermark(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("read watermark: %w", err)
	}

	maxLoaded := events[len(events)-1].EventTime

	var baseline *float64
	if wm != nil {
		baseline = wm.FinalScroll
		events = trimCovered(events, wm.End)
	}

	if len(events) == 0 {
		// Everything loaded is already covered by a summary: a crash
		// between insert and delete left these rows behind. Retiring
		// them again is idempotent.
		return w.retire(ctx, sessionID, maxLoaded)
	}

	kept, malformed := Classify(events, baseline)
	if malformed > 0 {
		metrics.MalformedEvents.Add(float64(malformed))
		w.logger.Warn("malformed events skipped",
			zap.String("session_id", sessionID),
			zap.Int("count", malformed),
		)
	}

	if len(kept) == 0 {
		// Pure noise: retire without writing a summary.
		if err := w.retire(ctx, sessionID, maxLoaded); err != nil {
			return err
		}
		metrics.NoiseRetirements.Inc()
		w.logger.Info("noise-only session retired",
			zap.String("session_id", sessionID),
			zap.Int("events", len(events)),
		)
		return nil
	}

	// Events newer than the selector's cutoff can sneak in between
	// selection and load when the user resumes. They belong to the next
	// visit; leave the session alone until it goes idle again.
	if !visitClosed(kept[len(kept)-1].EventTime, w.now(), w.cfg.InactivityTimeout) {
		w.logger.Debug("session resumed activity, deferring",
			zap.String("session_id", sessionID))
		return nil
	}

	s, err := Aggregate(kept, w.cfg.ScrollStopThreshold)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	if err := w.summaries.Insert(ctx, s); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}

	if err := w.retire(ctx, sessionID, maxLoaded); err != nil {
		return err
	}

	metrics.SummariesWritten.Inc()
	w.logger.Info("visit summarized",
		zap.String("session_id", sessionID),
		zap.Time("visit_start", s.VisitStart),
		zap.Time("visit_end", s.VisitEnd),
		zap.Float64("duration_seconds", s.DurationSeconds),
		zap.Int("real_activity_events", s.TotalRealActivityEvents),
	)

	return nil
}

func (w *Worker) retire(ctx context.Context, sessionID string, upTo time.Time) error {
	deleted, err := w.events.RetireSessionEvents(ctx, sessionID, upTo)
	if err != nil {
		return fmt.Errorf("retire events: %w", err)
	}
	metrics.EventsRetired.Add(float64(deleted))
	return nil
}

// trimCovered drops events already covered by the watermark.
func trimCovered(events []event.Event, watermarkEnd time.Time) []event.Event {
	kept := events[:0:0]
	for _, e := range events {
		if e.EventTime.After(watermarkEnd) {
			kept = append(kept, e)
		}
	}
	return kept
}
