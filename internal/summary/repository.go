package summary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/internal/event"
	"github.com/pavelzhurov/visitstream/pkg/postgres"
)

const summarySchema = `
CREATE TABLE IF NOT EXISTS session_summary (
	id BIGSERIAL PRIMARY KEY,
	raw_session_id TEXT NOT NULL,
	uid TEXT,
	site_url TEXT,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	duration_seconds DOUBLE PRECISION NOT NULL,
	country TEXT,
	city TEXT,
	device_type TEXT,
	os TEXT,
	browser TEXT,
	max_scroll_depth DOUBLE PRECISION,
	final_scroll_depth DOUBLE PRECISION,
	scroll_stops JSONB NOT NULL DEFAULT '[]',
	click_buttons JSONB NOT NULL DEFAULT '[]',
	total_real_activity_events INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_session_summary_session_end ON session_summary (raw_session_id, end_time);
`

// findClosedSessionsQuery replays the classifier's rules in SQL: real
// activity is any non-heartbeat event plus heartbeats whose scroll value
// differs from the previous non-null one in the same session (LAG over
// event_time). A session qualifies when that activity has been idle for
// the full timeout and is not already covered by a summary.
const findClosedSessionsQuery = `
WITH hb_clean AS (
	SELECT session_id, event_time, hb_scroll_percent
	FROM events
	WHERE event_type = 'heartbeat'
	  AND hb_scroll_percent IS NOT NULL
),
hb_marked AS (
	SELECT
		session_id,
		event_time,
		(
			hb_scroll_percent IS DISTINCT FROM
			LAG(hb_scroll_percent) OVER (
				PARTITION BY session_id
				ORDER BY event_time
			)
		) AS changed
	FROM hb_clean
),
actions AS (
	SELECT session_id, event_time
	FROM events
	WHERE event_type != 'heartbeat'
),
activity AS (
	SELECT session_id, MAX(event_time) AS last_real_activity
	FROM (
		SELECT session_id, event_time FROM hb_marked WHERE changed
		UNION ALL
		SELECT session_id, event_time FROM actions
	) AS t
	GROUP BY session_id
),
summary_bounds AS (
	SELECT raw_session_id, MAX(end_time) AS last_summary_end
	FROM session_summary
	GROUP BY raw_session_id
)
SELECT a.session_id
FROM activity a
LEFT JOIN summary_bounds sb
	ON sb.raw_session_id = a.session_id
WHERE a.last_real_activity <= NOW() - make_interval(secs => $1)
  AND (
	sb.last_summary_end IS NULL
	OR a.last_real_activity > sb.last_summary_end
  )
`

type eventStore struct {
	db     *postgres.DB
	logger *zap.Logger
}

func NewEventStore(db *postgres.DB, logger *zap.Logger) EventStore {
	return &eventStore{
		db:     db,
		logger: logger,
	}
}

func (s *eventStore) LoadSessionEvents(ctx context.Context, sessionID string) ([]event.Event, error) {
	query := `
		SELECT
			id, session_id, uid, site_url, event_type, event_time,
			button_text, button_id, hb_scroll_percent, hb_since_last_activity_ms,
			country, city, device_type, os, browser, created_at
		FROM events
		WHERE session_id = $1
		ORDER BY event_time ASC
	`

	var events []event.Event
	if err := s.db.SelectContext(ctx, &events, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to load session events: %w", err)
	}

	return events, nil
}

func (s *eventStore) RetireSessionEvents(ctx context.Context, sessionID string, upTo time.Time) (int64, error) {
	query := `
		DELETE FROM events
		WHERE session_id = $1
		  AND event_time <= $2
	`

	res, err := s.db.ExecContext(ctx, query, sessionID, upTo)
	if err != nil {
		return 0, fmt.Errorf("failed to retire session events: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Debug("Session events retired",
		zap.String("session_id", sessionID),
		zap.Time("up_to", upTo),
		zap.Int64("deleted", deleted),
	)

	return deleted, nil
}

type summaryStore struct {
	db     *postgres.DB
	logger *zap.Logger
}

func NewSummaryStore(db *postgres.DB, logger *zap.Logger) SummaryStore {
	return &summaryStore{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the session_summary table.
func EnsureSchema(ctx context.Context, db *postgres.DB) error {
	return db.EnsureSchema(ctx, summarySchema)
}

func (s *summaryStore) FindClosedSessions(ctx context.Context, inactivityTimeout time.Duration) ([]string, error) {
	var sessionIDs []string
	err := s.db.SelectContext(ctx, &sessionIDs, findClosedSessionsQuery, inactivityTimeout.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to find closed sessions: %w", err)
	}

	return sessionIDs, nil
}

func (s *summaryStore) Watermark(ctx context.Context, sessionID string) (*Watermark, error) {
	query := `
		SELECT end_time, final_scroll_depth
		FROM session_summary
		WHERE raw_session_id = $1
		ORDER BY end_time DESC
		LIMIT 1
	`

	var row struct {
		EndTime          time.Time `db:"end_time"`
		FinalScrollDepth *float64  `db:"final_scroll_depth"`
	}
	err := s.db.GetContext(ctx, &row, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get watermark: %w", err)
	}

	return &Watermark{
		End:         row.EndTime,
		FinalScroll: row.FinalScrollDepth,
	}, nil
}

func (s *summaryStore) Insert(ctx context.Context, summary *VisitSummary) error {
	scrollStops, err := json.Marshal(summary.ScrollStops)
	if err != nil {
		return fmt.Errorf("failed to marshal scroll stops: %w", err)
	}
	clickButtons, err := json.Marshal(summary.ClickButtons)
	if err != nil {
		return fmt.Errorf("failed to marshal click buttons: %w", err)
	}

	query := `
		INSERT INTO session_summary (
			raw_session_id, uid, site_url, start_time, end_time, duration_seconds,
			country, city, device_type, os, browser,
			max_scroll_depth, final_scroll_depth, scroll_stops, click_buttons,
			total_real_activity_events, created_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17
		)
		RETURNING id
	`

	err = s.db.QueryRowContext(
		ctx,
		query,
		summary.SessionID,
		summary.UID,
		summary.SiteURL,
		summary.VisitStart,
		summary.VisitEnd,
		summary.DurationSeconds,
		summary.Country,
		summary.City,
		summary.DeviceType,
		summary.OS,
		summary.Browser,
		summary.MaxScrollDepth,
		summary.FinalScrollDepth,
		scrollStops,
		clickButtons,
		summary.TotalRealActivityEvents,
		summary.CreatedAt,
	).Scan(&summary.ID)

	if err != nil {
		s.logger.Error("Failed to insert summary", zap.Error(err))
		return fmt.Errorf("failed to insert summary: %w", err)
	}

	s.logger.Debug("Summary inserted",
		zap.Int64("summary_id", summary.ID),
		zap.String("session_id", summary.SessionID),
		zap.Time("visit_end", summary.VisitEnd),
	)

	return nil
}

func (s *summaryStore) ListBySession(ctx context.Context, sessionID string) ([]*VisitSummary, error) {
	query := `
		SELECT
			id, raw_session_id, uid, site_url, start_time, end_time, duration_seconds,
			country, city, device_type, os, browser,
			max_scroll_depth, final_scroll_depth, scroll_stops, click_buttons,
			total_real_activity_events, created_at
		FROM session_summary
		WHERE raw_session_id = $1
		ORDER BY end_time ASC
	`

	var rows []summaryRow
	if err := s.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}

	summaries := make([]*VisitSummary, 0, len(rows))
	for i := range rows {
		vs, err := rows[i].toSummary()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, vs)
	}

	return summaries, nil
}

type summaryRow struct {
	ID                      int64           `db:"id"`
	SessionID               string          `db:"raw_session_id"`
	UID                     *string         `db:"uid"`
	SiteURL                 string          `db:"site_url"`
	StartTime               time.Time       `db:"start_time"`
	EndTime                 time.Time       `db:"end_time"`
	DurationSeconds         float64         `db:"duration_seconds"`
	Country                 *string         `db:"country"`
	City                    *string         `db:"city"`
	DeviceType              *string         `db:"device_type"`
	OS                      *string         `db:"os"`
	Browser                 *string         `db:"browser"`
	MaxScrollDepth          *float64        `db:"max_scroll_depth"`
	FinalScrollDepth        *float64        `db:"final_scroll_depth"`
	ScrollStops             json.RawMessage `db:"scroll_stops"`
	ClickButtons            json.RawMessage `db:"click_buttons"`
	TotalRealActivityEvents int             `db:"total_real_activity_events"`
	CreatedAt               time.Time       `db:"created_at"`
}

func (r *summaryRow) toSummary() (*VisitSummary, error) {
	s := &VisitSummary{
		ID:                      r.ID,
		SessionID:               r.SessionID,
		UID:                     r.UID,
		SiteURL:                 r.SiteURL,
		VisitStart:              r.StartTime,
		VisitEnd:                r.EndTime,
		DurationSeconds:         r.DurationSeconds,
		Country:                 r.Country,
		City:                    r.City,
		DeviceType:              r.DeviceType,
		OS:                      r.OS,
		Browser:                 r.Browser,
		MaxScrollDepth:          r.MaxScrollDepth,
		FinalScrollDepth:        r.FinalScrollDepth,
		TotalRealActivityEvents: r.TotalRealActivityEvents,
		CreatedAt:               r.CreatedAt,
	}

	if err := json.Unmarshal(r.ScrollStops, &s.ScrollStops); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scroll stops: %w", err)
	}
	if err := json.Unmarshal(r.ClickButtons, &s.ClickButtons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal click buttons: %w", err)
	}

	return s, nil
}
