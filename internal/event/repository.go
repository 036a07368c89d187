package event

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/pkg/postgres"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	uid TEXT,
	site_url TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_time TIMESTAMPTZ NOT NULL,
	button_text TEXT,
	button_id TEXT,
	hb_scroll_percent DOUBLE PRECISION,
	hb_since_last_activity_ms BIGINT,
	country TEXT,
	city TEXT,
	device_type TEXT,
	os TEXT,
	browser TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_events_session_time ON events (session_id, event_time);
CREATE INDEX IF NOT EXISTS idx_events_event_time ON events (event_time);
`

type Repository interface {
	Create(ctx context.Context, event *Event) error
	EnsureSchema(ctx context.Context) error
}

type repository struct {
	db     *postgres.DB
	logger *zap.Logger
}

func NewRepository(db *postgres.DB, logger *zap.Logger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

func (r *repository) EnsureSchema(ctx context.Context) error {
	return r.db.EnsureSchema(ctx, eventsSchema)
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO events (
			id, session_id, uid, site_url, event_type, event_time,
			button_text, button_id, hb_scroll_percent, hb_since_last_activity_ms,
			country, city, device_type, os, browser, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.SessionID,
		event.UID,
		event.SiteURL,
		event.EventType,
		event.EventTime,
		event.ButtonText,
		event.ButtonID,
		event.HBScrollPercent,
		event.HBSinceLastActivityMS,
		event.Country,
		event.City,
		event.DeviceType,
		event.OS,
		event.Browser,
		event.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				r.logger.Warn("Duplicate event ignored",
					zap.String("event_id", event.ID.String()),
				)
				return ErrDuplicateEvent
			}
		}
		r.logger.Error("Failed to create event", zap.Error(err))
		return fmt.Errorf("failed to create event: %w", err)
	}

	r.logger.Debug("Event created",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.String("session_id", event.SessionID),
	)

	return nil
}
