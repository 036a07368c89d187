package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is one raw browser interaction as stored in the append-only
// events table. Type-specific payload fields are flattened into nullable
// columns, so the summarizer works on typed values instead of an open
// JSON map: hb_* fields only carry data for heartbeats, button_* fields
// only for click-like events.
type Event struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	UID       *string   `db:"uid" json:"uid,omitempty"`
	SiteURL   string    `db:"site_url" json:"site_url"`
	EventType string    `db:"event_type" json:"event_type"`
	EventTime time.Time `db:"event_time" json:"event_time"`

	ButtonText *string `db:"button_text" json:"button_text,omitempty"`
	ButtonID   *string `db:"button_id" json:"button_id,omitempty"`

	HBScrollPercent       *float64 `db:"hb_scroll_percent" json:"hb_scroll_percent,omitempty"`
	HBSinceLastActivityMS *int64   `db:"hb_since_last_activity_ms" json:"hb_since_last_activity_ms,omitempty"`

	Country    *string `db:"country" json:"country,omitempty"`
	City       *string `db:"city" json:"city,omitempty"`
	DeviceType *string `db:"device_type" json:"device_type,omitempty"`
	OS         *string `db:"os" json:"os,omitempty"`
	Browser    *string `db:"browser" json:"browser,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	EventTypeHeartbeat  = "heartbeat"
	EventTypeClick      = "click"
	EventTypeFormSubmit = "form_submit"
	EventTypePageView   = "page_view"
)

// IsHeartbeat reports whether the event is timer-driven telemetry rather
// than a direct user action.
func (e *Event) IsHeartbeat() bool {
	return e.EventType == EventTypeHeartbeat
}

func (e *Event) Validate() error {
	if e.EventType == "" {
		return ErrInvalidEventType
	}
	if e.SessionID == "" {
		return ErrInvalidSessionID
	}
	if e.SiteURL == "" {
		return ErrInvalidSiteURL
	}
	if e.EventTime.IsZero() {
		return ErrInvalidEventTime
	}
	return nil
}
