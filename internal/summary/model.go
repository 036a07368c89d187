package summary

import (
	"time"
)

// VisitSummary is the persisted aggregation of one closed visit. For a
// given session summaries never overlap and each end_time strictly
// exceeds the previous one.
type VisitSummary struct {
	ID        int64   `json:"id"`
	SessionID string  `json:"session_id"`
	UID       *string `json:"uid,omitempty"`
	SiteURL   string  `json:"site_url"`

	VisitStart      time.Time `json:"visit_start"`
	VisitEnd        time.Time `json:"visit_end"`
	DurationSeconds float64   `json:"duration_seconds"`

	Country    *string `json:"country,omitempty"`
	City       *string `json:"city,omitempty"`
	DeviceType *string `json:"device_type,omitempty"`
	OS         *string `json:"os,omitempty"`
	Browser    *string `json:"browser,omitempty"`

	MaxScrollDepth   *float64     `json:"max_scroll_depth,omitempty"`
	FinalScrollDepth *float64     `json:"final_scroll_depth,omitempty"`
	ScrollStops      []ScrollStop `json:"scroll_stops"`
	ClickButtons     []ClickGroup `json:"click_buttons"`

	TotalRealActivityEvents int `json:"total_real_activity_events"`

	CreatedAt time.Time `json:"created_at"`
}

// ScrollStop records a pause in scrolling of at least the configured
// threshold, at the depth where the pause began.
type ScrollStop struct {
	Depth       float64 `json:"depth"`
	DurationSec float64 `json:"duration_sec"`
}

// ClickGroup aggregates all non-heartbeat events of one visit sharing
// the same (event_type, button_text) pair.
type ClickGroup struct {
	EventType  string    `json:"event_type"`
	ButtonText *string   `json:"button_text"`
	ButtonID   *string   `json:"button_id"`
	Count      int64     `json:"count"`
	FirstAt    time.Time `json:"first_at"`
	LastAt     time.Time `json:"last_at"`
}

// Watermark is the point already covered by persisted summaries for a
// session: the latest visit end and the scroll depth recorded there. It
// is derived from session_summary on every pass, never stored.
type Watermark struct {
	End         time.Time
	FinalScroll *float64
}
