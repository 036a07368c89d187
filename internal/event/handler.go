package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrackRequest is the wire shape of POST /v1/track. The payload is a
// closed union keyed by event_type: heartbeat events carry the heartbeat
// block, click-like events the action block. Unknown event types are
// accepted with no payload block and treated as real activity downstream.
type TrackRequest struct {
	SessionID string     `json:"session_id"`
	UID       *string    `json:"uid,omitempty"`
	SiteURL   string     `json:"site_url"`
	EventType string     `json:"event_type"`
	EventTime *time.Time `json:"event_time,omitempty"`

	Heartbeat *HeartbeatPayload `json:"heartbeat,omitempty"`
	Action    *ActionPayload    `json:"action,omitempty"`
	Client    *ClientPayload    `json:"client,omitempty"`
}

type HeartbeatPayload struct {
	ScrollPercent       *float64 `json:"scroll_percent"`
	SinceLastActivityMS *int64   `json:"since_last_activity_ms"`
}

type ActionPayload struct {
	ButtonText *string `json:"button_text,omitempty"`
	ButtonID   *string `json:"button_id,omitempty"`
}

// ClientPayload carries metadata resolved by the tracking SDK or an
// upstream enrichment proxy. All fields are optional.
type ClientPayload struct {
	Country    *string `json:"country,omitempty"`
	City       *string `json:"city,omitempty"`
	DeviceType *string `json:"device_type,omitempty"`
	OS         *string `json:"os,omitempty"`
	Browser    *string `json:"browser,omitempty"`
}

type TrackResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	ev := req.toEvent()
	if err := h.service.Track(r.Context(), ev); err != nil {
		switch {
		case errors.Is(err, ErrUnknownSite):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, ErrInvalidEventType),
			errors.Is(err, ErrInvalidSessionID),
			errors.Is(err, ErrInvalidSiteURL),
			errors.Is(err, ErrInvalidEventTime):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("track failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, TrackResponse{
		EventID: ev.ID.String(),
		Status:  "ok",
	})
}

func (req *TrackRequest) toEvent() *Event {
	eventTime := time.Now().UTC()
	if req.EventTime != nil {
		eventTime = req.EventTime.UTC()
	}

	ev := &Event{
		ID:        uuid.New(),
		SessionID: req.SessionID,
		UID:       req.UID,
		SiteURL:   req.SiteURL,
		EventType: req.EventType,
		EventTime: eventTime,
		CreatedAt: time.Now().UTC(),
	}

	if req.EventType == EventTypeHeartbeat && req.Heartbeat != nil {
		ev.HBScrollPercent = req.Heartbeat.ScrollPercent
		ev.HBSinceLastActivityMS = req.Heartbeat.SinceLastActivityMS
	}
	if req.EventType != EventTypeHeartbeat && req.Action != nil {
		ev.ButtonText = req.Action.ButtonText
		ev.ButtonID = req.Action.ButtonID
	}
	if req.Client != nil {
		ev.Country = req.Client.Country
		ev.City = req.Client.City
		ev.DeviceType = req.Client.DeviceType
		ev.OS = req.Client.OS
		ev.Browser = req.Client.Browser
	}

	return ev
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
