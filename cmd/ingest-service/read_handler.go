package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/internal/livestats"
	"github.com/pavelzhurov/visitstream/internal/summary"
)

// readHandler serves the small query surface of the ingest service:
// persisted visit summaries per session and hourly live counts per site.
type readHandler struct {
	summaries summary.SummaryStore
	stats     *livestats.Service
	logger    *zap.Logger
}

func newReadHandler(summaries summary.SummaryStore, stats *livestats.Service, logger *zap.Logger) *readHandler {
	return &readHandler{
		summaries: summaries,
		stats:     stats,
		logger:    logger,
	}
}

func (h *readHandler) SessionSummaries(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		httpError(w, http.StatusBadRequest, "session id is required")
		return
	}

	summaries, err := h.summaries.ListBySession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to list summaries", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"summaries":  summaries,
	})
}

func (h *readHandler) LiveStats(w http.ResponseWriter, r *http.Request) {
	siteURL := r.URL.Query().Get("site_url")
	if siteURL == "" {
		httpError(w, http.StatusBadRequest, "site_url is required")
		return
	}

	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		to = t
	}

	buckets, err := h.stats.GetStats(r.Context(), siteURL, from, to)
	if err != nil {
		h.logger.Error("failed to get livestats", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpJSON(w, http.StatusOK, map[string]any{
		"site_url": siteURL,
		"from":     from,
		"to":       to,
		"buckets":  buckets,
	})
}

func httpJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	httpJSON(w, status, map[string]string{"error": msg})
}
