package site

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type RegisterRequest struct {
	SiteURL  string  `json:"site_url"`
	Category *string `json:"category,omitempty"`
}

type RegisterResponse struct {
	SiteID  string `json:"site_id"`
	SiteURL string `json:"site_url"`
	APIKey  string `json:"api_key"`
}

type Handler struct {
	repo     Repository
	registry *Registry
	logger   *zap.Logger
}

func NewHandler(repo Repository, registry *Registry, logger *zap.Logger) *Handler {
	return &Handler{
		repo:     repo,
		registry: registry,
		logger:   logger,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	req.SiteURL = strings.TrimSpace(req.SiteURL)
	if req.SiteURL == "" {
		writeError(w, http.StatusBadRequest, ErrInvalidSiteURL.Error())
		return
	}

	s := NewSite(req.SiteURL, req.Category)
	if err := h.repo.Create(r.Context(), s); err != nil {
		if errors.Is(err, ErrSiteExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Make the new site usable immediately instead of waiting out the
	// refresh interval.
	if err := h.registry.Refresh(r.Context()); err != nil {
		h.logger.Warn("allow-list refresh after registration failed", zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		SiteID:  s.ID.String(),
		SiteURL: s.SiteURL,
		APIKey:  s.APIKey,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
