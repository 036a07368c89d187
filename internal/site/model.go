package site

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Site is one registered tracking origin. Only events for active sites
// are accepted by the ingest endpoint.
type Site struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SiteURL   string    `db:"site_url" json:"site_url"`
	APIKey    string    `db:"api_key" json:"api_key"`
	Category  *string   `db:"category" json:"category,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

var (
	ErrInvalidSiteURL = errors.New("site url is required")
	ErrSiteExists     = errors.New("site already registered")
	ErrSiteNotFound   = errors.New("site not found")
)

func NewSite(siteURL string, category *string) *Site {
	return &Site{
		ID:        uuid.New(),
		SiteURL:   siteURL,
		APIKey:    "key_" + uuid.New().String(),
		Category:  category,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
}
