package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/pkg/postgres"
)

const sitesSchema = `
CREATE TABLE IF NOT EXISTS sites (
	id UUID PRIMARY KEY,
	site_url TEXT NOT NULL UNIQUE,
	api_key TEXT NOT NULL,
	category TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type Repository interface {
	Create(ctx context.Context, site *Site) error
	GetByURL(ctx context.Context, siteURL string) (*Site, error)
	ListActiveURLs(ctx context.Context) ([]string, error)
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
	return r.db.EnsureSchema(ctx, sitesSchema)
}

func (r *repository) Create(ctx context.Context, site *Site) error {
	query := `
		INSERT INTO sites (id, site_url, api_key, category, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		site.ID,
		site.SiteURL,
		site.APIKey,
		site.Category,
		site.IsActive,
		site.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return ErrSiteExists
			}
		}
		r.logger.Error("Failed to create site", zap.Error(err))
		return fmt.Errorf("failed to create site: %w", err)
	}

	r.logger.Info("Site registered",
		zap.String("site_id", site.ID.String()),
		zap.String("site_url", site.SiteURL),
	)

	return nil
}

func (r *repository) GetByURL(ctx context.Context, siteURL string) (*Site, error) {
	query := `
		SELECT id, site_url, api_key, category, is_active, created_at
		FROM sites
		WHERE site_url = $1
	`

	var site Site
	err := r.db.GetContext(ctx, &site, query, siteURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	return &site, nil
}

func (r *repository) ListActiveURLs(ctx context.Context) ([]string, error) {
	query := `
		SELECT site_url
		FROM sites
		WHERE is_active = TRUE
	`

	var urls []string
	if err := r.db.SelectContext(ctx, &urls, query); err != nil {
		return nil, fmt.Errorf("failed to list active sites: %w", err)
	}

	return urls, nil
}
