package livestats

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/pkg/postgres"
)

const livestatsSchema = `
CREATE TABLE IF NOT EXISTS livestats_hourly (
	id BIGSERIAL PRIMARY KEY,
	site_url TEXT NOT NULL,
	bucket_start TIMESTAMPTZ NOT NULL,
	event_type TEXT NOT NULL,
	total_events BIGINT NOT NULL DEFAULT 0,
	unique_sessions BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (site_url, bucket_start, event_type)
);
`

type Repository interface {
	UpsertBucket(ctx context.Context, bucket *Bucket) error
	GetBucketsRange(ctx context.Context, siteURL string, from, to time.Time) ([]*Bucket, error)
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

func EnsureSchema(ctx context.Context, db *postgres.DB) error {
	return db.EnsureSchema(ctx, livestatsSchema)
}

func (r *repository) UpsertBucket(ctx context.Context, bucket *Bucket) error {
	query := `
		INSERT INTO livestats_hourly (site_url, bucket_start, event_type, total_events, unique_sessions, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (site_url, bucket_start, event_type)
		DO UPDATE SET
			total_events = livestats_hourly.total_events + EXCLUDED.total_events,
			unique_sessions = EXCLUDED.unique_sessions,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		bucket.SiteURL,
		bucket.BucketStart,
		bucket.EventType,
		bucket.TotalEvents,
		bucket.UniqueSessions,
		bucket.UpdatedAt,
	).Scan(&bucket.ID)

	if err != nil {
		r.logger.Error("Failed to upsert bucket", zap.Error(err))
		return fmt.Errorf("failed to upsert bucket: %w", err)
	}

	return nil
}

func (r *repository) GetBucketsRange(ctx context.Context, siteURL string, from, to time.Time) ([]*Bucket, error) {
	query := `
		SELECT id, site_url, bucket_start, event_type, total_events, unique_sessions, updated_at
		FROM livestats_hourly
		WHERE site_url = $1
		  AND bucket_start >= $2
		  AND bucket_start <= $3
		ORDER BY bucket_start, event_type
	`

	var buckets []*Bucket
	if err := r.db.SelectContext(ctx, &buckets, query, siteURL, from, to); err != nil {
		return nil, fmt.Errorf("failed to get buckets: %w", err)
	}

	return buckets, nil
}
