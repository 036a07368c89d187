package livestats

import (
	"time"
)

// Bucket is one hour of event counts for a (site, event_type) pair.
// These are operational dashboard numbers fed straight from the Kafka
// stream; visit summaries are produced only by the summary worker.
type Bucket struct {
	ID             int64     `db:"id" json:"id"`
	SiteURL        string    `db:"site_url" json:"site_url"`
	BucketStart    time.Time `db:"bucket_start" json:"bucket_start"`
	EventType      string    `db:"event_type" json:"event_type"`
	TotalEvents    int64     `db:"total_events" json:"total_events"`
	UniqueSessions int64     `db:"unique_sessions" json:"unique_sessions"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func NewBucket(siteURL string, bucketStart time.Time, eventType string) *Bucket {
	return &Bucket{
		SiteURL:     siteURL,
		BucketStart: bucketStart.Truncate(time.Hour),
		EventType:   eventType,
		UpdatedAt:   time.Now().UTC(),
	}
}
