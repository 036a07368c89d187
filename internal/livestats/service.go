package livestats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/internal/event"
)

type bucketKey struct {
	siteURL   string
	bucket    time.Time
	eventType string
}

type Service struct {
	repo   Repository
	logger *zap.Logger

	// uniqueSessions caches session ids seen per bucket so the unique
	// count survives increments within one process lifetime. Guarded by
	// mu: the cleanup ticker runs on its own goroutine.
	mu             sync.Mutex
	uniqueSessions map[bucketKey]map[string]bool
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:           repo,
		logger:         logger,
		uniqueSessions: make(map[bucketKey]map[string]bool),
	}
}

func (s *Service) ProcessEvent(ctx context.Context, ev *event.Event) error {
	bucketStart := ev.EventTime.UTC().Truncate(time.Hour)

	key := bucketKey{
		siteURL:   ev.SiteURL,
		bucket:    bucketStart,
		eventType: ev.EventType,
	}

	s.mu.Lock()
	if s.uniqueSessions[key] == nil {
		s.uniqueSessions[key] = make(map[string]bool)
	}
	s.uniqueSessions[key][ev.SessionID] = true
	unique := int64(len(s.uniqueSessions[key]))
	s.mu.Unlock()

	bucket := NewBucket(ev.SiteURL, bucketStart, ev.EventType)
	bucket.TotalEvents = 1
	bucket.UniqueSessions = unique

	if err := s.repo.UpsertBucket(ctx, bucket); err != nil {
		return fmt.Errorf("failed to upsert bucket: %w", err)
	}

	s.logger.Debug("Event counted",
		zap.String("site_url", ev.SiteURL),
		zap.String("event_type", ev.EventType),
		zap.Time("bucket_start", bucketStart),
	)

	return nil
}

// GetStats returns hourly buckets for a site over a period.
func (s *Service) GetStats(ctx context.Context, siteURL string, from, to time.Time) ([]*Bucket, error) {
	return s.repo.GetBucketsRange(ctx, siteURL, from, to)
}

// CreateMessageHandler builds the handler wired into the Kafka consumer.
func (s *Service) CreateMessageHandler() func(ctx context.Context, key, value []byte) error {
	return func(ctx context.Context, key, value []byte) error {
		var ev event.Event
		if err := json.Unmarshal(value, &ev); err != nil {
			s.logger.Error("Failed to unmarshal event",
				zap.Error(err),
				zap.String("value", string(value)),
			)
			return err
		}

		return s.ProcessEvent(ctx, &ev)
	}
}

// CleanupOldCache drops unique-session sets for buckets older than a day.
func (s *Service) CleanupOldCache() {
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.uniqueSessions {
		if key.bucket.Before(cutoff) {
			delete(s.uniqueSessions, key)
			removed++
		}
	}

	s.logger.Debug("Cache cleanup completed", zap.Int("buckets_removed", removed))
}
