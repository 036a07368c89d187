package event

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/internal/metrics"
)

type KafkaProducer interface {
	SendMessage(ctx context.Context, key string, value any) error
}

// SiteChecker is the read-only allow-list snapshot of registered sites.
type SiteChecker interface {
	IsActive(siteURL string) bool
}

type Service struct {
	repo     Repository
	producer KafkaProducer
	sites    SiteChecker
	logger   *zap.Logger
}

func NewService(repo Repository, producer KafkaProducer, sites SiteChecker, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		producer: producer,
		sites:    sites,
		logger:   logger,
	}
}

// Track validates and persists one raw event, then publishes it for the
// live consumers. Persistence is the source of truth: a Kafka failure is
// logged but does not fail the ingest.
func (s *Service) Track(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		s.logger.Warn("failed to validate event",
			zap.Error(err),
			zap.String("event_id", event.ID.String()))
		metrics.EventsRejected.WithLabelValues("invalid").Inc()
		return fmt.Errorf("invalid event: %w", err)
	}

	if !s.sites.IsActive(event.SiteURL) {
		s.logger.Warn("event for unregistered site dropped",
			zap.String("site_url", event.SiteURL),
			zap.String("session_id", event.SessionID))
		metrics.EventsRejected.WithLabelValues("unknown_site").Inc()
		return ErrUnknownSite
	}

	if err := s.repo.Create(ctx, event); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			s.logger.Debug("event is already tracked", zap.String("event_id", event.ID.String()))
			return nil
		}

		s.logger.Error("failed to create event",
			zap.Error(err),
			zap.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to create event: %w", err)
	}

	// Events of one session go to one partition.
	key := event.SessionID

	if err := s.producer.SendMessage(ctx, key, event); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
	}

	metrics.EventsIngested.WithLabelValues(event.EventType).Inc()

	s.logger.Debug("Event tracked",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.String("session_id", event.SessionID),
	)
	return nil
}
