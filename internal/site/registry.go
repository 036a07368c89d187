package site

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// URLLister is the slice of Repository the registry needs.
type URLLister interface {
	ListActiveURLs(ctx context.Context) ([]string, error)
}

// Registry holds an in-memory snapshot of active site urls. The snapshot
// is replaced wholesale on each refresh and is never mutated in place, so
// readers only ever see a complete allow-list. A failed refresh keeps the
// previous snapshot.
type Registry struct {
	repo     URLLister
	interval time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	active map[string]struct{}
}

func NewRegistry(repo URLLister, interval time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		repo:     repo,
		interval: interval,
		logger:   logger,
		active:   make(map[string]struct{}),
	}
}

// Start loads the initial snapshot and refreshes it on a ticker until the
// context is cancelled.
func (r *Registry) Start(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					r.logger.Error("site allow-list refresh failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (r *Registry) Refresh(ctx context.Context) error {
	urls, err := r.repo.ListActiveURLs(ctx)
	if err != nil {
		return err
	}

	snapshot := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		snapshot[u] = struct{}{}
	}

	r.mu.Lock()
	r.active = snapshot
	r.mu.Unlock()

	r.logger.Debug("site allow-list refreshed", zap.Int("active_sites", len(snapshot)))
	return nil
}

func (r *Registry) IsActive(siteURL string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[siteURL]
	return ok
}
