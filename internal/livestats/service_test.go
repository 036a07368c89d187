package livestats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/internal/event"
)

type fakeRepository struct {
	upserts []*Bucket
}

func (f *fakeRepository) UpsertBucket(_ context.Context, b *Bucket) error {
	f.upserts = append(f.upserts, b)
	return nil
}

func (f *fakeRepository) GetBucketsRange(context.Context, string, time.Time, time.Time) ([]*Bucket, error) {
	return nil, nil
}

func testEvent(sessionID string, at time.Time) *event.Event {
	return &event.Event{
		ID:        uuid.New(),
		SessionID: sessionID,
		SiteURL:   "https://example.com",
		EventType: event.EventTypePageView,
		EventTime: at,
	}
}

func TestProcessEventBucketsByHour(t *testing.T) {
	repo := &fakeRepository{}
	s := NewService(repo, zap.NewNop())

	at := time.Date(2025, 6, 1, 12, 34, 56, 0, time.UTC)
	if err := s.ProcessEvent(context.Background(), testEvent("s1", at)); err != nil {
		t.Fatalf("ProcessEvent() error: %v", err)
	}

	if len(repo.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(repo.upserts))
	}
	b := repo.upserts[0]
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !b.BucketStart.Equal(want) {
		t.Errorf("bucket_start = %v, want %v", b.BucketStart, want)
	}
	if b.TotalEvents != 1 || b.UniqueSessions != 1 {
		t.Errorf("unexpected counts: %+v", b)
	}
}

func TestProcessEventCountsUniqueSessions(t *testing.T) {
	repo := &fakeRepository{}
	s := NewService(repo, zap.NewNop())

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for _, id := range []string{"s1", "s1", "s2"} {
		if err := s.ProcessEvent(ctx, testEvent(id, at)); err != nil {
			t.Fatalf("ProcessEvent() error: %v", err)
		}
	}

	last := repo.upserts[len(repo.upserts)-1]
	if last.UniqueSessions != 2 {
		t.Errorf("unique_sessions = %d, want 2", last.UniqueSessions)
	}
}

func TestMessageHandlerDecodesEvents(t *testing.T) {
	repo := &fakeRepository{}
	s := NewService(repo, zap.NewNop())
	handler := s.CreateMessageHandler()

	payload, err := json.Marshal(testEvent("s1", time.Now().UTC()))
	if err != nil {
		t.Fatal(err)
	}

	if err := handler(context.Background(), []byte("s1"), payload); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(repo.upserts) != 1 {
		t.Errorf("expected 1 upsert, got %d", len(repo.upserts))
	}

	if err := handler(context.Background(), []byte("s1"), []byte("not json")); err == nil {
		t.Error("expected an error for a malformed message")
	}
}

func TestCleanupOldCache(t *testing.T) {
	repo := &fakeRepository{}
	s := NewService(repo, zap.NewNop())
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()

	if err := s.ProcessEvent(ctx, testEvent("s1", old)); err != nil {
		t.Fatal(err)
	}
	if err := s.ProcessEvent(ctx, testEvent("s1", fresh)); err != nil {
		t.Fatal(err)
	}

	s.CleanupOldCache()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.uniqueSessions) != 1 {
		t.Errorf("expected only the fresh bucket to survive, have %d", len(s.uniqueSessions))
	}
	for key := range s.uniqueSessions {
		if key.bucket.Before(time.Now().UTC().Add(-24 * time.Hour)) {
			t.Errorf("stale bucket survived cleanup: %v", key.bucket)
		}
	}
}
