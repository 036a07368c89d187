package summary

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pavelzhurov/visitstream/internal/event"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }
func sptr(v string) *string   { return &v }

func hbEvent(sessionID string, offset time.Duration, scroll *float64, sinceMS *int64) event.Event {
	return event.Event{
		ID:                    uuid.New(),
		SessionID:             sessionID,
		SiteURL:               "https://example.com",
		EventType:             event.EventTypeHeartbeat,
		EventTime:             testBase.Add(offset),
		HBScrollPercent:       scroll,
		HBSinceLastActivityMS: sinceMS,
	}
}

func clickEvent(sessionID string, offset time.Duration, text string) event.Event {
	return event.Event{
		ID:         uuid.New(),
		SessionID:  sessionID,
		SiteURL:    "https://example.com",
		EventType:  event.EventTypeClick,
		EventTime:  testBase.Add(offset),
		ButtonText: sptr(text),
		ButtonID:   sptr(text + "-btn"),
	}
}

func TestClassifyScrollChangeDedup(t *testing.T) {
	events := []event.Event{
		hbEvent("s1", 0, fptr(10), iptr(0)),
		hbEvent("s1", 30*time.Second, fptr(10), iptr(30_000)),
		hbEvent("s1", 60*time.Second, fptr(40), iptr(35_000)),
		clickEvent("s1", 65*time.Second, "Buy"),
	}

	kept, malformed := Classify(events, nil)

	if malformed != 0 {
		t.Errorf("expected 0 malformed events, got %d", malformed)
	}
	if len(kept) != 3 {
		t.Fatalf("expected 3 kept events, got %d", len(kept))
	}
	if kept[0].EventTime != testBase {
		t.Errorf("first kept event should be the heartbeat at 0s")
	}
	if kept[1].HBScrollPercent == nil || *kept[1].HBScrollPercent != 40 {
		t.Errorf("second kept event should be the scroll-change heartbeat at 60s")
	}
	if kept[2].EventType != event.EventTypeClick {
		t.Errorf("third kept event should be the click, got %s", kept[2].EventType)
	}
}

func TestClassifyBaselineSeeding(t *testing.T) {
	// The previous visit ended at scroll depth 40; repeating heartbeats
	// at 40 are noise even though they are the first in this run.
	events := []event.Event{
		hbEvent("s1", 0, fptr(40), iptr(60_000)),
		hbEvent("s1", 30*time.Second, fptr(40), iptr(90_000)),
		hbEvent("s1", 60*time.Second, fptr(55), iptr(120_000)),
	}

	kept, _ := Classify(events, fptr(40))

	if len(kept) != 1 {
		t.Fatalf("expected 1 kept event, got %d", len(kept))
	}
	if *kept[0].HBScrollPercent != 55 {
		t.Errorf("kept heartbeat should carry scroll 55, got %v", *kept[0].HBScrollPercent)
	}
}

func TestClassifyFirstHeartbeatEstablishesBaseline(t *testing.T) {
	events := []event.Event{
		hbEvent("s1", 0, fptr(0), nil),
	}

	kept, _ := Classify(events, nil)

	if len(kept) != 1 {
		t.Fatalf("first heartbeat with no prior baseline must be kept, got %d events", len(kept))
	}
}

func TestClassifyNullScrollDropped(t *testing.T) {
	// The null-scroll heartbeat is dropped and must not disturb the
	// baseline: the third heartbeat repeats depth 10 and stays noise.
	events := []event.Event{
		hbEvent("s1", 0, fptr(10), iptr(0)),
		hbEvent("s1", 30*time.Second, nil, iptr(30_000)),
		hbEvent("s1", 60*time.Second, fptr(10), iptr(60_000)),
	}

	kept, _ := Classify(events, nil)

	if len(kept) != 1 {
		t.Fatalf("expected 1 kept event, got %d", len(kept))
	}
}

func TestClassifyUnknownEventTypeKept(t *testing.T) {
	ev := event.Event{
		ID:        uuid.New(),
		SessionID: "s1",
		SiteURL:   "https://example.com",
		EventType: "rage_click",
		EventTime: testBase,
	}

	kept, _ := Classify([]event.Event{ev}, nil)

	if len(kept) != 1 {
		t.Fatalf("unknown event types must be treated as real activity")
	}
}

func TestClassifyMalformedSkipped(t *testing.T) {
	events := []event.Event{
		{SessionID: "s1", EventTime: testBase}, // no event type
		{EventType: event.EventTypeClick, EventTime: testBase}, // no session id
		clickEvent("s1", time.Second, "OK"),
	}

	kept, malformed := Classify(events, nil)

	if malformed != 2 {
		t.Errorf("expected 2 malformed events, got %d", malformed)
	}
	if len(kept) != 1 {
		t.Errorf("expected 1 kept event, got %d", len(kept))
	}
}

func TestVisitClosedBoundary(t *testing.T) {
	timeout := 15 * time.Minute
	last := testBase

	tests := []struct {
		name   string
		now    time.Time
		closed bool
	}{
		{"just before the boundary", last.Add(timeout - time.Nanosecond), false},
		{"exactly at the boundary", last.Add(timeout), true},
		{"past the boundary", last.Add(timeout + time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := visitClosed(last, tt.now, timeout); got != tt.closed {
				t.Errorf("visitClosed() = %v, want %v", got, tt.closed)
			}
		})
	}
}
