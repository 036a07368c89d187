package summary

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pavelzhurov/visitstream/internal/event"
)

func TestAggregateEmptyVisit(t *testing.T) {
	_, err := Aggregate(nil, 30*time.Second)
	if !errors.Is(err, ErrEmptyVisit) {
		t.Fatalf("expected ErrEmptyVisit, got %v", err)
	}
}

func TestAggregateSingleVisit(t *testing.T) {
	events := []event.Event{
		hbEvent("s1", 0, fptr(10), iptr(0)),
		hbEvent("s1", 60*time.Second, fptr(40), iptr(5_000)),
		clickEvent("s1", 65*time.Second, "Buy"),
	}

	s, err := Aggregate(events, 30*time.Second)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	if !s.VisitStart.Equal(testBase) {
		t.Errorf("visit_start = %v, want %v", s.VisitStart, testBase)
	}
	if !s.VisitEnd.Equal(testBase.Add(65 * time.Second)) {
		t.Errorf("visit_end = %v, want %v", s.VisitEnd, testBase.Add(65*time.Second))
	}
	if s.DurationSeconds != 65 {
		t.Errorf("duration_seconds = %v, want 65", s.DurationSeconds)
	}
	if s.MaxScrollDepth == nil || *s.MaxScrollDepth != 40 {
		t.Errorf("max_scroll_depth = %v, want 40", s.MaxScrollDepth)
	}
	if s.FinalScrollDepth == nil || *s.FinalScrollDepth != 40 {
		t.Errorf("final_scroll_depth = %v, want 40", s.FinalScrollDepth)
	}
	if len(s.ScrollStops) != 0 {
		t.Errorf("expected no scroll stops, got %v", s.ScrollStops)
	}
	if s.TotalRealActivityEvents != 3 {
		t.Errorf("total_real_activity_events = %d, want 3", s.TotalRealActivityEvents)
	}

	if len(s.ClickButtons) != 1 {
		t.Fatalf("expected 1 click group, got %d", len(s.ClickButtons))
	}
	g := s.ClickButtons[0]
	if g.EventType != event.EventTypeClick || g.ButtonText == nil || *g.ButtonText != "Buy" || g.Count != 1 {
		t.Errorf("unexpected click group: %+v", g)
	}
}

func TestAggregateScrollStops(t *testing.T) {
	// The 45s pause is reported at the depth the user sat on before the
	// heartbeat that carried it, and the first heartbeat's pause at its
	// own depth.
	events := []event.Event{
		hbEvent("s1", 0, fptr(20), iptr(40_000)),
		hbEvent("s1", 50*time.Second, fptr(50), iptr(45_000)),
		hbEvent("s1", 60*time.Second, fptr(80), iptr(10_000)),
	}

	s, err := Aggregate(events, 30*time.Second)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	want := []ScrollStop{
		{Depth: 20, DurationSec: 40},
		{Depth: 20, DurationSec: 45},
	}
	if !reflect.DeepEqual(s.ScrollStops, want) {
		t.Errorf("scroll_stops = %v, want %v", s.ScrollStops, want)
	}
}

func TestAggregateClickGrouping(t *testing.T) {
	events := []event.Event{
		clickEvent("s1", 0, "Buy"),
		clickEvent("s1", 10*time.Second, "Help"),
		clickEvent("s1", 20*time.Second, "Buy"),
	}

	s, err := Aggregate(events, 30*time.Second)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	if len(s.ClickButtons) != 2 {
		t.Fatalf("expected 2 click groups, got %d", len(s.ClickButtons))
	}
	buy := s.ClickButtons[0]
	if *buy.ButtonText != "Buy" || buy.Count != 2 {
		t.Errorf("unexpected first group: %+v", buy)
	}
	if !buy.FirstAt.Equal(testBase) || !buy.LastAt.Equal(testBase.Add(20*time.Second)) {
		t.Errorf("first/last timestamps wrong: %+v", buy)
	}
	if *s.ClickButtons[1].ButtonText != "Help" {
		t.Errorf("unexpected second group: %+v", s.ClickButtons[1])
	}
}

func TestAggregateMetadataFirstNonNull(t *testing.T) {
	first := hbEvent("s1", 0, fptr(10), nil)
	second := clickEvent("s1", 5*time.Second, "Buy")
	second.Country = sptr("DE")
	second.DeviceType = sptr("mobile")

	s, err := Aggregate([]event.Event{first, second}, 30*time.Second)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	if s.Country == nil || *s.Country != "DE" {
		t.Errorf("country = %v, want DE", s.Country)
	}
	if s.DeviceType == nil || *s.DeviceType != "mobile" {
		t.Errorf("device_type = %v, want mobile", s.DeviceType)
	}
	if s.City != nil {
		t.Errorf("city should stay null, got %v", *s.City)
	}
}

func TestAggregateNoHeartbeats(t *testing.T) {
	s, err := Aggregate([]event.Event{clickEvent("s1", 0, "Buy")}, 30*time.Second)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	if s.MaxScrollDepth != nil || s.FinalScrollDepth != nil {
		t.Errorf("scroll depths should stay null without heartbeats")
	}
}

func TestAggregateNoiseInvariance(t *testing.T) {
	// Adding repeated-scroll heartbeats between the real events must not
	// change the summary once classification has run.
	clean := []event.Event{
		hbEvent("s1", 0, fptr(10), iptr(0)),
		hbEvent("s1", 60*time.Second, fptr(40), iptr(5_000)),
		clickEvent("s1", 65*time.Second, "Buy"),
	}
	noisy := []event.Event{
		clean[0],
		hbEvent("s1", 20*time.Second, fptr(10), iptr(20_000)),
		hbEvent("s1", 40*time.Second, fptr(10), iptr(40_000)),
		clean[1],
		clean[2],
	}

	keptClean, _ := Classify(clean, nil)
	keptNoisy, _ := Classify(noisy, nil)

	a, err := Aggregate(keptClean, 30*time.Second)
	if err != nil {
		t.Fatalf("Aggregate(clean) error: %v", err)
	}
	b, err := Aggregate(keptNoisy, 30*time.Second)
	if err != nil {
		t.Fatalf("Aggregate(noisy) error: %v", err)
	}

	a.CreatedAt, b.CreatedAt = time.Time{}, time.Time{}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("summaries diverge:\nclean: %+v\nnoisy: %+v", a, b)
	}
}
