package summary

import (
	"time"

	"github.com/pavelzhurov/visitstream/internal/event"
)

// Aggregate reduces one visit's classified, time-ordered events into a
// VisitSummary. The input must be non-empty; the caller filters out
// empty visits before aggregation.
func Aggregate(events []event.Event, stopThreshold time.Duration) (*VisitSummary, error) {
	if len(events) == 0 {
		return nil, ErrEmptyVisit
	}

	first := events[0]
	last := events[len(events)-1]

	s := &VisitSummary{
		SessionID:               first.SessionID,
		UID:                     first.UID,
		SiteURL:                 first.SiteURL,
		VisitStart:              first.EventTime,
		VisitEnd:                last.EventTime,
		DurationSeconds:         last.EventTime.Sub(first.EventTime).Seconds(),
		ScrollStops:             []ScrollStop{},
		ClickButtons:            []ClickGroup{},
		TotalRealActivityEvents: len(events),
		CreatedAt:               time.Now().UTC(),
	}

	s.Country = firstNonNull(events, func(e *event.Event) *string { return e.Country })
	s.City = firstNonNull(events, func(e *event.Event) *string { return e.City })
	s.DeviceType = firstNonNull(events, func(e *event.Event) *string { return e.DeviceType })
	s.OS = firstNonNull(events, func(e *event.Event) *string { return e.OS })
	s.Browser = firstNonNull(events, func(e *event.Event) *string { return e.Browser })

	aggregateScroll(s, events, stopThreshold)
	aggregateClicks(s, events)

	return s, nil
}

func aggregateScroll(s *VisitSummary, events []event.Event, stopThreshold time.Duration) {
	thresholdMS := stopThreshold.Milliseconds()

	var prevDepth *float64
	for i := range events {
		e := &events[i]
		if !e.IsHeartbeat() {
			continue
		}

		depth := e.HBScrollPercent
		if depth != nil {
			if s.MaxScrollDepth == nil || *depth > *s.MaxScrollDepth {
				v := *depth
				s.MaxScrollDepth = &v
			}
			v := *depth
			s.FinalScrollDepth = &v
		}

		sinceMS := e.HBSinceLastActivityMS
		if depth == nil || sinceMS == nil {
			prevDepth = depth
			continue
		}

		if *sinceMS >= thresholdMS {
			// The pause happened at the depth the user was sitting on
			// before this heartbeat fired.
			stopDepth := *depth
			if prevDepth != nil {
				stopDepth = *prevDepth
			}
			s.ScrollStops = append(s.ScrollStops, ScrollStop{
				Depth:       stopDepth,
				DurationSec: float64(*sinceMS) / 1000,
			})
		}
		prevDepth = depth
	}
}

func aggregateClicks(s *VisitSummary, events []event.Event) {
	type groupKey struct {
		eventType string
		text      string
	}

	groups := make(map[groupKey]*ClickGroup)
	order := make([]groupKey, 0)

	for i := range events {
		e := &events[i]
		if e.IsHeartbeat() {
			continue
		}

		text := ""
		if e.ButtonText != nil {
			text = *e.ButtonText
		}
		key := groupKey{eventType: e.EventType, text: text}

		g, ok := groups[key]
		if !ok {
			g = &ClickGroup{
				EventType:  e.EventType,
				ButtonText: e.ButtonText,
				ButtonID:   e.ButtonID,
				FirstAt:    e.EventTime,
				LastAt:     e.EventTime,
			}
			groups[key] = g
			order = append(order, key)
		}

		g.Count++
		if e.EventTime.Before(g.FirstAt) {
			g.FirstAt = e.EventTime
		}
		if e.EventTime.After(g.LastAt) {
			g.LastAt = e.EventTime
		}
	}

	for _, key := range order {
		s.ClickButtons = append(s.ClickButtons, *groups[key])
	}
}

func firstNonNull(events []event.Event, get func(*event.Event) *string) *string {
	for i := range events {
		if v := get(&events[i]); v != nil {
			return v
		}
	}
	return nil
}
