package event

import (
	"sort"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	naiveTimeLayout = "2006-01-02T15:04:05"
)

// Normalize converts raw events into canonical events sorted by start.
// It never fails: missing or malformed fields fall back to defaults.
func Normalize(raws []Raw, loc *time.Location) []Event {
	events := make([]Event, 0, len(raws))
	for _, r := range raws {
		events = append(events, normalizeOne(r, loc))
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

func normalizeOne(r Raw, loc *time.Location) Event {
	e := Event{
		Title:       strings.TrimSpace(r.Summary),
		Location:    strings.TrimSpace(r.Location),
		Description: r.Description,
		Calendar:    r.CalendarName,
	}
	if e.Title == "" {
		e.Title = DefaultTitle
	}

	start, allDay, ok := r.Start.Resolve(loc)
	if !ok {
		start = MinStart(loc)
	}
	e.Start = start
	e.AllDay = allDay

	if end, _, ok := r.End.Resolve(loc); ok {
		e.End = end
	}
	return e
}

// Resolve returns the instant a descriptor points at. Date-only descriptors
// resolve to local midnight in loc and report allDay. ok is false when the
// descriptor is empty or cannot be parsed.
func (d Descriptor) Resolve(loc *time.Location) (t time.Time, allDay bool, ok bool) {
	switch {
	case d.DateTime != "":
		t, ok = parseInstant(d.DateTime, loc)
		return t, false, ok
	case d.Date != "":
		t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(d.Date), loc)
		if err != nil {
			return time.Time{}, true, false
		}
		return t, true, true
	}
	return time.Time{}, false, false
}

// StartInstant resolves the start of a raw event, falling back to MinStart.
func (r Raw) StartInstant(loc *time.Location) time.Time {
	if t, _, ok := r.Start.Resolve(loc); ok {
		return t
	}
	return MinStart(loc)
}

// MinStart is the sentinel start for events whose start is missing, so they
// sort before everything else.
func MinStart(loc *time.Location) time.Time {
	return time.Date(1900, time.January, 1, 0, 0, 0, 0, loc)
}

// parseInstant accepts RFC3339 with a "Z" or numeric offset and keeps that
// offset. Naive timestamps are taken to be in loc.
func parseInstant(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(naiveTimeLayout, s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}
