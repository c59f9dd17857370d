// Package event holds the provider-independent event shapes and the
// normalizer that turns raw provider records into an ordered day list.
package event

import "time"

// DefaultTitle is used for events without a summary.
const DefaultTitle = "No title"

// Descriptor is a start or end marker as the provider sends it: either an
// RFC3339 instant (DateTime) or a plain YYYY-MM-DD date for all-day events.
type Descriptor struct {
	DateTime string
	Date     string
}

// Raw is an event record as fetched, tagged with its source calendar.
type Raw struct {
	Summary      string
	Location     string
	Description  string
	Start        Descriptor
	End          Descriptor
	CalendarID   string
	CalendarName string
}

// Event is the canonical event used by the renderer.
type Event struct {
	Title       string
	Location    string
	Description string
	Calendar    string
	// Start is always set. Timed events keep the offset they were written in.
	Start time.Time
	// End is the zero time when the event has no defined end.
	End    time.Time
	AllDay bool
}

// HasEnd reports whether the event has a defined end.
func (e Event) HasEnd() bool {
	return !e.End.IsZero()
}
