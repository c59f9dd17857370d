package gcal

import (
	"context"
	"time"

	"github.com/perbu/daybrief/event"
)

// Provider is the calendar access the summary pipeline needs. *Source implements it.
type Provider interface {
	ListCalendars(ctx context.Context) ([]Calendar, error)
	EventsForDate(ctx context.Context, day time.Time, calendars []Calendar) ([]event.Raw, error)
}
