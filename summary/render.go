// Package summary renders a day of canonical events into the lightweight
// HTML markup Pushover understands.
package summary

import (
	"fmt"
	"html"
	"strings"
	"time"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/perbu/daybrief/event"
)

const (
	dateFormat = "Monday, January 02, 2006"
	clock      = "3:04 PM"
	totalKey   = "Total: %d events"
)

var messages = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder()
	err := b.Set(language.English, totalKey, plural.Selectf(1, "%d",
		"=1", "Total: %[1]d event",
		"other", "Total: %[1]d events",
	))
	if err != nil {
		panic(fmt.Sprintf("summary: building message catalog: %v", err))
	}
	return b
}

// Day describes the day being summarized.
type Day struct {
	Date     time.Time
	Location *time.Location
	// Relative is "today", "tomorrow", or empty for an arbitrary date.
	Relative string
}

func (d Day) loc() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// Heading returns the formatted date, e.g. "Saturday, June 01, 2024".
func (d Day) Heading() string {
	return d.Date.In(d.loc()).Format(dateFormat)
}

// Render formats events, which must already be sorted by start.
func Render(events []event.Event, day Day) string {
	header := fmt.Sprintf("<b>Your schedule for %s</b>", day.Heading())
	if len(events) == 0 {
		return header + "\n\n" + noEvents(day.Relative)
	}

	var allDay, timed []event.Event
	for _, e := range events {
		if e.AllDay {
			allDay = append(allDay, e)
		} else {
			timed = append(timed, e)
		}
	}

	parts := []string{header + "\n"}
	if len(allDay) > 0 {
		parts = append(parts, "\n<b>All-day events:</b>")
		for _, e := range allDay {
			parts = append(parts, "• "+html.EscapeString(e.Title))
			parts = appendLocation(parts, e)
		}
	}
	if len(timed) > 0 {
		parts = append(parts, "\n<b>Scheduled events:</b>")
		for _, e := range timed {
			parts = append(parts, fmt.Sprintf("• %s: %s", TimeRange(e, day.loc()), html.EscapeString(e.Title)))
			parts = appendLocation(parts, e)
		}
	}

	p := message.NewPrinter(language.English, message.Catalog(messages))
	total := p.Sprintf(totalKey, len(events))
	if day.Relative != "" {
		total += " " + day.Relative
	}
	parts = append(parts, "\n<i>"+total+"</i>")

	return strings.Join(parts, "\n")
}

func appendLocation(parts []string, e event.Event) []string {
	if e.Location == "" {
		return parts
	}
	return append(parts, "  📍 "+html.EscapeString(e.Location))
}

func noEvents(relative string) string {
	if relative == "" {
		return "No events scheduled. Enjoy your free day! 🎉"
	}
	return fmt.Sprintf("No events scheduled for %s. Enjoy your free day! 🎉", relative)
}

// TimeRange formats the start (and end, when present) in loc. An end on a
// different calendar day is shown as "(multi-day)".
func TimeRange(e event.Event, loc *time.Location) string {
	start := e.Start.In(loc)
	s := start.Format(clock)
	if !e.HasEnd() {
		return s
	}
	end := e.End.In(loc)
	if !sameDay(start, end) {
		return s + " (multi-day)"
	}
	return s + " - " + end.Format(clock)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
