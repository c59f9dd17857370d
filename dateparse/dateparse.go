package dateparse

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	naiveTimeLayout = "2006-01-02T15:04:05"
)

// ErrConflict is returned when a specific date and tomorrow mode are both requested.
var ErrConflict = errors.New("a date and --tomorrow cannot be combined")

// Relative labels a target day relative to now.
type Relative string

const (
	Today    Relative = "today"
	Tomorrow Relative = "tomorrow"
	Other    Relative = ""
)

// Parser resolves target days in the display timezone.
type Parser struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Parser for loc.
func New(loc *time.Location) *Parser {
	return &Parser{loc: loc, now: time.Now}
}

// Target picks the day a manual run summarizes: the given date, tomorrow, or
// today when neither is set. The result is local midnight in the display timezone.
func (p *Parser) Target(date string, tomorrow bool) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date != "" && tomorrow {
		return time.Time{}, ErrConflict
	}
	today := p.StartOfDay(p.now())
	switch {
	case tomorrow:
		return today.AddDate(0, 0, 1), nil
	case date == "" || strings.EqualFold(date, "today"):
		return today, nil
	case strings.EqualFold(date, "tomorrow"):
		return today.AddDate(0, 0, 1), nil
	}
	day, err := ParseDay(date, p.loc)
	if err != nil {
		return time.Time{}, err
	}
	return p.StartOfDay(day), nil
}

// Relative labels day as today, tomorrow or neither.
func (p *Parser) Relative(day time.Time) Relative {
	today := p.StartOfDay(p.now())
	d := p.StartOfDay(day)
	switch {
	case d.Equal(today):
		return Today
	case d.Equal(today.AddDate(0, 0, 1)):
		return Tomorrow
	}
	return Other
}

// StartOfDay returns local midnight of the day containing t.
func (p *Parser) StartOfDay(t time.Time) time.Time {
	t = t.In(p.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
}

// ParseDay accepts YYYY-MM-DD, an RFC3339 instant, or a naive
// YYYY-MM-DDTHH:MM:SS timestamp, which is taken to be in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation(naiveTimeLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}
