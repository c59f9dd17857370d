package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/perbu/daybrief/event"
)

// ErrAuth marks a missing, invalid or unrefreshable token. It is fatal for a run.
var ErrAuth = errors.New("gcal: not authorized")

// ProviderError is a failed calendar listing or event query.
type ProviderError struct {
	CalendarID string
	Op         string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.CalendarID == "" {
		return fmt.Sprintf("gcal: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gcal: %s %s: %v", e.Op, e.CalendarID, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Calendar describes one calendar the user can read.
type Calendar struct {
	ID       string
	Name     string
	TimeZone string
	Primary  bool
}

// Result is the outcome of querying a single calendar.
type Result struct {
	Calendar Calendar
	Events   []event.Raw
	Err      error
}

// Options tune a Source.
type Options struct {
	// Timeout bounds each provider call.
	Timeout time.Duration
	// QPS paces per-calendar queries.
	QPS    float64
	Logger *zap.SugaredLogger
}

// Source reads calendars and events from the Google Calendar API.
type Source struct {
	service *calendar.Service
	loc     *time.Location
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewSource creates a Source on top of an authenticated HTTP client. loc is
// the display timezone used for day windows.
func NewSource(ctx context.Context, client *http.Client, loc *time.Location, opts Options) (*Source, error) {
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.QPS > 0 {
		limit = rate.Limit(opts.QPS)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Source{
		service: srv,
		loc:     loc,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, 1),
		logger:  opts.Logger.With("component", "gcal"),
	}, nil
}

// ListCalendars returns every calendar on the user's calendar list.
func (s *Source) ListCalendars(ctx context.Context) ([]Calendar, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var cals []Calendar
	err := s.service.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			name := item.SummaryOverride
			if name == "" {
				name = item.Summary
			}
			cals = append(cals, Calendar{
				ID:       item.Id,
				Name:     name,
				TimeZone: item.TimeZone,
				Primary:  item.Primary,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &ProviderError{Op: "listing calendars", Err: err}
	}
	return cals, nil
}

// Window returns the half-open local day [midnight, next midnight) containing day.
func Window(day time.Time, loc *time.Location) (time.Time, time.Time) {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Fetch queries each calendar for the day containing day, one at a time. A
// failing calendar only fails its own Result.
func (s *Source) Fetch(ctx context.Context, day time.Time, calendars []Calendar) []Result {
	start, end := Window(day, s.loc)
	names := nameIndex(calendars)

	results := make([]Result, 0, len(calendars))
	for _, cal := range calendars {
		if name, ok := names[cal.ID]; ok {
			cal.Name = name
		} else {
			cal.Name = cal.ID
		}
		raws, err := s.fetchCalendar(ctx, cal, start, end)
		results = append(results, Result{Calendar: cal, Events: raws, Err: err})
	}
	return results
}

// EventsForDate returns the events starting on the day containing day across
// calendars. Calendars that fail are logged and skipped; an error is only
// returned when ctx is done.
func (s *Source) EventsForDate(ctx context.Context, day time.Time, calendars []Calendar) ([]event.Raw, error) {
	var raws []event.Raw
	for _, res := range s.Fetch(ctx, day, calendars) {
		if res.Err != nil {
			s.logger.Errorw("fetching events, skipping calendar",
				"calendar", res.Calendar.ID,
				"name", res.Calendar.Name,
				"error", res.Err,
			)
			continue
		}
		raws = append(raws, res.Events...)
	}
	return raws, ctx.Err()
}

func (s *Source) fetchCalendar(ctx context.Context, cal Calendar, start, end time.Time) ([]event.Raw, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{CalendarID: cal.ID, Op: "waiting for quota", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var raws []event.Raw
	dropped := 0
	err := s.service.Events.List(cal.ID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				if item.Status == "cancelled" {
					continue
				}
				raw := toRaw(item, cal)
				// The provider returns everything overlapping the window;
				// keep only events that start inside it.
				if t := raw.StartInstant(s.loc); t.Before(start) || !t.Before(end) {
					dropped++
					continue
				}
				raws = append(raws, raw)
			}
			return nil
		})
	if err != nil {
		return nil, &ProviderError{CalendarID: cal.ID, Op: "listing events", Err: err}
	}

	s.logger.Debugw("fetched events", "calendar", cal.ID, "count", len(raws), "outside_window", dropped)
	return raws, nil
}

func toRaw(item *calendar.Event, cal Calendar) event.Raw {
	r := event.Raw{
		Summary:      item.Summary,
		Location:     item.Location,
		Description:  item.Description,
		CalendarID:   cal.ID,
		CalendarName: cal.Name,
	}
	if item.Start != nil {
		r.Start = event.Descriptor{DateTime: item.Start.DateTime, Date: item.Start.Date}
	}
	if item.End != nil {
		r.End = event.Descriptor{DateTime: item.End.DateTime, Date: item.End.Date}
	}
	return r
}

// nameIndex maps calendar IDs to display names, skipping calendars without one.
func nameIndex(calendars []Calendar) map[string]string {
	names := make(map[string]string, len(calendars))
	for _, c := range calendars {
		if c.Name == "" {
			continue
		}
		if _, seen := names[c.ID]; !seen {
			names[c.ID] = c.Name
		}
	}
	return names
}
