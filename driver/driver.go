// Package driver runs the summary pipeline: session, calendars, events,
// normalization, rendering and delivery, either on a schedule or on demand.
package driver

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perbu/daybrief/config"
	"github.com/perbu/daybrief/event"
	"github.com/perbu/daybrief/gcal"
	"github.com/perbu/daybrief/summary"
)

const (
	SummaryTitle  = "📅 Daily Calendar Summary"
	TomorrowTitle = "📅 Tomorrow's Calendar Summary"
	ManualTitle   = "📅 Calendar Summary"
	ErrorTitle    = "⚠️ Calendar Summary Error"
)

var (
	// ErrDelivery is returned when the notifier did not accept the summary.
	ErrDelivery = errors.New("summary delivery failed")
	// ErrNoNotifier is returned by Run when the driver was built without a notifier.
	ErrNoNotifier = errors.New("no notifier configured")
)

// Notifier delivers a titled message and reports whether it was accepted.
type Notifier interface {
	Deliver(ctx context.Context, title, body string) bool
}

// Opener establishes an authenticated calendar session for one run.
type Opener func(ctx context.Context) (gcal.Provider, error)

// Job is one pipeline invocation.
type Job struct {
	Name  string
	Title string
	// Day is the day to summarize. When zero, the day is today plus Offset days.
	Day      time.Time
	Offset   int
	Relative string
}

// TodayJob is the daily summary.
func TodayJob() Job {
	return Job{Name: "daily", Title: SummaryTitle, Relative: "today"}
}

// TomorrowJob is the evening preview of the next day.
func TomorrowJob() Job {
	return Job{Name: "tomorrow", Title: TomorrowTitle, Offset: 1, Relative: "tomorrow"}
}

// Driver holds the process-wide state the pipeline needs. Runs are serialized.
type Driver struct {
	cfg      *config.Config
	loc      *time.Location
	open     Opener
	notifier Notifier
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu sync.Mutex
}

// New validates cfg and builds a Driver. notifier may be nil for preview-only use.
func New(cfg *config.Config, open Opener, notifier Notifier, logger *zap.SugaredLogger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver{
		cfg:      cfg,
		loc:      loc,
		open:     open,
		notifier: notifier,
		logger:   logger.With("component", "driver"),
		now:      time.Now,
	}, nil
}

// Location returns the display timezone.
func (d *Driver) Location() *time.Location {
	return d.loc
}

// Summarize fetches and renders the summary for day without delivering it.
func (d *Driver) Summarize(ctx context.Context, day time.Time, relative string) (string, error) {
	return d.summarize(ctx, d.logger, day, relative)
}

func (d *Driver) summarize(ctx context.Context, log *zap.SugaredLogger, day time.Time, relative string) (string, error) {
	provider, err := d.open(ctx)
	if err != nil {
		return "", fmt.Errorf("opening calendar session: %w", err)
	}

	cals, err := provider.ListCalendars(ctx)
	if err != nil {
		log.Warnw("listing calendars, falling back to configured calendar",
			"calendar", d.cfg.CalendarID,
			"error", err,
		)
		cals = []gcal.Calendar{{ID: d.cfg.CalendarID}}
	}

	raws, err := provider.EventsForDate(ctx, day, cals)
	if err != nil {
		return "", fmt.Errorf("fetching events: %w", err)
	}

	events := event.Normalize(raws, d.loc)
	log.Infow("events collected", "calendars", len(cals), "events", len(events))
	return summary.Render(events, summary.Day{Date: day, Location: d.loc, Relative: relative}), nil
}

// Run executes one job end to end and returns any failure.
func (d *Driver) Run(ctx context.Context, job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.notifier == nil {
		return ErrNoNotifier
	}
	day := d.day(job)
	log := d.logger.With("run_id", uuid.NewString(), "job", job.Name, "day", day.Format("2006-01-02"))
	log.Infow("generating calendar summary")

	text, err := d.summarize(ctx, log, day, job.Relative)
	if err != nil {
		return err
	}
	log.Debugw("rendered summary", "text", summary.Plain(text))
	if !d.notifier.Deliver(ctx, job.Title, text) {
		return ErrDelivery
	}
	log.Infow("summary sent", "title", job.Title)
	return nil
}

// Trigger runs job and absorbs every failure, panics included: the failure
// is logged and reported through a best-effort error notification. The
// error is returned for callers that want an exit status.
func (d *Driver) Trigger(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s run: %v", job.Name, r)
		}
		if err != nil {
			d.reportFailure(ctx, job, err)
		}
	}()
	return d.Run(ctx, job)
}

func (d *Driver) reportFailure(ctx context.Context, job Job, runErr error) {
	d.logger.Errorw("calendar summary failed", "job", job.Name, "error", runErr)
	if d.notifier == nil || errors.Is(runErr, context.Canceled) {
		return
	}

	body := fmt.Sprintf("Failed to send the %s calendar summary for %s:\n%s",
		job.Name, d.day(job).Format("2006-01-02"), html.EscapeString(runErr.Error()))
	if !d.notifier.Deliver(context.WithoutCancel(ctx), ErrorTitle, body) {
		d.logger.Errorw("error notification failed", "job", job.Name)
	}
}

func (d *Driver) day(job Job) time.Time {
	base := job.Day
	if base.IsZero() {
		base = d.now()
	}
	base = base.In(d.loc)
	start := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, d.loc)
	if job.Day.IsZero() && job.Offset != 0 {
		start = start.AddDate(0, 0, job.Offset)
	}
	return start
}
