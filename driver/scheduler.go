package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/perbu/daybrief/config"
	"github.com/perbu/daybrief/logging"
)

// ScheduledJob pairs a job with its HH:MM trigger time.
type ScheduledJob struct {
	At  string
	Job Job
}

// ScheduledJobs returns the daily summary and, when enabled, the tomorrow preview.
func (d *Driver) ScheduledJobs() []ScheduledJob {
	jobs := []ScheduledJob{{At: d.cfg.SummaryTime, Job: TodayJob()}}
	if d.cfg.TomorrowEnabled() {
		jobs = append(jobs, ScheduledJob{At: d.cfg.TomorrowSummaryTime, Job: TomorrowJob()})
	}
	return jobs
}

// CronSpec converts a 24-hour HH:MM time into a daily cron expression.
func CronSpec(at string) (string, error) {
	hour, minute, err := config.ParseClock(at)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

func (d *Driver) newCron(ctx context.Context) (*cron.Cron, error) {
	cl := logging.CronLogger{L: d.logger.With("component", "scheduler")}
	c := cron.New(
		cron.WithLocation(d.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	for _, sj := range d.ScheduledJobs() {
		spec, err := CronSpec(sj.At)
		if err != nil {
			return nil, fmt.Errorf("%s schedule: %w", sj.Job.Name, err)
		}
		job := sj.Job
		if _, err := c.AddFunc(spec, func() { _ = d.Trigger(ctx, job) }); err != nil {
			return nil, fmt.Errorf("adding %s schedule %q: %w", job.Name, spec, err)
		}
	}
	return c, nil
}

// Schedule runs the configured jobs until ctx is cancelled, then waits for a
// running job to finish before returning.
func (d *Driver) Schedule(ctx context.Context) error {
	c, err := d.newCron(ctx)
	if err != nil {
		return err
	}
	now := time.Now().In(d.loc)
	for i, e := range c.Entries() {
		sj := d.ScheduledJobs()[i]
		d.logger.Infow("scheduled", "job", sj.Job.Name, "at", sj.At, "timezone", d.loc.String(), "next", e.Schedule.Next(now))
	}
	c.Start()

	<-ctx.Done()
	d.logger.Infow("stopping scheduler")
	<-c.Stop().Done()
	return nil
}
