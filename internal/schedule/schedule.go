// ABOUTME: Cron-driven runner for the weekly report job
// ABOUTME: Parses 5-field expressions, sleeps until the next fire time, and logs job failures
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. Errors are logged and the schedule
// keeps running.
type Job func(ctx context.Context) error

// Scheduler fires a Job on a cron schedule.
type Scheduler struct {
	spec   string
	sched  cron.Schedule
	loc    *time.Location
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time
	logger *log.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock overrides time.Now and time.After.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
		s.after = after
	}
}

// Parse validates a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func Parse(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("cron expression is empty")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return sched, nil
}

// New builds a Scheduler. An invalid expression is a setup error.
func New(spec string, loc *time.Location, opts ...Option) (*Scheduler, error) {
	sched, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		spec:   strings.TrimSpace(spec),
		sched:  sched,
		loc:    loc,
		now:    time.Now,
		after:  time.After,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next returns the first fire time after from, in the scheduler's zone.
func (s *Scheduler) Next(from time.Time) time.Time {
	return s.sched.Next(from.In(s.loc))
}

// Run fires job at each scheduled time until ctx is done.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	s.logger.Info("scheduler started", "cron", s.spec, "zone", s.loc.String())
	for ctx.Err() == nil {
		now := s.now().In(s.loc)
		next := s.sched.Next(now)
		wait := next.Sub(now)
		s.logger.Info("next run", "at", next.Format("Mon Jan 2 15:04 MST"), "in", wait.Round(time.Minute))

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-s.after(wait):
		}

		started := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		} else {
			s.logger.Info("scheduled run complete", "took", time.Since(started).Round(time.Millisecond))
		}
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// Start parses spec and runs job on it until ctx is done.
func Start(ctx context.Context, spec string, loc *time.Location, job Job, opts ...Option) error {
	s, err := New(spec, loc, opts...)
	if err != nil {
		return err
	}
	return s.Run(ctx, job)
}
