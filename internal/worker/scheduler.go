package worker

import (
	"context"
	"time"

	"github.com/smartdoc/tracker-api/pkg/logger"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler fires a job once per day at a fixed local wall-clock time.
// The next fire time is recomputed after every run, so DST transitions
// shift the interval rather than the wall-clock moment.
type Scheduler struct {
	hour   int
	minute int
	loc    *time.Location
	job    Job
	log    *logger.Logger
}

func NewScheduler(hour, minute int, loc *time.Location, job Job, log *logger.Logger) *Scheduler {
	return &Scheduler{
		hour:   hour,
		minute: minute,
		loc:    loc,
		job:    job,
		log:    log,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.nextFire(time.Now().In(s.loc))
		s.log.Info("next scheduled run", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := s.job(ctx); err != nil {
			s.log.Error(err, "scheduled run failed")
		}
	}
}

// nextFire returns the next occurrence of hour:minute strictly after now.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}
