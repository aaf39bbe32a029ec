package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Schedules holds cron expressions with a seconds field.
type Schedules struct {
	FleetAlerts    string
	RateLimitSweep string
}

// Scheduler runs the Runner's jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	jobs *Runner
}

// NewScheduler registers every job. An empty schedule leaves that job out.
func NewScheduler(runner *Runner, schedules Schedules) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	s := &Scheduler{cron: c, jobs: runner}

	register := []struct {
		name string
		spec string
		fn   func()
	}{
		{JobFleetAlerts, schedules.FleetAlerts, runner.FleetAlerts},
		{JobRateLimitSweep, schedules.RateLimitSweep, runner.RateLimitSweep},
	}
	for _, job := range register {
		if job.spec == "" {
			continue
		}
		if _, err := c.AddFunc(job.spec, job.fn); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", job.name, job.spec, err)
		}
		log.WithFields(log.Fields{"job": job.name, "schedule": job.spec}).Info("job registered")
	}
	return s, nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("scheduler stopped")
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
