package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/mirage/pkg/logger"
)

// Job is any out-of-band analysis task that can run on an interval. Jobs run
// independently of live sessions and must never block them.
type Job interface {
	Name() string
	Run(ctx context.Context)
}

type entry struct {
	job      Job
	interval time.Duration
}

// Scheduler manages the registration and execution of periodic jobs.
type Scheduler struct {
	jobs []entry
	log  zerolog.Logger
}

// NewScheduler creates and returns a new Scheduler instance.
func NewScheduler() *Scheduler {
	return &Scheduler{log: logger.Component("scheduler")}
}

// RegisterJob adds a job with its run interval. Jobs with a non-positive
// interval are rejected.
func (s *Scheduler) RegisterJob(j Job, interval time.Duration) {
	if interval <= 0 {
		s.log.Error().Msgf("Invalid interval for job '%s', skipping registration", j.Name())
		return
	}
	s.jobs = append(s.jobs, entry{job: j, interval: interval})
	s.log.Info().Msgf("Job '%s' registered with interval %s", j.Name(), interval)
}

// Start launches all registered jobs. Each job runs once immediately and then
// on its interval until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, e := range s.jobs {
		go s.runJob(ctx, e.job, e.interval)
	}
	s.log.Info().Msgf("Scheduler started with %d job(s)", len(s.jobs))
}

func (s *Scheduler) runJob(ctx context.Context, j Job, interval time.Duration) {
	s.log.Debug().Msgf("Running job '%s' for the first time", j.Name())
	j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.log.Debug().Msgf("Running job '%s'", j.Name())
			j.Run(ctx)
		case <-ctx.Done():
			s.log.Info().Msgf("Job '%s' received shutdown signal", j.Name())
			return
		}
	}
}
