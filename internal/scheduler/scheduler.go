package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"teamseat-backend/internal/jobs"
	"teamseat-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	_, err := s.cron.AddFunc(cfg.SyncTeamHealth, s.jobs.SyncTeamHealth)
	if err != nil {
		logger.Error("Failed to register SyncTeamHealth job", "error", err)
	}

	_, err = s.cron.AddFunc(cfg.ReleaseFullTeams, s.jobs.ReleaseFullTeams)
	if err != nil {
		logger.Error("Failed to register ReleaseFullTeams job", "error", err)
	}
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts the cron scheduler, waiting for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
}
