package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler re-runs the mining pipeline on a cron schedule in worker mode,
// picking up games completed since the previous run.
type Scheduler struct {
	spec string
	run  func(ctx context.Context) error
	cron *cron.Cron
}

// New creates a scheduler around the given run function.
func New(spec string, run func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		spec: spec,
		run:  run,
		cron: cron.New(),
	}
}

// Start registers and starts the cron schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		log.Info().Msg("Running scheduled re-mine...")
		if err := s.run(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled re-mine failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule re-mine: %w", err)
	}

	s.cron.Start()
	log.Info().Str("schedule", s.spec).Msg("Re-mine scheduled")
	return nil
}

// Stop stops the scheduler, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	log.Info().Msg("Scheduler stopped")
}
