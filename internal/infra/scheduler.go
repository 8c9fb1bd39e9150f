package infra

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"cmaxbonds/internal/domain"
	"cmaxbonds/pkg/logger"
)

// Scheduler runs housekeeping jobs
type Scheduler struct {
	cron     *cron.Cron
	resets   domain.ResetSessionStore
	schedule string
	log      *logger.Logger
}

// NewScheduler creates a scheduler that purges expired reset sessions on schedule
func NewScheduler(resets domain.ResetSessionStore, schedule string, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		resets:   resets,
		schedule: schedule,
		log:      log,
	}
}

// Start registers the jobs and starts the cron runner
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.purgeResets); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("scheduler started", logger.String("reset_purge", s.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow runs the purge job synchronously
func (s *Scheduler) RunNow() {
	s.purgeResets()
}

func (s *Scheduler) purgeResets() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := s.resets.PurgeExpired(ctx)
	if err != nil {
		s.log.Error("reset session purge failed", logger.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("purged expired reset sessions", logger.Int("count", n))
	}
}
