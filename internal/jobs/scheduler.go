package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/friendix-ai/engagement-engine/pkg/config"
)

// cleanupCron runs retention in the quiet hours, after the sweep.
const cleanupCron = "30 3 * * *"

// Scheduler registers the periodic tasks and drives the asynq
// scheduler loop.
type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	cfg            config.EngagementConfig
	log            *slog.Logger
}

// NewScheduler constructs a Scheduler over the shared Redis queue.
func NewScheduler(redisOpt asynq.RedisConnOpt, cfg config.EngagementConfig, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		cfg:            cfg,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	sweep, err := NewEngagementSweepTask()
	if err != nil {
		return err
	}
	if _, err := s.asynqScheduler.Register(s.cfg.SweepCron, sweep); err != nil {
		return err
	}
	s.log.Info("scheduler: registered engagement sweep", slog.String("cron", s.cfg.SweepCron))

	if s.cfg.MessageRetentionDays > 0 {
		cleanup, err := NewMessageCleanupTask(s.cfg.MessageRetentionDays)
		if err != nil {
			return err
		}
		if _, err := s.asynqScheduler.Register(cleanupCron, cleanup); err != nil {
			return err
		}
		s.log.Info("scheduler: registered message cleanup",
			slog.Int("retention_days", s.cfg.MessageRetentionDays))
	}

	return nil
}

func (s *scheduler) Run() {
	s.log.InfoContext(context.Background(), "scheduler: starting")

	go func() {
		if err := s.asynqScheduler.Run(); err != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.InfoContext(context.Background(), "scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}
