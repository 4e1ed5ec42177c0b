package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/repos"
)

// SweepService is the safety net for missed triggers: every interval it
// reconciles any task touched since the previous sweep. Per-task failures are
// logged and never stop the sweep; a task that stays stale is picked up again
// next round.
type SweepService interface {
	Start(ctx context.Context)
	SweepOnce(ctx context.Context) error
}

type sweepService struct {
	db        *gorm.DB
	log       *logger.Logger
	taskRepo  repos.TaskRepo
	reconcile ReconcileService

	interval    time.Duration
	concurrency int
	lastSweep   time.Time
}

func NewSweepService(db *gorm.DB, log *logger.Logger, taskRepo repos.TaskRepo, reconcile ReconcileService, interval time.Duration) SweepService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &sweepService{
		db:          db,
		log:         log.With("service", "SweepService"),
		taskRepo:    taskRepo,
		reconcile:   reconcile,
		interval:    interval,
		concurrency: 4,
		lastSweep:   time.Now().UTC(),
	}
}

func (s *sweepService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.SweepOnce(ctx); err != nil {
					s.log.Warn("sweep failed", "error", err)
				}
			}
		}
	}()
}

func (s *sweepService) SweepOnce(ctx context.Context) error {
	since := s.lastSweep
	sweepStart := time.Now().UTC()

	tasks, err := s.taskRepo.ListTouchedSince(ctx, nil, since)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		s.lastSweep = sweepStart
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			_, rErr := s.reconcile.Reconcile(gctx, task.ID, ReconcileOptions{})
			if rErr != nil && !errors.Is(rErr, ErrReconciliationConflict) {
				s.log.Warn("sweep reconcile failed", "task_id", task.ID, "error", rErr)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.lastSweep = sweepStart
	s.log.Debug("sweep complete", "tasks", len(tasks), "since", since)
	return nil
}
