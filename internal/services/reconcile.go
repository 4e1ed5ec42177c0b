package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/repos"
	"github.com/trustport/compliance-backend/internal/types"
)

type ReconcileOptions struct {
	// Force writes and broadcasts even when the persisted state already
	// matches the computation.
	Force bool
	// StatusOverride lets the submission pipeline set "submitted" while still
	// going through the reconciler's write path. It bypasses the derived
	// status, not the computed progress.
	StatusOverride string
}

type ReconcileResult struct {
	Updated  bool   `json:"updated"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

// ReconcileService makes a task's persisted progress/status match the
// canonical computation from its field responses. All progress/status writes
// in the system go through here.
type ReconcileService interface {
	Reconcile(ctx context.Context, taskID uuid.UUID, opts ReconcileOptions) (ReconcileResult, error)
}

type reconcileService struct {
	db       *gorm.DB
	log      *logger.Logger
	taskRepo repos.TaskRepo
	progress ProgressService
	notifier TaskNotifier

	persistAttempts int
	persistBackoff  time.Duration
}

func NewReconcileService(
	db *gorm.DB,
	log *logger.Logger,
	taskRepo repos.TaskRepo,
	progress ProgressService,
	notifier TaskNotifier,
) ReconcileService {
	return &reconcileService{
		db:              db,
		log:             log.With("service", "ReconcileService"),
		taskRepo:        taskRepo,
		progress:        progress,
		notifier:        notifier,
		persistAttempts: 3,
		persistBackoff:  50 * time.Millisecond,
	}
}

func (s *reconcileService) Reconcile(ctx context.Context, taskID uuid.UUID, opts ReconcileOptions) (ReconcileResult, error) {
	// One retry of the full read-compute-write cycle when the optimistic
	// check loses; a later reconciliation having already written newer state
	// is an acceptable outcome of the retry.
	const cycles = 2
	for cycle := 0; cycle < cycles; cycle++ {
		result, conflicted, err := s.reconcileOnce(ctx, taskID, opts)
		if err != nil {
			return ReconcileResult{}, err
		}
		if !conflicted {
			return result, nil
		}
		s.log.Debug("optimistic check lost, retrying reconcile cycle", "task_id", taskID)
	}
	return ReconcileResult{}, fmt.Errorf("%w: task %s", ErrReconciliationConflict, taskID)
}

func (s *reconcileService) reconcileOnce(ctx context.Context, taskID uuid.UUID, opts ReconcileOptions) (ReconcileResult, bool, error) {
	task, err := s.taskRepo.GetByID(ctx, nil, taskID)
	if err != nil {
		return ReconcileResult{}, false, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return ReconcileResult{}, false, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	snapshot, err := s.progress.ComputeProgress(ctx, task.ID, task.TaskType)
	if err != nil {
		// CatalogUnavailable and friends propagate unchanged; the task is
		// left untouched rather than written with a made-up zero.
		return ReconcileResult{}, false, err
	}

	status := snapshot.Status
	if opts.StatusOverride == types.TaskStatusSubmitted {
		status = types.TaskStatusSubmitted
	} else if task.Status == types.TaskStatusSubmitted {
		// Submission is a business transition; recomputation updates the
		// progress number but never unwinds "submitted" to a derived label.
		status = types.TaskStatusSubmitted
	}

	if task.Progress == snapshot.Progress && task.Status == status && !opts.Force {
		return ReconcileResult{Updated: false, Progress: task.Progress, Status: task.Status}, false, nil
	}

	metadata, err := s.mirrorMetadata(task, snapshot.Progress, status)
	if err != nil {
		return ReconcileResult{}, false, err
	}
	updates := map[string]interface{}{
		"progress": snapshot.Progress,
		"status":   status,
		"metadata": metadata,
	}

	ok, err := s.updateWithBackoff(ctx, task.ID, task.Version, updates)
	if err != nil {
		return ReconcileResult{}, false, err
	}
	if !ok {
		return ReconcileResult{}, true, nil
	}

	task.Progress = snapshot.Progress
	task.Status = status
	task.Metadata = metadata
	snapshot.Status = status

	// Broadcast after commit. Delivery problems never unwind the write.
	if s.notifier != nil {
		s.notifier.TaskUpdated(task, snapshot)
	}

	return ReconcileResult{Updated: true, Progress: snapshot.Progress, Status: status}, false, nil
}

// mirrorMetadata overwrites the display-only progress/status copies inside
// the metadata blob from the canonical computation. Historical data had these
// drift from the primary columns; they are never authoritative.
func (s *reconcileService) mirrorMetadata(task *types.Task, progress int, status string) (datatypes.JSON, error) {
	meta := map[string]interface{}{}
	if len(task.Metadata) > 0 {
		if err := json.Unmarshal(task.Metadata, &meta); err != nil {
			s.log.Warn("task metadata not valid JSON, rebuilding", "task_id", task.ID, "error", err)
			meta = map[string]interface{}{}
		}
	}
	meta["progress"] = progress
	meta["status"] = status
	meta["last_reconciled_at"] = time.Now().UTC().Format(time.RFC3339)
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal task metadata: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func (s *reconcileService) updateWithBackoff(ctx context.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error) {
	var lastErr error
	backoff := s.persistBackoff
	for attempt := 1; attempt <= s.persistAttempts; attempt++ {
		ok, err := s.taskRepo.UpdateStateOptimistic(ctx, nil, id, expectedVersion, updates)
		if err == nil {
			return ok, nil
		}
		lastErr = err
		s.log.Warn("task state write failed", "task_id", id, "attempt", attempt, "error", err)
		if attempt == s.persistAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return false, fmt.Errorf("persist task state after %d attempts: %w", s.persistAttempts, lastErr)
}
