package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/repos"
	"github.com/trustport/compliance-backend/internal/types"
)

// Snapshot is the computed (progress, status) pair for one reconciliation.
// It is ephemeral: produced by the calculator, consumed by the reconciler and
// the broadcaster, never persisted as-is.
type Snapshot struct {
	TaskID     uuid.UUID
	Progress   int
	Status     string
	ComputedAt time.Time
}

// ProgressService computes the canonical completion state of a task from its
// per-type response table and the field-definition catalog. Read-only and
// deterministic for a fixed database state.
type ProgressService interface {
	ComputeProgress(ctx context.Context, taskID uuid.UUID, taskType string) (Snapshot, error)
}

// formTypeHandler is the per-task-type capability: how many fields the form
// defines, and how many of this task's rows count as complete. Field-counting
// rules differ per form type, so each type binds its own catalog slice and
// response table.
type formTypeHandler interface {
	FieldCount(ctx context.Context) (int, error)
	CompletedCount(ctx context.Context, taskID uuid.UUID) (int, error)
}

type formHandler struct {
	taskType  string
	catalog   repos.FieldCatalogRepo
	responses repos.FieldResponseRepo
}

func (h *formHandler) FieldCount(ctx context.Context) (int, error) {
	count, err := h.catalog.CountByTaskType(ctx, nil, h.taskType)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (h *formHandler) CompletedCount(ctx context.Context, taskID uuid.UUID) (int, error) {
	count, err := h.responses.CountComplete(ctx, nil, taskID)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

type progressService struct {
	db       *gorm.DB
	log      *logger.Logger
	handlers map[string]formTypeHandler
}

func NewProgressService(
	db *gorm.DB,
	log *logger.Logger,
	catalogRepo repos.FieldCatalogRepo,
	kybRepo repos.FieldResponseRepo,
	ky3pRepo repos.FieldResponseRepo,
	openBankingRepo repos.FieldResponseRepo,
	cardRepo repos.CardResponseRepo,
) ProgressService {
	return &progressService{
		db:  db,
		log: log.With("service", "ProgressService"),
		handlers: map[string]formTypeHandler{
			types.TaskTypeKYB:         &formHandler{taskType: types.TaskTypeKYB, catalog: catalogRepo, responses: kybRepo},
			types.TaskTypeKY3P:        &formHandler{taskType: types.TaskTypeKY3P, catalog: catalogRepo, responses: ky3pRepo},
			types.TaskTypeOpenBanking: &formHandler{taskType: types.TaskTypeOpenBanking, catalog: catalogRepo, responses: openBankingRepo},
			types.TaskTypeCard:        &formHandler{taskType: types.TaskTypeCard, catalog: catalogRepo, responses: cardRepo},
		},
	}
}

func (s *progressService) ComputeProgress(ctx context.Context, taskID uuid.UUID, taskType string) (Snapshot, error) {
	handler, ok := s.handlers[taskType]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}

	total, err := handler.FieldCount(ctx)
	if err != nil {
		// Never default to zero here: a catalog read failure would otherwise
		// make a real task look empty.
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	complete, err := handler.CompletedCount(ctx, taskID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count complete responses: %w", err)
	}

	progress := 0
	if total > 0 {
		progress = int(math.Round(float64(complete) / float64(total) * 100))
		if progress < 0 {
			progress = 0
		}
		if progress > 100 {
			progress = 100
		}
	}

	return Snapshot{
		TaskID:     taskID,
		Progress:   progress,
		Status:     StatusForProgress(progress),
		ComputedAt: time.Now().UTC(),
	}, nil
}

// StatusForProgress derives the status label from a progress percentage.
// "submitted" is never derived; the submission pipeline sets it explicitly.
func StatusForProgress(progress int) string {
	switch {
	case progress <= 0:
		return types.TaskStatusNotStarted
	case progress >= 100:
		return types.TaskStatusReadyForSubmission
	default:
		return types.TaskStatusInProgress
	}
}
