package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/repos"
	"github.com/trustport/compliance-backend/internal/types"
)

// TaskService is the form-facing surface: reads scoped to the caller's
// company, field-response writes, and the submission transition. Every write
// it performs ends in a reconcile trigger; it never touches progress/status
// itself.
type TaskService interface {
	GetTask(ctx context.Context, companyID, taskID uuid.UUID) (*types.Task, error)
	ListTasks(ctx context.Context, companyID uuid.UUID) ([]*types.Task, error)
	CreateTask(ctx context.Context, task *types.Task) (*types.Task, error)
	Responses(ctx context.Context, companyID, taskID uuid.UUID) (*TaskResponses, error)
	UpsertResponse(ctx context.Context, companyID, taskID uuid.UUID, fieldKey string, value *string, status string) (ReconcileResult, error)
	Submit(ctx context.Context, companyID, taskID uuid.UUID) (ReconcileResult, error)
}

// TaskResponses is the read view of a task's form state. AverageRiskScore is
// populated for card tasks only; it is a risk metric and has no bearing on
// progress.
type TaskResponses struct {
	TaskID           uuid.UUID                 `json:"task_id"`
	TaskType         string                    `json:"task_type"`
	Responses        []types.FieldResponseView `json:"responses"`
	AverageRiskScore *float64                  `json:"average_risk_score,omitempty"`
}

type taskService struct {
	db            *gorm.DB
	log           *logger.Logger
	taskRepo      repos.TaskRepo
	responseRepos map[string]repos.FieldResponseRepo
	cardRepo      repos.CardResponseRepo
	reconcile     ReconcileService
}

func NewTaskService(
	db *gorm.DB,
	log *logger.Logger,
	taskRepo repos.TaskRepo,
	kybRepo repos.FieldResponseRepo,
	ky3pRepo repos.FieldResponseRepo,
	openBankingRepo repos.FieldResponseRepo,
	cardRepo repos.CardResponseRepo,
	reconcile ReconcileService,
) TaskService {
	return &taskService{
		db:       db,
		log:      log.With("service", "TaskService"),
		taskRepo: taskRepo,
		responseRepos: map[string]repos.FieldResponseRepo{
			types.TaskTypeKYB:         kybRepo,
			types.TaskTypeKY3P:        ky3pRepo,
			types.TaskTypeOpenBanking: openBankingRepo,
			types.TaskTypeCard:        cardRepo,
		},
		cardRepo:  cardRepo,
		reconcile: reconcile,
	}
}

func (s *taskService) GetTask(ctx context.Context, companyID, taskID uuid.UUID) (*types.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, nil, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil || task.CompanyID != companyID {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context, companyID uuid.UUID) ([]*types.Task, error) {
	return s.taskRepo.GetByCompanyID(ctx, nil, companyID)
}

func (s *taskService) CreateTask(ctx context.Context, task *types.Task) (*types.Task, error) {
	if task == nil {
		return nil, fmt.Errorf("missing task")
	}
	if !types.KnownTaskType(task.TaskType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, task.TaskType)
	}
	if task.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("company id is required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.Progress = 0
	task.Status = types.TaskStatusNotStarted
	if _, err := s.taskRepo.Create(ctx, nil, []*types.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) Responses(ctx context.Context, companyID, taskID uuid.UUID) (*TaskResponses, error) {
	task, err := s.GetTask(ctx, companyID, taskID)
	if err != nil {
		return nil, err
	}
	repo, ok := s.responseRepos[task.TaskType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, task.TaskType)
	}
	views, err := repo.ListViewsByTaskID(ctx, nil, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	out := &TaskResponses{
		TaskID:    task.ID,
		TaskType:  task.TaskType,
		Responses: views,
	}
	if task.TaskType == types.TaskTypeCard {
		avg, aErr := s.cardRepo.AverageRiskScore(ctx, nil, task.ID)
		if aErr != nil {
			return nil, fmt.Errorf("average risk score: %w", aErr)
		}
		out.AverageRiskScore = avg
	}
	return out, nil
}

func (s *taskService) UpsertResponse(ctx context.Context, companyID, taskID uuid.UUID, fieldKey string, value *string, status string) (ReconcileResult, error) {
	task, err := s.GetTask(ctx, companyID, taskID)
	if err != nil {
		return ReconcileResult{}, err
	}
	if task.Status == types.TaskStatusSubmitted {
		return ReconcileResult{}, fmt.Errorf("task already submitted")
	}
	repo, ok := s.responseRepos[task.TaskType]
	if !ok {
		return ReconcileResult{}, fmt.Errorf("%w: %q", ErrUnknownTaskType, task.TaskType)
	}
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case types.ResponseStatusEmpty, types.ResponseStatusInProgress, types.ResponseStatusComplete, types.ResponseStatusInvalid:
	default:
		return ReconcileResult{}, fmt.Errorf("invalid response status %q", status)
	}
	if err := repo.Upsert(ctx, nil, taskID, fieldKey, value, status); err != nil {
		return ReconcileResult{}, fmt.Errorf("upsert response: %w", err)
	}
	return s.reconcile.Reconcile(ctx, taskID, ReconcileOptions{})
}

// Submit is the submission pipeline's finalization: a business transition,
// not a computed state, applied through the reconciler's write path.
func (s *taskService) Submit(ctx context.Context, companyID, taskID uuid.UUID) (ReconcileResult, error) {
	if _, err := s.GetTask(ctx, companyID, taskID); err != nil {
		return ReconcileResult{}, err
	}
	return s.reconcile.Reconcile(ctx, taskID, ReconcileOptions{StatusOverride: types.TaskStatusSubmitted})
}
