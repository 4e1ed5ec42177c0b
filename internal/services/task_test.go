package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/trustport/compliance-backend/internal/types"
)

func newTaskServiceUnderTest(t *testing.T, env *testEnv) (TaskService, *recordingNotifier) {
	t.Helper()
	reconciler, notifier := newReconcilerUnderTest(t, env)
	svc := NewTaskService(env.db, env.log, env.taskRepo, env.kybRepo, env.ky3pRepo, env.obRepo, env.cardRepo, reconciler)
	return svc, notifier
}

func TestUpsertResponseTriggersReconcile(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, types.TaskTypeKYB, 2)
	task := env.createTask(t, types.TaskTypeKYB)
	svc, notifier := newTaskServiceUnderTest(t, env)

	value := "Acme Holdings Ltd"
	result, err := svc.UpsertResponse(context.Background(), task.CompanyID, task.ID, "field_00", &value, "COMPLETE")
	if err != nil {
		t.Fatalf("UpsertResponse: %v", err)
	}
	if !result.Updated || result.Progress != 50 {
		t.Fatalf("result: want updated with progress 50, got updated=%v progress=%d", result.Updated, result.Progress)
	}
	if notifier.count() != 1 {
		t.Fatalf("broadcasts: want=1 got=%d", notifier.count())
	}
}

func TestUpsertResponseRejectsWrongCompany(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, types.TaskTypeKYB, 2)
	task := env.createTask(t, types.TaskTypeKYB)
	svc, _ := newTaskServiceUnderTest(t, env)

	value := "x"
	_, err := svc.UpsertResponse(context.Background(), uuid.New(), task.ID, "field_00", &value, types.ResponseStatusComplete)
	if err == nil {
		t.Fatalf("cross-company write must be rejected")
	}
}

func TestUpsertResponseRejectsBadStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, types.TaskTypeKYB, 2)
	task := env.createTask(t, types.TaskTypeKYB)
	svc, _ := newTaskServiceUnderTest(t, env)

	value := "x"
	_, err := svc.UpsertResponse(context.Background(), task.CompanyID, task.ID, "field_00", &value, "done")
	if err == nil || !strings.Contains(err.Error(), "invalid response status") {
		t.Fatalf("want invalid status error, got %v", err)
	}
}

func TestSubmitBlocksFurtherEdits(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, types.TaskTypeKY3P, 1)
	task := env.createTask(t, types.TaskTypeKY3P)
	svc, _ := newTaskServiceUnderTest(t, env)

	value := "answer"
	if _, err := svc.UpsertResponse(context.Background(), task.CompanyID, task.ID, "field_00", &value, types.ResponseStatusComplete); err != nil {
		t.Fatalf("UpsertResponse: %v", err)
	}

	result, err := svc.Submit(context.Background(), task.CompanyID, task.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Status != types.TaskStatusSubmitted {
		t.Fatalf("status after submit: want=%s got=%s", types.TaskStatusSubmitted, result.Status)
	}

	if _, err := svc.UpsertResponse(context.Background(), task.CompanyID, task.ID, "field_00", &value, types.ResponseStatusInProgress); err == nil {
		t.Fatalf("edits after submission must be rejected")
	}
}

func TestResponsesIncludesCardRiskScore(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, types.TaskTypeCard, 3)
	task := env.createTask(t, types.TaskTypeCard)
	env.answerFields(t, task, map[string]string{
		"field_00": types.ResponseStatusComplete,
		"field_01": types.ResponseStatusInProgress,
	})
	scores := map[string]float64{"field_00": 40, "field_01": 60}
	for fieldKey, score := range scores {
		score := score
		if err := env.db.Model(&types.CardResponse{}).
			Where("task_id = ? AND field_key = ?", task.ID, fieldKey).
			Update("partial_risk_score", &score).Error; err != nil {
			t.Fatalf("set risk score %s: %v", fieldKey, err)
		}
	}
	svc, _ := newTaskServiceUnderTest(t, env)

	out, err := svc.Responses(context.Background(), task.CompanyID, task.ID)
	if err != nil {
		t.Fatalf("Responses: %v", err)
	}
	if len(out.Responses) != 2 {
		t.Fatalf("responses: want=2 got=%d", len(out.Responses))
	}
	if out.AverageRiskScore == nil || *out.AverageRiskScore != 50 {
		t.Fatalf("average risk score: want=50 got=%v", out.AverageRiskScore)
	}
}

func TestCreateTaskValidatesType(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newTaskServiceUnderTest(t, env)

	_, err := svc.CreateTask(context.Background(), &types.Task{TaskType: "aml", CompanyID: uuid.New()})
	if err == nil {
		t.Fatalf("unknown task type must be rejected")
	}

	created, err := svc.CreateTask(context.Background(), &types.Task{TaskType: types.TaskTypeCard, CompanyID: uuid.New()})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.Status != types.TaskStatusNotStarted || created.Progress != 0 {
		t.Fatalf("new task state: want=(0,%s) got=(%d,%s)", types.TaskStatusNotStarted, created.Progress, created.Status)
	}
}
