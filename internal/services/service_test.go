package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trustport/compliance-backend/internal/db"
	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/repos"
	"github.com/trustport/compliance-backend/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func mustTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return gdb
}

type testEnv struct {
	db          *gorm.DB
	log         *logger.Logger
	taskRepo    repos.TaskRepo
	catalogRepo repos.FieldCatalogRepo
	kybRepo     repos.FieldResponseRepo
	ky3pRepo    repos.FieldResponseRepo
	obRepo      repos.FieldResponseRepo
	cardRepo    repos.CardResponseRepo
	progress    ProgressService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := mustTestDB(t)
	log := mustTestLogger(t)
	env := &testEnv{
		db:          gdb,
		log:         log,
		taskRepo:    repos.NewTaskRepo(gdb, log),
		catalogRepo: repos.NewFieldCatalogRepo(gdb, log),
		kybRepo:     repos.NewKYBResponseRepo(gdb, log),
		ky3pRepo:    repos.NewKY3PResponseRepo(gdb, log),
		obRepo:      repos.NewOpenBankingResponseRepo(gdb, log),
		cardRepo:    repos.NewCardResponseRepo(gdb, log),
	}
	env.progress = NewProgressService(gdb, log, env.catalogRepo, env.kybRepo, env.ky3pRepo, env.obRepo, env.cardRepo)
	return env
}

func (e *testEnv) seedCatalog(t *testing.T, taskType string, count int) {
	t.Helper()
	defs := make([]*types.FieldDefinition, 0, count)
	for i := 0; i < count; i++ {
		defs = append(defs, &types.FieldDefinition{
			TaskType: taskType,
			FieldKey: fmt.Sprintf("field_%02d", i),
			Required: true,
		})
	}
	if err := e.catalogRepo.Seed(context.Background(), nil, defs); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
}

func (e *testEnv) createTask(t *testing.T, taskType string) *types.Task {
	t.Helper()
	task := &types.Task{
		ID:        uuid.New(),
		TaskType:  taskType,
		CompanyID: uuid.New(),
		Title:     "test assessment",
		Status:    types.TaskStatusNotStarted,
	}
	if _, err := e.taskRepo.Create(context.Background(), nil, []*types.Task{task}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (e *testEnv) responseRepoFor(t *testing.T, taskType string) repos.FieldResponseRepo {
	t.Helper()
	switch taskType {
	case types.TaskTypeKYB:
		return e.kybRepo
	case types.TaskTypeKY3P:
		return e.ky3pRepo
	case types.TaskTypeOpenBanking:
		return e.obRepo
	case types.TaskTypeCard:
		return e.cardRepo
	default:
		t.Fatalf("no response repo for task type %q", taskType)
		return nil
	}
}

func (e *testEnv) answerFields(t *testing.T, task *types.Task, statuses map[string]string) {
	t.Helper()
	repo := e.responseRepoFor(t, task.TaskType)
	for fieldKey, status := range statuses {
		value := "answer"
		if err := repo.Upsert(context.Background(), nil, task.ID, fieldKey, &value, status); err != nil {
			t.Fatalf("upsert response %s: %v", fieldKey, err)
		}
	}
}
