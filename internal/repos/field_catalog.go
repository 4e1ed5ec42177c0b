package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/types"
)

// FieldCatalogRepo reads the externally seeded field-definition catalog.
// A task type with zero defined fields is a valid catalog state; a query
// failure is not, and the caller maps it to a catalog-unavailable error.
type FieldCatalogRepo interface {
	CountByTaskType(ctx context.Context, tx *gorm.DB, taskType string) (int64, error)
	ListByTaskType(ctx context.Context, tx *gorm.DB, taskType string) ([]*types.FieldDefinition, error)
	Seed(ctx context.Context, tx *gorm.DB, defs []*types.FieldDefinition) error
}

type fieldCatalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFieldCatalogRepo(db *gorm.DB, baseLog *logger.Logger) FieldCatalogRepo {
	return &fieldCatalogRepo{db: db, log: baseLog.With("repo", "FieldCatalogRepo")}
}

func (r *fieldCatalogRepo) CountByTaskType(ctx context.Context, tx *gorm.DB, taskType string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.FieldDefinition{}).
		Where("task_type = ?", taskType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *fieldCatalogRepo) ListByTaskType(ctx context.Context, tx *gorm.DB, taskType string) ([]*types.FieldDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.FieldDefinition
	if err := transaction.WithContext(ctx).
		Where("task_type = ?", taskType).
		Order("field_key ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fieldCatalogRepo) Seed(ctx context.Context, tx *gorm.DB, defs []*types.FieldDefinition) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(defs) == 0 {
		return nil
	}
	for _, def := range defs {
		if def.ID == uuid.Nil {
			def.ID = uuid.New()
		}
	}
	return transaction.WithContext(ctx).Create(&defs).Error
}
