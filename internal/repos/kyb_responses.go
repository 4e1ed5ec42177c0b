package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/types"
)

type kybResponseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKYBResponseRepo(db *gorm.DB, baseLog *logger.Logger) FieldResponseRepo {
	return &kybResponseRepo{db: db, log: baseLog.With("repo", "KYBResponseRepo")}
}

func (r *kybResponseRepo) ListViewsByTaskID(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]types.FieldResponseView, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var views []types.FieldResponseView
	if taskID == uuid.Nil {
		return views, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.KYBResponse{}).
		Select("field_key", "status").
		Where("task_id = ?", taskID).
		Find(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

func (r *kybResponseRepo) CountComplete(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == uuid.Nil {
		return 0, nil
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.KYBResponse{}).
		Where("task_id = ? AND LOWER(status) = ?", taskID, types.ResponseStatusComplete).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *kybResponseRepo) Upsert(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, fieldKey string, value *string, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == uuid.Nil || fieldKey == "" {
		return nil
	}
	var existing types.KYBResponse
	err := transaction.WithContext(ctx).
		Where("task_id = ? AND field_key = ?", taskID, fieldKey).
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID == uuid.Nil {
		row := &types.KYBResponse{
			ID:            uuid.New(),
			TaskID:        taskID,
			FieldKey:      fieldKey,
			ResponseValue: value,
			Status:        status,
			Version:       1,
		}
		return transaction.WithContext(ctx).Create(row).Error
	}
	return transaction.WithContext(ctx).
		Model(&types.KYBResponse{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"response_value": value,
			"status":         status,
			"version":        existing.Version + 1,
		}).Error
}
