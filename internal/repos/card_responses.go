package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/types"
)

// CardResponseRepo extends the common surface with the aggregate risk score
// used by the risk dashboard. The score never feeds progress.
type CardResponseRepo interface {
	FieldResponseRepo
	AverageRiskScore(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (*float64, error)
}

type cardResponseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCardResponseRepo(db *gorm.DB, baseLog *logger.Logger) CardResponseRepo {
	return &cardResponseRepo{db: db, log: baseLog.With("repo", "CardResponseRepo")}
}

func (r *cardResponseRepo) ListViewsByTaskID(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]types.FieldResponseView, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var views []types.FieldResponseView
	if taskID == uuid.Nil {
		return views, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.CardResponse{}).
		Select("field_key", "status").
		Where("task_id = ?", taskID).
		Find(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

func (r *cardResponseRepo) CountComplete(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == uuid.Nil {
		return 0, nil
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CardResponse{}).
		Where("task_id = ? AND LOWER(status) = ?", taskID, types.ResponseStatusComplete).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *cardResponseRepo) AverageRiskScore(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (*float64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == uuid.Nil {
		return nil, nil
	}
	var avg *float64
	if err := transaction.WithContext(ctx).
		Model(&types.CardResponse{}).
		Select("AVG(partial_risk_score)").
		Where("task_id = ? AND partial_risk_score IS NOT NULL", taskID).
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	return avg, nil
}

func (r *cardResponseRepo) Upsert(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, fieldKey string, value *string, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == uuid.Nil || fieldKey == "" {
		return nil
	}
	var existing types.CardResponse
	err := transaction.WithContext(ctx).
		Where("task_id = ? AND field_key = ?", taskID, fieldKey).
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID == uuid.Nil {
		row := &types.CardResponse{
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
		Model(&types.CardResponse{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"response_value": value,
			"status":         status,
			"version":        existing.Version + 1,
		}).Error
}
