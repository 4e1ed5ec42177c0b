package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trustport/compliance-backend/internal/types"
)

// FieldResponseRepo is the type-agnostic surface over one per-form response
// table. Each task type persists responses in its own table with its own
// schema; the reconciliation core only ever needs this projection of them.
// The reconciler itself never writes responses; Upsert exists for the form
// edit path.
type FieldResponseRepo interface {
	ListViewsByTaskID(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]types.FieldResponseView, error)
	CountComplete(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (int64, error)
	Upsert(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, fieldKey string, value *string, status string) error
}
