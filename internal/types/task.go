package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Task types correspond to the assessment forms a company can be assigned.
const (
	TaskTypeKYB         = "kyb"
	TaskTypeKY3P        = "ky3p"
	TaskTypeOpenBanking = "open_banking"
	TaskTypeCard        = "card"
)

// Task statuses. "submitted" is an explicit business transition and is never
// derived from progress alone.
const (
	TaskStatusNotStarted         = "not_started"
	TaskStatusInProgress         = "in_progress"
	TaskStatusReadyForSubmission = "ready_for_submission"
	TaskStatusSubmitted          = "submitted"
)

// Task is one compliance assessment instance owned by a company. Progress and
// Status are denormalized from the per-type response tables and are written
// exclusively through the reconcile service; Version is the optimistic
// counter that guards those writes.
type Task struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TaskType  string         `gorm:"not null;index;column:task_type" json:"task_type"`
	CompanyID uuid.UUID      `gorm:"type:uuid;not null;index;column:company_id" json:"company_id"`
	Company   *Company       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CompanyID;references:ID" json:"company,omitempty"`
	Title     string         `gorm:"column:title" json:"title"`
	Progress  int            `gorm:"not null;default:0;column:progress" json:"progress"`
	Status    string         `gorm:"not null;default:'not_started';column:status" json:"status"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	Version   int            `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }

func KnownTaskType(taskType string) bool {
	switch taskType {
	case TaskTypeKYB, TaskTypeKY3P, TaskTypeOpenBanking, TaskTypeCard:
		return true
	default:
		return false
	}
}
