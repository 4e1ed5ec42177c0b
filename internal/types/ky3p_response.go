package types

import (
	"time"

	"github.com/google/uuid"
)

type KY3PResponse struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID        uuid.UUID `gorm:"type:uuid;not null;index:idx_ky3p_task_field,unique;column:task_id" json:"task_id"`
	Task          *Task     `gorm:"constraint:OnDelete:CASCADE;foreignKey:TaskID;references:ID" json:"task,omitempty"`
	FieldKey      string    `gorm:"not null;index:idx_ky3p_task_field,unique;column:field_key" json:"field_key"`
	ResponseValue *string   `gorm:"column:response_value" json:"response_value,omitempty"`
	Status        string    `gorm:"not null;default:'empty';column:status" json:"status"`
	Version       int       `gorm:"not null;default:1;column:version" json:"version"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (KY3PResponse) TableName() string { return "ky3p_responses" }
