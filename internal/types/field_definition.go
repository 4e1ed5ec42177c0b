package types

import (
	"time"

	"github.com/google/uuid"
)

// FieldDefinition is one entry of the per-type field catalog. The catalog is
// seeded by the form configuration pipeline; this subsystem only reads it.
type FieldDefinition struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskType  string    `gorm:"not null;index:idx_field_def_type_key,unique;column:task_type" json:"task_type"`
	FieldKey  string    `gorm:"not null;index:idx_field_def_type_key,unique;column:field_key" json:"field_key"`
	Label     string    `gorm:"column:label" json:"label"`
	Required  bool      `gorm:"not null;default:false;column:required" json:"required"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (FieldDefinition) TableName() string { return "field_definitions" }
