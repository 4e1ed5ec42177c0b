package realtime

import (
	"time"

	"github.com/google/uuid"
)

const MessageKindTaskUpdate = "task_update"

// TaskUpdate is the canonical envelope delivered to every subscriber for one
// task-state change. It is built once per broadcast and reused, so all
// subscribers observe an identical state. Clients must treat unknown
// metadata keys as opaque.
type TaskUpdate struct {
	Kind      string                 `json:"kind"`
	TaskID    uuid.UUID              `json:"taskId"`
	CompanyID uuid.UUID              `json:"companyId"`
	Progress  int                    `json:"progress"`
	Status    string                 `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

func NewTaskUpdate(taskID, companyID uuid.UUID, progress int, status string, metadata map[string]interface{}) TaskUpdate {
	return TaskUpdate{
		Kind:      MessageKindTaskUpdate,
		TaskID:    taskID,
		CompanyID: companyID,
		Progress:  progress,
		Status:    status,
		Metadata:  metadata,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
