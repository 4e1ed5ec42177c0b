package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/realtime"
	"github.com/trustport/compliance-backend/internal/types"
)

// TaskNotifier turns a committed snapshot into the canonical task_update
// envelope and hands it to the bus. Publish failures are logged, never
// surfaced: the progress write is already committed and a missed live update
// is recovered on the client's next fetch.
type TaskNotifier interface {
	TaskUpdated(task *types.Task, snapshot Snapshot)
}

type taskNotifier struct {
	log *logger.Logger
	bus Bus
}

func NewTaskNotifier(log *logger.Logger, bus Bus) TaskNotifier {
	return &taskNotifier{log: log.With("service", "TaskNotifier"), bus: bus}
}

func (n *taskNotifier) TaskUpdated(task *types.Task, snapshot Snapshot) {
	if n == nil || n.bus == nil || task == nil || task.ID == uuid.Nil {
		return
	}
	var metadata map[string]interface{}
	if len(task.Metadata) > 0 {
		if err := json.Unmarshal(task.Metadata, &metadata); err != nil {
			n.log.Warn("task metadata not valid JSON, omitting from envelope", "task_id", task.ID, "error", err)
			metadata = nil
		}
	}
	env := realtime.NewTaskUpdate(task.ID, task.CompanyID, snapshot.Progress, snapshot.Status, metadata)
	if err := n.bus.Publish(context.Background(), env); err != nil {
		n.log.Warn("failed to publish task update", "task_id", task.ID, "error", err)
	}
}
