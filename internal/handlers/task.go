package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/requestdata"
	"github.com/trustport/compliance-backend/internal/services"
	"github.com/trustport/compliance-backend/internal/types"
)

type TaskHandler struct {
	log         *logger.Logger
	taskService services.TaskService
	reconcile   services.ReconcileService
}

func NewTaskHandler(log *logger.Logger, taskService services.TaskService, reconcile services.ReconcileService) *TaskHandler {
	return &TaskHandler{
		log:         log.With("handler", "TaskHandler"),
		taskService: taskService,
		reconcile:   reconcile,
	}
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_task_id", err)
		return
	}
	task, err := h.taskService.GetTask(c.Request.Context(), rd.CompanyID, taskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, task)
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	tasks, err := h.taskService.ListTasks(c.Request.Context(), rd.CompanyID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}

type createTaskRequest struct {
	TaskType string `json:"task_type" binding:"required"`
	Title    string `json:"title"`
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	task := &types.Task{
		TaskType:  req.TaskType,
		CompanyID: rd.CompanyID,
		Title:     req.Title,
	}
	created, err := h.taskService.CreateTask(c.Request.Context(), task)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, created)
}

func (h *TaskHandler) ListResponses(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_task_id", err)
		return
	}
	responses, err := h.taskService.Responses(c.Request.Context(), rd.CompanyID, taskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, responses)
}

type upsertResponseRequest struct {
	Value  *string `json:"value"`
	Status string  `json:"status" binding:"required"`
}

// UpsertResponse writes one field response and reconciles. The write-plus-
// reconcile runs on a detached context: once started it completes even if
// the originating request is aborted, because a stale task is worse than an
// orphaned background completion.
func (h *TaskHandler) UpsertResponse(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_task_id", err)
		return
	}
	fieldKey := c.Param("fieldKey")
	var req upsertResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.taskService.UpsertResponse(ctx, rd.CompanyID, taskID, fieldKey, req.Value, req.Status)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

type reconcileRequest struct {
	Force bool `json:"force"`
}

func (h *TaskHandler) Reconcile(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_task_id", err)
		return
	}
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	// Scope check before triggering, then detach.
	if _, err := h.taskService.GetTask(c.Request.Context(), rd.CompanyID, taskID); err != nil {
		RespondServiceError(c, err)
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.reconcile.Reconcile(ctx, taskID, services.ReconcileOptions{Force: req.Force})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (h *TaskHandler) Submit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_task_id", err)
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.taskService.Submit(ctx, rd.CompanyID, taskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}
