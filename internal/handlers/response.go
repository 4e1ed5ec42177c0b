package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trustport/compliance-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the reconciliation error taxonomy onto HTTP.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		RespondError(c, http.StatusNotFound, "task_not_found", err)
	case errors.Is(err, services.ErrUnknownTaskType):
		RespondError(c, http.StatusBadRequest, "unknown_task_type", err)
	case errors.Is(err, services.ErrCatalogUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "catalog_unavailable", err)
	case errors.Is(err, services.ErrReconciliationConflict):
		RespondError(c, http.StatusConflict, "reconciliation_conflict", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
