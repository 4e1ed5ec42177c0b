package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trustport/compliance-backend/internal/ws"
)

type HealthHandler struct {
	hub *ws.Hub
}

func NewHealthHandler(hub *ws.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	payload := gin.H{"status": "ok"}
	if h.hub != nil {
		payload["ws_clients"] = h.hub.ClientCount()
	}
	c.JSON(http.StatusOK, payload)
}
