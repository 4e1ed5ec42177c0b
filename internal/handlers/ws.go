package handlers

import (
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/services"
	"github.com/trustport/compliance-backend/internal/utils"
	"github.com/trustport/compliance-backend/internal/ws"
)

type WSHandler struct {
	log         *logger.Logger
	hub         *ws.Hub
	authService services.AuthService
}

func NewWSHandler(log *logger.Logger, hub *ws.Hub, authService services.AuthService) *WSHandler {
	return &WSHandler{
		log:         log.With("handler", "WSHandler"),
		hub:         hub,
		authService: authService,
	}
}

// Stream upgrades to a websocket. Authentication happens inside the socket
// via the authenticate handshake message, not through the HTTP middleware, so
// browser clients can connect without header support.
func (h *WSHandler) Stream(c *gin.Context) {
	opts := &websocket.AcceptOptions{}
	if origins := originPatterns(utils.GetEnv("WS_ALLOWED_ORIGINS", "", nil)); len(origins) > 0 {
		opts.OriginPatterns = origins
	}
	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		h.log.Debug("websocket accept failed", "error", err)
		return
	}
	h.hub.ServeConn(c.Request.Context(), conn, h.authService)
}

func originPatterns(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
