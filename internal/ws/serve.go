package ws

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/trustport/compliance-backend/internal/requestdata"
)

// Authenticator verifies the handshake token. Satisfied by the auth service.
type Authenticator interface {
	ParseToken(tokenString string) (*requestdata.RequestData, error)
}

type clientMessage struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	TaskID string `json:"taskId,omitempty"`
}

type serverMessage struct {
	Type      string `json:"type"`
	UserID    string `json:"userId,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
	Error     string `json:"error,omitempty"`
}

const handshakeTimeout = 10 * time.Second

// ServeConn drives one websocket connection: authenticate handshake first,
// then the subscribe/ping loop until the peer goes away. No task data is
// written before the handshake acknowledgement.
func (h *Hub) ServeConn(ctx context.Context, conn *websocket.Conn, auth Authenticator) {
	wrapped := NewConn(conn)

	handshakeCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	var hello clientMessage
	err := wsjson.Read(handshakeCtx, conn, &hello)
	cancel()
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "handshake_timeout")
		return
	}
	if hello.Type != "authenticate" || hello.Token == "" {
		_ = wrapped.WriteJSON(ctx, serverMessage{Type: "error", Error: "authenticate first"})
		_ = conn.Close(websocket.StatusPolicyViolation, "unauthenticated")
		return
	}
	rd, err := auth.ParseToken(hello.Token)
	if err != nil {
		_ = wrapped.WriteJSON(ctx, serverMessage{Type: "error", Error: "invalid token"})
		_ = conn.Close(websocket.StatusPolicyViolation, "unauthenticated")
		return
	}

	client := NewClient(rd.UserID, rd.CompanyID, wrapped)
	h.Register(client)
	defer h.CloseClient(client, websocket.StatusNormalClosure, "closed")

	if err := wrapped.WriteJSON(ctx, serverMessage{
		Type:      "authenticated",
		UserID:    rd.UserID.String(),
		CompanyID: rd.CompanyID.String(),
	}); err != nil {
		return
	}

	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe_task":
			taskID, pErr := uuid.Parse(msg.TaskID)
			if pErr != nil {
				_ = wrapped.WriteJSON(ctx, serverMessage{Type: "error", Error: "bad taskId"})
				continue
			}
			h.SubscribeTask(client, taskID)
			_ = wrapped.WriteJSON(ctx, serverMessage{Type: "subscribed", TaskID: taskID.String()})
		case "unsubscribe_task":
			taskID, pErr := uuid.Parse(msg.TaskID)
			if pErr != nil {
				continue
			}
			h.UnsubscribeTask(client, taskID)
			_ = wrapped.WriteJSON(ctx, serverMessage{Type: "unsubscribed", TaskID: taskID.String()})
		case "ping":
			_ = wrapped.WriteJSON(ctx, serverMessage{Type: "pong"})
		default:
			h.log.Debug("ignoring unknown client message", "type", msg.Type, "client_id", client.ID)
		}
	}
}
