package ws

import (
	"context"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// Conn is the transport surface the hub needs from a subscriber connection.
// Production connections wrap *websocket.Conn; tests substitute fakes.
type Conn interface {
	WriteJSON(ctx context.Context, v interface{}) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

type wsConn struct {
	c *websocket.Conn
}

func NewConn(c *websocket.Conn) Conn {
	return &wsConn{c: c}
}

func (w *wsConn) WriteJSON(ctx context.Context, v interface{}) error {
	return wsjson.Write(ctx, w.c, v)
}

func (w *wsConn) Ping(ctx context.Context) error {
	return w.c.Ping(ctx)
}

func (w *wsConn) Close(code websocket.StatusCode, reason string) error {
	return w.c.Close(code, reason)
}

// Client is one live, authenticated subscriber connection. Created only after
// the authenticate handshake succeeded; owned by the hub until close.
type Client struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CompanyID uuid.UUID
	conn      Conn
}

func NewClient(userID, companyID uuid.UUID, conn Conn) *Client {
	return &Client{
		ID:        uuid.New(),
		UserID:    userID,
		CompanyID: companyID,
		conn:      conn,
	}
}
