package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/realtime"
)

// Hub is the subscription registry and broadcaster in one: it tracks which
// authenticated connections are interested in which company/task scope and
// fans task updates out to them. One instance per process, constructed at
// startup and injected where needed.
type Hub struct {
	mu          sync.RWMutex
	log         *logger.Logger
	clients     map[*Client]bool
	companySubs map[uuid.UUID]map[*Client]bool
	taskSubs    map[uuid.UUID]map[*Client]bool
	clientTasks map[*Client]map[uuid.UUID]bool

	writeTimeout time.Duration
	pingTimeout  time.Duration
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:          log.With("component", "Hub"),
		clients:      make(map[*Client]bool),
		companySubs:  make(map[uuid.UUID]map[*Client]bool),
		taskSubs:     make(map[uuid.UUID]map[*Client]bool),
		clientTasks:  make(map[*Client]map[uuid.UUID]bool),
		writeTimeout: 5 * time.Second,
		pingTimeout:  10 * time.Second,
	}
}

// Register admits an authenticated client and subscribes it to its company
// scope. Per-task subscriptions narrow delivery further but are optional.
func (h *Hub) Register(client *Client) {
	if client == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	subs, ok := h.companySubs[client.CompanyID]
	if !ok {
		subs = make(map[*Client]bool)
		h.companySubs[client.CompanyID] = subs
	}
	subs[client] = true
	h.log.Debug("client registered", "client_id", client.ID, "company_id", client.CompanyID)
}

func (h *Hub) SubscribeTask(client *Client, taskID uuid.UUID) {
	if client == nil || taskID == uuid.Nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}
	subs, ok := h.taskSubs[taskID]
	if !ok {
		subs = make(map[*Client]bool)
		h.taskSubs[taskID] = subs
	}
	subs[client] = true
	tasks, ok := h.clientTasks[client]
	if !ok {
		tasks = make(map[uuid.UUID]bool)
		h.clientTasks[client] = tasks
	}
	tasks[taskID] = true
	h.log.Debug("client subscribed to task", "client_id", client.ID, "task_id", taskID)
}

func (h *Hub) UnsubscribeTask(client *Client, taskID uuid.UUID) {
	if client == nil || taskID == uuid.Nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.taskSubs[taskID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.taskSubs, taskID)
		}
	}
	if tasks, ok := h.clientTasks[client]; ok {
		delete(tasks, taskID)
	}
}

func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	if subs, ok := h.companySubs[client.CompanyID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.companySubs, client.CompanyID)
		}
	}
	for taskID := range h.clientTasks[client] {
		if subs, ok := h.taskSubs[taskID]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.taskSubs, taskID)
			}
		}
	}
	delete(h.clientTasks, client)
	h.log.Debug("client unregistered", "client_id", client.ID)
}

// CloseClient removes the client and closes its transport.
func (h *Hub) CloseClient(client *Client, code websocket.StatusCode, reason string) {
	if client == nil {
		return
	}
	h.Unregister(client)
	if client.conn != nil {
		_ = client.conn.Close(code, reason)
	}
}

// SubscribersFor returns the live connections whose scope includes the given
// company or task, deduplicated. Either id may be nil.
func (h *Hub) SubscribersFor(companyID, taskID uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*Client]bool)
	var out []*Client
	for client := range h.companySubs[companyID] {
		if !seen[client] {
			seen[client] = true
			out = append(out, client)
		}
	}
	for client := range h.taskSubs[taskID] {
		if !seen[client] {
			seen[client] = true
			out = append(out, client)
		}
	}
	return out
}

// BroadcastTaskUpdate delivers one envelope to every subscriber in scope.
// A failed write is counted and the connection dropped; it never aborts
// delivery to the rest, and there is no retry. Returns delivered and failed
// counts.
func (h *Hub) BroadcastTaskUpdate(ctx context.Context, env realtime.TaskUpdate) (int, int) {
	subscribers := h.SubscribersFor(env.CompanyID, env.TaskID)
	if len(subscribers) == 0 {
		return 0, 0
	}

	delivered, failed := 0, 0
	for _, client := range subscribers {
		writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
		err := client.conn.WriteJSON(writeCtx, env)
		cancel()
		if err != nil {
			failed++
			h.log.Warn("task update delivery failed, dropping connection", "client_id", client.ID, "task_id", env.TaskID, "error", err)
			h.CloseClient(client, websocket.StatusNormalClosure, "write_failed")
			continue
		}
		delivered++
	}
	h.log.Debug("task update broadcast", "task_id", env.TaskID, "delivered", delivered, "failed", failed)
	return delivered, failed
}

// StartPingLoop prunes dead connections: clients that fail a ping within the
// bounded window are closed and removed, so abandoned tabs cannot grow the
// registry without bound.
func (h *Hub) StartPingLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.pingAll(ctx)
			}
		}
	}()
}

func (h *Hub) pingAll(ctx context.Context) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		pingCtx, cancel := context.WithTimeout(ctx, h.pingTimeout)
		err := client.conn.Ping(pingCtx)
		cancel()
		if err != nil {
			h.log.Debug("liveness check failed, pruning connection", "client_id", client.ID, "error", err)
			h.CloseClient(client, websocket.StatusGoingAway, "ping_timeout")
		}
	}
}

// ClientCount is used by the healthcheck.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
