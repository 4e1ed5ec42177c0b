package ws

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/realtime"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

type fakeConn struct {
	mu         sync.Mutex
	envelopes  []realtime.TaskUpdate
	failWrites bool
	failPings  bool
	closed     bool
}

func (f *fakeConn) WriteJSON(ctx context.Context, v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return fmt.Errorf("connection reset")
	}
	if env, ok := v.(realtime.TaskUpdate); ok {
		f.envelopes = append(f.envelopes, env)
	}
	return nil
}

func (f *fakeConn) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPings {
		return fmt.Errorf("ping timeout")
	}
	return nil
}

func (f *fakeConn) Close(code websocket.StatusCode, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() []realtime.TaskUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]realtime.TaskUpdate, len(f.envelopes))
	copy(out, f.envelopes)
	return out
}

func registerClient(t *testing.T, hub *Hub, companyID uuid.UUID, conn Conn) *Client {
	t.Helper()
	client := NewClient(uuid.New(), companyID, conn)
	hub.Register(client)
	return client
}

func TestBroadcastIsolationAcrossSubscribers(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	companyID := uuid.New()
	taskID := uuid.New()

	good1 := &fakeConn{}
	bad := &fakeConn{failWrites: true}
	good2 := &fakeConn{}
	registerClient(t, hub, companyID, good1)
	badClient := registerClient(t, hub, companyID, bad)
	registerClient(t, hub, companyID, good2)

	env := realtime.NewTaskUpdate(taskID, companyID, 60, "in_progress", nil)
	delivered, failed := hub.BroadcastTaskUpdate(context.Background(), env)
	if delivered != 2 || failed != 1 {
		t.Fatalf("delivered/failed: want=(2,1) got=(%d,%d)", delivered, failed)
	}
	if len(good1.received()) != 1 || len(good2.received()) != 1 {
		t.Fatalf("healthy subscribers must still receive the broadcast")
	}
	if !bad.closed {
		t.Fatalf("failed connection should be closed")
	}
	if got := len(hub.SubscribersFor(companyID, uuid.Nil)); got != 2 {
		t.Fatalf("failed connection should be pruned: want=2 got=%d", got)
	}
	_ = badClient
}

func TestBroadcastScopingByCompanyAndTask(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	companyA := uuid.New()
	companyB := uuid.New()
	taskID := uuid.New()

	companyConn := &fakeConn{}
	otherConn := &fakeConn{}
	bothConn := &fakeConn{}
	registerClient(t, hub, companyA, companyConn)
	registerClient(t, hub, companyB, otherConn)
	bothClient := registerClient(t, hub, companyA, bothConn)
	hub.SubscribeTask(bothClient, taskID)

	env := realtime.NewTaskUpdate(taskID, companyA, 40, "in_progress", nil)
	delivered, failed := hub.BroadcastTaskUpdate(context.Background(), env)
	if delivered != 2 || failed != 0 {
		t.Fatalf("delivered/failed: want=(2,0) got=(%d,%d)", delivered, failed)
	}
	if len(otherConn.received()) != 0 {
		t.Fatalf("other company must not receive the broadcast")
	}
	// Company + task subscription still yields exactly one copy.
	if len(bothConn.received()) != 1 {
		t.Fatalf("dual-scoped subscriber copies: want=1 got=%d", len(bothConn.received()))
	}
}

func TestBroadcastOrderingPerTask(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	companyID := uuid.New()
	taskID := uuid.New()
	conn := &fakeConn{}
	registerClient(t, hub, companyID, conn)

	for _, progress := range []int{20, 40, 60} {
		env := realtime.NewTaskUpdate(taskID, companyID, progress, "in_progress", nil)
		hub.BroadcastTaskUpdate(context.Background(), env)
	}

	got := conn.received()
	if len(got) != 3 {
		t.Fatalf("envelopes: want=3 got=%d", len(got))
	}
	for i, want := range []int{20, 40, 60} {
		if got[i].Progress != want {
			t.Fatalf("envelope %d progress: want=%d got=%d", i, want, got[i].Progress)
		}
	}
}

func TestPingPrunesDeadConnections(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	companyID := uuid.New()

	alive := &fakeConn{}
	dead := &fakeConn{failPings: true}
	registerClient(t, hub, companyID, alive)
	registerClient(t, hub, companyID, dead)

	hub.pingAll(context.Background())

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("clients after prune: want=1 got=%d", got)
	}
	if !dead.closed {
		t.Fatalf("dead connection should be closed")
	}
}

func TestUnregisterRemovesAllScopes(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	companyID := uuid.New()
	taskID := uuid.New()
	conn := &fakeConn{}
	client := registerClient(t, hub, companyID, conn)
	hub.SubscribeTask(client, taskID)

	hub.Unregister(client)

	if got := len(hub.SubscribersFor(companyID, taskID)); got != 0 {
		t.Fatalf("subscribers after unregister: want=0 got=%d", got)
	}
	env := realtime.NewTaskUpdate(taskID, companyID, 10, "in_progress", nil)
	delivered, _ := hub.BroadcastTaskUpdate(context.Background(), env)
	if delivered != 0 {
		t.Fatalf("unregistered client must not receive broadcasts")
	}
}
