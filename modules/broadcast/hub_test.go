package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	domain "github.com/example/team-taskboard/domain/task"
	"github.com/example/team-taskboard/events"
)

// fakeConn records frames written to it.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func addSession(h *Hub, connID, userID string) (*Client, *fakeConn) {
	conn := &fakeConn{}
	client := &Client{ID: connID, Conn: conn}
	h.Register(client)
	if userID != "" {
		h.Bind(connID, userID)
	}
	return client, conn
}

func TestHub_BindIsIdempotent(t *testing.T) {
	h := NewHub()
	addSession(h, "conn1", "alice")

	before := h.ConnectionsFor("alice")
	h.Bind("conn1", "alice")
	h.Bind("conn1", "alice")

	if got := h.ConnectionsFor("alice"); got != before {
		t.Errorf("ConnectionsFor(alice) = %d after repeated joins, want %d", got, before)
	}
}

func TestHub_OnlineUsersDeduplicated(t *testing.T) {
	h := NewHub()
	addSession(h, "conn1", "alice")
	addSession(h, "conn2", "alice") // second tab
	addSession(h, "conn3", "bob")
	addSession(h, "conn4", "") // connected but never joined

	online := h.OnlineUsers()
	if len(online) != 2 {
		t.Fatalf("OnlineUsers() = %v, want 2 distinct users", online)
	}
	if online[0] != "alice" || online[1] != "bob" {
		t.Errorf("OnlineUsers() = %v, want [alice bob]", online)
	}

	if got := h.ConnectionsFor("alice"); got != 2 {
		t.Errorf("ConnectionsFor(alice) = %d, want 2", got)
	}
}

func TestHub_UnbindWithoutJoinIsNoOp(t *testing.T) {
	h := NewHub()
	client, _ := addSession(h, "conn1", "")

	h.Unbind("conn1")
	h.Unbind("nonexistent")

	if client.UserID != "" {
		t.Errorf("UserID = %q, want empty", client.UserID)
	}
	if got := h.ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1", got)
	}
}

func TestHub_RebindMovesSession(t *testing.T) {
	h := NewHub()
	addSession(h, "conn1", "alice")

	h.Bind("conn1", "bob")

	if got := h.ConnectionsFor("alice"); got != 0 {
		t.Errorf("ConnectionsFor(alice) = %d after rebind, want 0", got)
	}
	if got := h.ConnectionsFor("bob"); got != 1 {
		t.Errorf("ConnectionsFor(bob) = %d after rebind, want 1", got)
	}
}

func TestHub_DeliveryToRecipientsOnly(t *testing.T) {
	h := NewHub()
	_, aliceConn := addSession(h, "conn1", "alice")
	_, aliceTab := addSession(h, "conn2", "alice")
	_, bobConn := addSession(h, "conn3", "bob")
	_, anonConn := addSession(h, "conn4", "")

	h.handleDelivery(&Delivery{
		Recipients: []string{"alice"},
		Payload:    map[string]string{"type": "taskUpdated"},
	})

	if aliceConn.frameCount() != 1 || aliceTab.frameCount() != 1 {
		t.Errorf("alice sessions got %d and %d frames, want 1 each",
			aliceConn.frameCount(), aliceTab.frameCount())
	}
	if bobConn.frameCount() != 0 {
		t.Errorf("bob got %d frames, want 0", bobConn.frameCount())
	}
	if anonConn.frameCount() != 0 {
		t.Errorf("unauthenticated session got %d frames, want 0", anonConn.frameCount())
	}
}

func TestHub_BoundDeliverySkipsUnjoinedSessions(t *testing.T) {
	h := NewHub()
	_, aliceConn := addSession(h, "conn1", "alice")
	_, bobConn := addSession(h, "conn2", "bob")
	_, anonConn := addSession(h, "conn3", "")

	// Public task data must never reach a socket that has not joined.
	h.handleDelivery(&Delivery{
		All:     true,
		Bound:   true,
		Payload: map[string]string{"type": "taskCreated", "title": "visible to members only"},
	})

	if aliceConn.frameCount() != 1 || bobConn.frameCount() != 1 {
		t.Errorf("signed-in sessions got %d and %d frames, want 1 each",
			aliceConn.frameCount(), bobConn.frameCount())
	}
	if anonConn.frameCount() != 0 {
		t.Errorf("unauthenticated session got %d frames, want 0", anonConn.frameCount())
	}
}

func TestHub_DeliveryToAllIncludesUnjoinedSessions(t *testing.T) {
	h := NewHub()
	_, aliceConn := addSession(h, "conn1", "alice")
	_, anonConn := addSession(h, "conn2", "")

	// Presence frames go to every socket, joined or not.
	h.handleDelivery(&Delivery{
		All:     true,
		Payload: map[string]string{"type": "userOnline"},
	})

	if aliceConn.frameCount() != 1 {
		t.Errorf("alice got %d frames, want 1", aliceConn.frameCount())
	}
	if anonConn.frameCount() != 1 {
		t.Errorf("unauthenticated session got %d frames, want 1", anonConn.frameCount())
	}
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	h := NewHub()
	client, conn := addSession(h, "conn1", "alice")

	h.Unregister(client)

	h.handleDelivery(&Delivery{
		Recipients: []string{"alice"},
		Payload:    map[string]string{"type": "taskUpdated"},
	})

	if conn.frameCount() != 0 {
		t.Errorf("unregistered session got %d frames, want 0", conn.frameCount())
	}
	if got := h.ConnectionsFor("alice"); got != 0 {
		t.Errorf("ConnectionsFor(alice) = %d after unregister, want 0", got)
	}
}

func TestModule_HandleTaskChanged(t *testing.T) {
	m := NewModule()
	h := m.GetHub()

	// Drain deliveries on a real hub loop.
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.Wait()
	}()
	go h.Run(ctx)

	_, bobConn := addSession(h, "conn1", "bob")
	_, carolConn := addSession(h, "conn2", "carol")

	task := &domain.Task{ID: "t1", Title: "Fan me out", CreatedBy: "alice"}
	err := m.handleTaskChanged(context.Background(), events.TaskChangedEvent{
		Kind:       events.TaskUpdated,
		TaskID:     "t1",
		Task:       task,
		Recipients: []string{"bob"},
		OccurredAt: time.Now(),
	}, nil)
	if err != nil {
		t.Fatalf("handleTaskChanged() unexpected error: %v", err)
	}

	waitForFrames(t, bobConn, 1)
	if carolConn.frameCount() != 0 {
		t.Errorf("carol got %d frames, want 0", carolConn.frameCount())
	}

	bobConn.mu.Lock()
	frame := bobConn.frames[0]
	bobConn.mu.Unlock()

	var decoded WSEvent
	if err := json.Unmarshal(frame, &decoded); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	if decoded.Type != "taskUpdated" {
		t.Errorf("frame Type = %q, want taskUpdated", decoded.Type)
	}
	if decoded.Task == nil || decoded.Task.ID != "t1" {
		t.Errorf("frame Task = %+v, want snapshot of t1", decoded.Task)
	}
}

func TestModule_BroadcastReachesOnlySignedInSessions(t *testing.T) {
	m := NewModule()
	h := m.GetHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.Wait()
	}()
	go h.Run(ctx)

	_, bobConn := addSession(h, "conn1", "bob")
	_, anonConn := addSession(h, "conn2", "")

	task := &domain.Task{ID: "t2", Title: "Team-wide", CreatedBy: "alice", Assignee: "all"}
	err := m.handleTaskChanged(context.Background(), events.TaskChangedEvent{
		Kind:       events.TaskCreated,
		TaskID:     "t2",
		Task:       task,
		Broadcast:  true,
		OccurredAt: time.Now(),
	}, nil)
	if err != nil {
		t.Fatalf("handleTaskChanged() unexpected error: %v", err)
	}

	waitForFrames(t, bobConn, 1)
	if anonConn.frameCount() != 0 {
		t.Errorf("unauthenticated session got %d frames, want 0", anonConn.frameCount())
	}
}

func TestFrameType(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{events.TaskCreated, "taskCreated"},
		{events.TaskUpdated, "taskUpdated"},
		{events.TaskDeleted, "taskDeleted"},
		{"unknown", "unknown"},
	}

	for _, tt := range tests {
		if got := frameType(tt.kind); got != tt.want {
			t.Errorf("frameType(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

// waitForFrames polls until the connection has received at least n frames.
func waitForFrames(t *testing.T, conn *fakeConn, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn.frameCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames, got %d", n, conn.frameCount())
}
