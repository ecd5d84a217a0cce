package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the subset of a WebSocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a connected WebSocket session. UserID is empty until
// the session authenticates with a join message.
type Client struct {
	ID     string
	UserID string
	Conn   Conn
}

// Hub tracks WebSocket sessions indexed by user. A user may hold several
// sessions at once (multiple tabs); deliveries go to every open session.
type Hub struct {
	clients map[string]*Client         // connection ID -> Client
	users   map[string]map[string]bool // user ID -> set of connection IDs
	deliver chan *Delivery
	done    chan struct{}
	mu      sync.RWMutex
}

// Delivery is a payload queued for fan-out. Bound restricts an All
// delivery to sessions that have authenticated with a join.
type Delivery struct {
	Recipients []string // user IDs; ignored when All is set
	All        bool
	Bound      bool
	Payload    any
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		users:   make(map[string]map[string]bool),
		deliver: make(chan *Delivery, 256),
		done:    make(chan struct{}),
	}
}

// Run drains the delivery queue until the context is cancelled. Writes to
// client connections happen only on this goroutine, so concurrent senders
// never interleave frames on the same socket.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case d := <-h.deliver:
			h.handleDelivery(d)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// closeAllClients closes all connected client connections.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.users = make(map[string]map[string]bool)
}

// Register adds a session to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if client.UserID != "" {
		h.indexLocked(client.ID, client.UserID)
	}
	log.Printf("[hub] Session %s registered", client.ID)
}

// Unregister removes a session from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	h.unindexLocked(client.ID, client.UserID)
	log.Printf("[hub] Session %s unregistered", client.ID)
}

// Bind associates an authenticated session with a user. Binding the same
// session twice is a no-op; binding to a different user moves the session.
func (h *Hub) Bind(connID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok || client.UserID == userID {
		return
	}

	h.unindexLocked(connID, client.UserID)
	client.UserID = userID
	h.indexLocked(connID, userID)
	log.Printf("[hub] Session %s bound to user %s", connID, userID)
}

// Unbind detaches a session from its user without closing the connection.
func (h *Hub) Unbind(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok || client.UserID == "" {
		return
	}
	h.unindexLocked(connID, client.UserID)
	log.Printf("[hub] Session %s unbound from user %s", connID, client.UserID)
	client.UserID = ""
}

func (h *Hub) indexLocked(connID, userID string) {
	if h.users[userID] == nil {
		h.users[userID] = make(map[string]bool)
	}
	h.users[userID][connID] = true
}

func (h *Hub) unindexLocked(connID, userID string) {
	if userID == "" || h.users[userID] == nil {
		return
	}
	delete(h.users[userID], connID)
	if len(h.users[userID]) == 0 {
		delete(h.users, userID)
	}
}

// SendToUsers queues a payload for every open session of the given users.
func (h *Hub) SendToUsers(userIDs []string, payload any) {
	h.deliver <- &Delivery{
		Recipients: userIDs,
		Payload:    payload,
	}
}

// SendToAll queues a payload for every connected session, authenticated
// or not. Use it for presence frames only; task data goes through
// SendToBound or SendToUsers.
func (h *Hub) SendToAll(payload any) {
	h.deliver <- &Delivery{
		All:     true,
		Payload: payload,
	}
}

// SendToBound queues a payload for every session bound to a user. A
// socket that never completed a join receives nothing.
func (h *Hub) SendToBound(payload any) {
	h.deliver <- &Delivery{
		All:     true,
		Bound:   true,
		Payload: payload,
	}
}

func (h *Hub) handleDelivery(d *Delivery) {
	data, err := json.Marshal(d.Payload)
	if err != nil {
		log.Printf("[hub] Failed to marshal delivery: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if d.All {
		for _, client := range h.clients {
			if d.Bound && client.UserID == "" {
				continue
			}
			h.sendToClient(client, data)
		}
		return
	}

	for _, userID := range d.Recipients {
		for connID := range h.users[userID] {
			if client, ok := h.clients[connID]; ok {
				h.sendToClient(client, data)
			}
		}
	}
}

func (h *Hub) sendToClient(client *Client, data []byte) {
	if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[hub] Failed to send to session %s: %v", client.ID, err)
	}
}

// GetClient returns a session by connection ID.
func (h *Hub) GetClient(connID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[connID]
}

// ConnectionsFor returns the number of open sessions bound to a user.
func (h *Hub) ConnectionsFor(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// OnlineUsers returns the IDs of users with at least one bound session,
// each listed once regardless of how many sessions they hold.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.users))
	for userID := range h.users {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	return ids
}

// ClientCount returns the total number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
