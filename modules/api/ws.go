package api

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/example/team-taskboard/modules/broadcast"
)

// WebSocket message types exchanged on /ws. Task change frames are pushed
// by the broadcast module; this file only handles the session protocol.
const (
	WSTypeJoin         = "join"
	WSTypeJoined       = "joined"
	WSTypeLeave        = "leave"
	WSTypeLeft         = "left"
	WSTypeError        = "error"
	WSTypeOnline       = "userOnline"
	WSTypeDisconnected = "userDisconnected"
)

// WSMessage is the session protocol frame for /ws.
type WSMessage struct {
	Type        string   `json:"type"`
	Token       string   `json:"token,omitempty"`
	UserID      string   `json:"userId,omitempty"`
	OnlineUsers []string `json:"onlineUsers,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// HandleWebSocket handles WebSocket connections at /ws. A session receives
// no task events until it authenticates with a join message carrying a
// valid access token.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	client := &broadcast.Client{
		ID:   connID,
		Conn: c,
	}

	h.hub.Register(client)
	defer func() {
		userID := client.UserID
		h.hub.Unregister(client)
		if userID != "" && h.hub.ConnectionsFor(userID) == 0 {
			h.announcePresence(WSTypeDisconnected, userID)
		}
		log.Printf("[api] WebSocket session disconnected: %s", connID)
	}()

	log.Printf("[api] WebSocket session connected: %s", connID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Session %s closed connection", connID)
			} else {
				log.Printf("[api] Read error from %s: %v", connID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			h.sendWSError(c, "Invalid message format")
			continue
		}

		switch msg.Type {
		case WSTypeJoin:
			h.handleWSJoin(c, client, msg)
		case WSTypeLeave:
			h.handleWSLeave(c, client)
		default:
			h.sendWSError(c, "Unknown message type: "+msg.Type)
		}
	}
}

func (h *Handlers) handleWSJoin(c *websocket.Conn, client *broadcast.Client, msg WSMessage) {
	if msg.Token == "" {
		h.sendWSError(c, "Token is required")
		return
	}

	claims, err := h.authAdapter.ValidateToken(context.Background(), msg.Token)
	if err != nil {
		h.sendWSError(c, "Invalid or expired token")
		return
	}

	prevUserID := client.UserID
	wasOnline := h.hub.ConnectionsFor(claims.UserID) > 0

	// Bind is idempotent for a repeated join as the same user.
	h.hub.Bind(client.ID, claims.UserID)

	_ = c.WriteJSON(WSMessage{
		Type:        WSTypeJoined,
		UserID:      claims.UserID,
		OnlineUsers: h.hub.OnlineUsers(),
	})

	if !wasOnline {
		h.announcePresence(WSTypeOnline, claims.UserID)
	}
	if prevUserID != "" && prevUserID != claims.UserID && h.hub.ConnectionsFor(prevUserID) == 0 {
		h.announcePresence(WSTypeDisconnected, prevUserID)
	}
}

func (h *Handlers) handleWSLeave(c *websocket.Conn, client *broadcast.Client) {
	userID := client.UserID
	if userID == "" {
		h.sendWSError(c, "Not joined")
		return
	}

	h.hub.Unbind(client.ID)

	_ = c.WriteJSON(WSMessage{
		Type:   WSTypeLeft,
		UserID: userID,
	})

	if h.hub.ConnectionsFor(userID) == 0 {
		h.announcePresence(WSTypeDisconnected, userID)
	}
}

// announcePresence tells every connected session that a user came online
// or went away, with the deduplicated online roster attached.
func (h *Handlers) announcePresence(msgType, userID string) {
	h.hub.SendToAll(WSMessage{
		Type:        msgType,
		UserID:      userID,
		OnlineUsers: h.hub.OnlineUsers(),
	})
}

func (h *Handlers) sendWSError(c *websocket.Conn, message string) {
	_ = c.WriteJSON(WSMessage{
		Type:  WSTypeError,
		Error: message,
	})
}
