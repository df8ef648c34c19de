package discovery

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emberdating/ember-backend/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// matchEvent is the payload pushed to both participants of a new match.
type matchEvent struct {
	Type        string `json:"type"`
	MatchID     int64  `json:"match_id"`
	ChatID      int64  `json:"chat_id"`
	OtherUserID int64  `json:"other_user_id"`
}

type wsClient struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks connected discovery clients and fans match events out to them.
// It satisfies MatchNotifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64][]*wsClient
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64][]*wsClient)}
}

// NotifyMatch pushes the match to both participants. Users without an open
// connection simply miss the push; the match itself is already durable.
func (h *Hub) NotifyMatch(userA, userB int64, match *MatchRecord) {
	h.push(userA, matchEvent{Type: "match", MatchID: match.ID, ChatID: match.ChatChannelID, OtherUserID: userB})
	h.push(userB, matchEvent{Type: "match", MatchID: match.ID, ChatID: match.ChatChannelID, OtherUserID: userA})
}

func (h *Hub) push(userID int64, event matchEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			// Slow consumer; drop the event rather than block the swipe path.
		}
	}
}

// HandleWS upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("discovery: websocket upgrade for user %d: %v", userID, err)
		return
	}

	client := &wsClient{userID: userID, conn: conn, send: make(chan []byte, 16)}
	h.register(client)

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.userID] = append(h.clients[c.userID], c)
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.clients[c.userID]
	for i, other := range conns {
		if other == c {
			h.clients[c.userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.clients[c.userID]) == 0 {
		delete(h.clients, c.userID)
	}
}

func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		close(c.send)
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
