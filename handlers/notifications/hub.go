package notifications

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

// Hub tracks the live notification sockets of each user. A user may have
// several tabs open, so every connection of the user receives the push.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	// gorilla connections allow one concurrent writer
	writeMu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*client]struct{})}
}

func (h *Hub) add(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*client]struct{})
	}
	h.conns[userID][c] = struct{}{}
}

func (h *Hub) remove(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], c)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Connected reports how many sockets userID currently has open.
func (h *Hub) Connected(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

// Send pushes payload to every socket of userID and returns how many writes succeeded.
func (h *Hub) Send(userID string, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("Error encoding notification")
		return 0
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	sent := 0
	for _, c := range targets {
		if err := c.write(websocket.TextMessage, data); err != nil {
			log.WithField("user_id", userID).WithError(err).Debug("Dropping notification socket")
			h.remove(userID, c)
			c.conn.Close()
			continue
		}
		sent++
	}
	return sent
}

func (c *client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
