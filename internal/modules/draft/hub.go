package draft

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// LockEvent is a real-time lease lifecycle event pushed to clients watching
// a draft.
type LockEvent struct {
	DraftID        string     `json:"draftId"`
	Type           string     `json:"type"`
	UserID         int64      `json:"userId"`
	UserLabel      string     `json:"userLabel,omitempty"`
	LeaseExpiresAt *time.Time `json:"leaseExpiresAt,omitempty"`
	At             time.Time  `json:"at"`
}

// subscriber owns a single websocket connection. All writes go through the
// buffered send channel and a dedicated writePump goroutine, since the
// websocket package allows only one concurrent writer per connection.
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

func (s *subscriber) writePump() {
	defer s.conn.Close()

	for msg := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub fans lease events out to websocket subscribers, keyed by draft id.
// A subscriber that cannot keep up with its send buffer is dropped.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*websocket.Conn]*subscriber
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*websocket.Conn]*subscriber),
	}
}

func (h *Hub) Subscribe(draftID string, conn *websocket.Conn) {
	s := &subscriber{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go s.writePump()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[draftID] == nil {
		h.subscribers[draftID] = make(map[*websocket.Conn]*subscriber)
	}
	h.subscribers[draftID][conn] = s
}

func (h *Hub) Unsubscribe(draftID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(draftID, conn)
}

// remove must be called with the write lock held. Closing the send channel
// lets the writePump finish and close the connection.
func (h *Hub) remove(draftID string, conn *websocket.Conn) {
	conns, exists := h.subscribers[draftID]
	if !exists {
		return
	}
	if s, ok := conns[conn]; ok {
		delete(conns, conn)
		close(s.send)
	}
	if len(conns) == 0 {
		delete(h.subscribers, draftID)
	}
}

func (h *Hub) Publish(draftID string, ev LockEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, s := range h.subscribers[draftID] {
		select {
		case s.send <- data:
		default:
			// Client too slow, drop it.
			h.remove(draftID, conn)
		}
	}
}

func (h *Hub) SubscriberCount(draftID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[draftID])
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for draftID, conns := range h.subscribers {
		for conn := range conns {
			h.remove(draftID, conn)
		}
	}
}