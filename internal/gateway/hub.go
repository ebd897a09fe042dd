package gateway

import (
	"log"
	"sync"

	"coursechat/internal/transport/wire"
)

// client is one websocket subscriber of a course room. Outbound frames go
// through a buffered channel so one slow reader cannot stall a broadcast.
type client struct {
	userID string
	send   chan wire.Message
}

const clientSendBuffer = 64

// Hub fans published messages out to every subscriber of a course room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

// Join registers a subscriber and returns its client handle; Leave must be
// called when the connection ends.
func (h *Hub) Join(courseID, userID string) *client {
	c := &client{userID: userID, send: make(chan wire.Message, clientSendBuffer)}

	h.mu.Lock()
	room, ok := h.rooms[courseID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[courseID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) Leave(courseID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[courseID]
	if !ok {
		return
	}
	if _, member := room[c]; member {
		delete(room, c)
		close(c.send)
	}
	if len(room) == 0 {
		delete(h.rooms, courseID)
	}
}

// Broadcast delivers a message to every subscriber of the room. A client
// whose buffer is full has the frame dropped; the feed's reconnect path
// resynchronizes it through history.
func (h *Hub) Broadcast(courseID string, msg wire.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[courseID] {
		select {
		case c.send <- msg:
		default:
			log.Printf("hub: dropping frame for slow client %s in %s", c.userID, courseID)
		}
	}
}

// RoomSize reports the current subscriber count of a room.
func (h *Hub) RoomSize(courseID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[courseID])
}
