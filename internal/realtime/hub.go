package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub tracks which user is attached to which connections and fans events out
// to per-user and per-chat broadcast groups. It is an injected dependency of
// both the websocket handler and the services layer, never a package global,
// so tests can run isolated instances.
type Hub struct {
	mu        sync.RWMutex
	userConns map[int]map[*Client]bool
	chatRooms map[int]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		userConns: make(map[int]map[*Client]bool),
		chatRooms: make(map[int]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.userConns[c.userID] == nil {
		h.userConns[c.userID] = make(map[*Client]bool)
	}
	h.userConns[c.userID][c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.userConns[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.userConns, c.userID)
		}
	}
	for chatID := range c.joined {
		if room, ok := h.chatRooms[chatID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.chatRooms, chatID)
			}
		}
	}
	close(c.send)
}

func (h *Hub) joinChat(c *Client, chatID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.chatRooms[chatID] == nil {
		h.chatRooms[chatID] = make(map[*Client]bool)
	}
	h.chatRooms[chatID][c] = true
	c.joined[chatID] = true
}

func (h *Hub) leaveChat(c *Client, chatID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.chatRooms[chatID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.chatRooms, chatID)
		}
	}
	delete(c.joined, chatID)
}

// IsConnected reports whether the user has at least one open connection.
func (h *Hub) IsConnected(userID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// ToUser delivers an event to every open connection of a single user.
func (h *Hub) ToUser(userID int, event string, data any) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("Error encoding %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.userConns[userID] {
		c.enqueue(payload)
	}
}

// ToUsers delivers an event to each listed user, skipping exceptUserID.
func (h *Hub) ToUsers(userIDs []int, exceptUserID int, event string, data any) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("Error encoding %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range userIDs {
		if userID == exceptUserID {
			continue
		}
		for c := range h.userConns[userID] {
			c.enqueue(payload)
		}
	}
}

// ToChat delivers an event to every connection joined to the chat room,
// skipping connections owned by exceptUserID.
func (h *Hub) ToChat(chatID, exceptUserID int, event string, data any) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("Error encoding %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.chatRooms[chatID] {
		if c.userID == exceptUserID {
			continue
		}
		c.enqueue(payload)
	}
}
