package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ChatWave/server/internal/storage"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Client is one authenticated websocket connection.
type Client struct {
	userID   int
	username string
	connID   string
	conn     *websocket.Conn
	send     chan []byte
	joined   map[int]bool
}

// Gateway owns the realtime side of the server: it attaches authenticated
// connections to the hub, relays inbound events, and drives the presence
// and typing trackers.
type Gateway struct {
	hub      *Hub
	presence *Presence
	typing   *TypingTracker
	store    storage.Store
}

func NewGateway(hub *Hub, presence *Presence, typing *TypingTracker, store storage.Store) *Gateway {
	return &Gateway{
		hub:      hub,
		presence: presence,
		typing:   typing,
		store:    store,
	}
}

func (g *Gateway) Hub() *Hub { return g.hub }

func (g *Gateway) Presence() *Presence { return g.presence }

func (g *Gateway) Typing() *TypingTracker { return g.typing }

// Attach takes ownership of an upgraded connection for an authenticated
// user: it registers the connection, transitions presence to online, and
// pumps events until the connection closes. Blocks until disconnect.
func (g *Gateway) Attach(conn *websocket.Conn, userID int, username string) {
	client := &Client{
		userID:   userID,
		username: username,
		connID:   fmt.Sprintf("%d-%d", userID, time.Now().UnixNano()),
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		joined:   make(map[int]bool),
	}

	g.hub.register(client)
	g.presence.Connected(userID, client.connID)

	g.hub.ToUser(userID, EventConnected, map[string]any{
		"user_id":     userID,
		"username":    username,
		"server_time": time.Now().UTC(),
	})

	go client.writePump()
	g.readPump(client)
}

func (g *Gateway) readPump(c *Client) {
	defer g.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Unexpected close from user %d: %v", c.userID, err)
			}
			return
		}

		var event clientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("Invalid event from user %d: %v", c.userID, err)
			continue
		}

		g.presence.Activity(c.userID)
		g.dispatch(c, event)
	}
}

func (g *Gateway) dispatch(c *Client, event clientEvent) {
	switch event.Event {
	case actionJoinChat:
		g.handleJoinChat(c, event.ChatID)

	case actionLeaveChat:
		g.handleLeaveChat(c, event.ChatID)

	case actionStartTyping:
		if c.joined[event.ChatID] {
			g.typing.Start(event.ChatID, c.userID, c.username)
		}

	case actionStopTyping:
		g.typing.Stop(event.ChatID, c.userID)

	case actionTypingDirect:
		if event.TargetUserID != 0 {
			g.hub.ToUser(event.TargetUserID, EventTypingDirect, map[string]any{
				"user_id":  c.userID,
				"username": c.username,
			})
		}

	case actionStopTypingDirect:
		if event.TargetUserID != 0 {
			g.hub.ToUser(event.TargetUserID, EventStoppedTypingDirect, map[string]any{
				"user_id": c.userID,
			})
		}

	case actionActivity:
		// Already counted by the read loop.

	case actionMessageDelivered:
		if c.joined[event.ChatID] {
			g.hub.ToChat(event.ChatID, c.userID, EventMessageDelivered, map[string]any{
				"message_id":   event.MessageID,
				"chat_id":      event.ChatID,
				"delivered_to": c.userID,
				"delivered_at": time.Now().UTC(),
			})
		}

	case actionFileShared:
		if c.joined[event.ChatID] {
			g.hub.ToChat(event.ChatID, c.userID, EventFileShared, map[string]any{
				"from":     c.userID,
				"username": c.username,
				"chat_id":  event.ChatID,
				"payload":  event.Payload,
			})
		}

	case actionCallUser:
		g.relayCall(c, event, EventIncomingCall)

	case actionAnswerCall:
		g.relayCall(c, event, EventCallAnswered)

	case actionRejectCall:
		g.relayCall(c, event, EventCallRejected)

	case actionICECandidate:
		g.relayCall(c, event, EventICECandidate)

	default:
		log.Printf("Unknown event %q from user %d", event.Event, c.userID)
	}
}

func (g *Gateway) handleJoinChat(c *Client, chatID int) {
	if chatID == 0 {
		return
	}

	isParticipant, err := g.store.IsParticipant(context.Background(), chatID, c.userID)
	if err != nil || !isParticipant {
		log.Printf("User %d refused join of chat %d", c.userID, chatID)
		return
	}

	g.hub.joinChat(c, chatID)
	g.hub.ToChat(chatID, c.userID, EventUserJoinedChat, map[string]any{
		"user_id":  c.userID,
		"username": c.username,
		"chat_id":  chatID,
	})
}

func (g *Gateway) handleLeaveChat(c *Client, chatID int) {
	if !c.joined[chatID] {
		return
	}

	g.hub.leaveChat(c, chatID)
	g.hub.ToChat(chatID, c.userID, EventUserLeftChat, map[string]any{
		"user_id":  c.userID,
		"username": c.username,
		"chat_id":  chatID,
	})
}

// relayCall passes call signalling through to the target user untouched; no
// media handling happens server-side.
func (g *Gateway) relayCall(c *Client, event clientEvent, outbound string) {
	if event.TargetUserID == 0 {
		return
	}
	g.hub.ToUser(event.TargetUserID, outbound, map[string]any{
		"from":     c.userID,
		"username": c.username,
		"payload":  event.Payload,
	})
}

func (g *Gateway) disconnect(c *Client) {
	g.hub.unregister(c)
	g.typing.ClearUser(c.userID)
	g.presence.Disconnected(c.userID, c.connID)
	c.conn.Close()
	log.Printf("User %d disconnected", c.userID)
}

func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		// Slow consumer; drop the frame rather than blocking the hub.
		log.Printf("Dropping frame for user %d: send buffer full", c.userID)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
