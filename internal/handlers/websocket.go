package handlers

import (
	"log"
	"net/http"
	"strings"

	"ChatWave/server/internal/appMiddleware"
	"ChatWave/server/internal/realtime"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	gateway   *realtime.Gateway
	jwtSecret []byte
}

func NewWebSocketHandler(gateway *realtime.Gateway, jwtSecret []byte) *WebSocketHandler {
	return &WebSocketHandler{gateway: gateway, jwtSecret: jwtSecret}
}

// Serve authenticates the dial and hands the connection to the gateway.
// Browsers cannot set headers on websocket dials, so the token may arrive
// as a query parameter instead of an Authorization header.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	tokenStr := extractToken(r)
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	userID, username, err := appMiddleware.ParseToken(tokenStr, h.jwtSecret)
	if err != nil {
		log.Printf("Websocket auth failed: %v", err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	log.Printf("Websocket connected: user %d (%s)", userID, username)
	h.gateway.Attach(conn, userID, username)
}

func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	authHeader := r.Header.Get("Authorization")
	if token := strings.TrimPrefix(authHeader, "Bearer "); token != authHeader {
		return token
	}
	return ""
}
