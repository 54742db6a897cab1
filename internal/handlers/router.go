package handlers

import (
	"net/http"

	"ChatWave/server/internal/appMiddleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps bundles everything the router mounts. WebSocket may be nil; tests
// exercise the REST surface without a hub.
type Deps struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Chats     *ChatHandler
	Messages  *MessageHandler
	Friends   *FriendHandler
	Groups    *GroupHandler
	WebSocket *WebSocketHandler
	JWTSecret []byte
}

func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(appMiddleware.CorsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/auth/register", deps.Auth.Register)
	r.Post("/auth/login", deps.Auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(deps.JWTSecret))

		r.Get("/auth/me", deps.Auth.Me)
		r.Get("/users/search", deps.Users.Search)

		r.Get("/chat", deps.Chats.List)
		r.Post("/chat", deps.Chats.Create)
		r.Get("/chat/{chatID}", deps.Chats.Get)
		r.Get("/chat/{chatID}/messages", deps.Chats.GetMessages)
		r.Post("/chat/{chatID}/messages", deps.Chats.SendMessage)
		r.Put("/chat/{chatID}/read", deps.Chats.MarkRead)

		r.Put("/messages/{messageID}", deps.Messages.Edit)
		r.Delete("/messages/{messageID}", deps.Messages.Delete)
		r.Post("/messages/{messageID}/reactions", deps.Messages.React)
		r.Delete("/messages/{messageID}/reactions", deps.Messages.Unreact)

		r.Get("/friends", deps.Friends.List)
		r.Get("/friends/requests", deps.Friends.ListRequests)
		r.Post("/friends/request/{userID}", deps.Friends.SendRequest)
		r.Put("/friends/accept/{requestID}", deps.Friends.Accept)
		r.Put("/friends/decline/{requestID}", deps.Friends.Decline)
		r.Delete("/friends/{friendID}", deps.Friends.Remove)

		r.Post("/group/{chatID}/members", deps.Groups.AddMembers)
		r.Delete("/group/{chatID}/members/{userID}", deps.Groups.RemoveMember)
		r.Post("/group/{chatID}/leave", deps.Groups.Leave)
		r.Put("/group/{chatID}", deps.Groups.UpdateInfo)
	})

	if deps.WebSocket != nil {
		r.Get("/ws", deps.WebSocket.Serve)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
