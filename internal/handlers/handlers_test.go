package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ChatWave/server/internal/crypto"
	"ChatWave/server/internal/services"
	"ChatWave/server/internal/storage/memstore"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var handlerTestSecret = []byte("handler-test-secret")

type noopBroadcaster struct{}

func (noopBroadcaster) ToUser(int, string, any) {}

func (noopBroadcaster) ToUsers([]int, int, string, any) {}

func (noopBroadcaster) ToChat(int, int, string, any) {}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	store := memstore.New()

	cipher, err := crypto.NewCipher("handler-test-key")
	require.NoError(t, err)

	var b noopBroadcaster
	users := services.NewUserService(store, handlerTestSecret, time.Hour)
	chats := services.NewChatService(store, cipher, b)
	friends := services.NewFriendService(store, b)
	groups := services.NewGroupService(store, b, chats)

	return NewRouter(Deps{
		Auth:      NewAuthHandler(users),
		Users:     NewUserHandler(users),
		Chats:     NewChatHandler(chats),
		Messages:  NewMessageHandler(chats),
		Friends:   NewFriendHandler(friends),
		Groups:    NewGroupHandler(groups),
		JWTSecret: handlerTestSecret,
	})
}

func doJSON(t *testing.T, router chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// registerUser creates an account through the API and returns its token.
func registerUser(t *testing.T, router chi.Router, name string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]any{
		"username": name,
		"email":    fmt.Sprintf("%s@test.io", name),
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, ok := decode(t, rec)["token"].(string)
	require.True(t, ok)
	return token
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	router := newTestRouter(t)

	token := registerUser(t, router, "alice")

	// Duplicate registration conflicts.
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]any{
		"username": "alice",
		"email":    "alice@test.io",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Short passwords never reach the service.
	rec = doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]any{
		"username": "bob",
		"email":    "bob@test.io",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "alice@test.io",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "alice@test.io",
		"password": "wrong-horse",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode(t, rec)["username"])
}

func TestAuthRequiredOnProtectedRoutes(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/chat", "/friends", "/auth/me"} {
		rec := doJSON(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestChatLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "alice")
	_ = registerUser(t, router, "bob")
	carol := registerUser(t, router, "carol")

	// Create a direct chat with bob (user 2).
	rec := doJSON(t, router, http.MethodPost, "/chat", alice, map[string]any{
		"participant_ids": []int{2},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	chatID := int(decode(t, rec)["id"].(float64))

	// Creating it again reuses the chat.
	rec = doJSON(t, router, http.MethodPost, "/chat", alice, map[string]any{
		"participant_ids": []int{2},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, chatID, int(decode(t, rec)["id"].(float64)))

	path := fmt.Sprintf("/chat/%d/messages", chatID)
	rec = doJSON(t, router, http.MethodPost, path, alice, map[string]any{
		"content": "hello bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	msgID := int(decode(t, rec)["id"].(float64))
	assert.Equal(t, "hello bob", decode(t, rec)["content"])

	// Outsiders are kept out.
	rec = doJSON(t, router, http.MethodPost, path, carol, map[string]any{
		"content": "let me in",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, path+"?page=1&limit=50", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["messages"], 1)

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/chat/%d/read", chatID), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Edit and delete are sender-only.
	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/messages/%d", msgID), carol, map[string]any{
		"content": "hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/messages/%d", msgID), alice, map[string]any{
		"content": "hello again",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello again", decode(t, rec)["content"])

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/messages/%d", msgID), alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateChatWithUnknownParticipant(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "alice")

	rec := doJSON(t, router, http.MethodPost, "/chat", alice, map[string]any{
		"participant_ids": []int{999},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestMessageReactionsOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "alice")
	bob := registerUser(t, router, "bob")

	rec := doJSON(t, router, http.MethodPost, "/chat", alice, map[string]any{
		"participant_ids": []int{2},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	chatID := int(decode(t, rec)["id"].(float64))

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/chat/%d/messages", chatID), alice, map[string]any{
		"content": "react to this",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	msgID := int(decode(t, rec)["id"].(float64))

	path := fmt.Sprintf("/messages/%d/reactions", msgID)
	rec = doJSON(t, router, http.MethodPost, path, bob, map[string]any{"emoji": "👍"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["reactions"], 1)

	rec = doJSON(t, router, http.MethodPost, path, alice, map[string]any{"emoji": "🔥"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["reactions"], 2)

	rec = doJSON(t, router, http.MethodDelete, path, bob, map[string]any{"emoji": "👍"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["reactions"], 1)
}

func TestFriendFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "alice")
	bob := registerUser(t, router, "bob")

	rec := doJSON(t, router, http.MethodPost, "/friends/request/2", alice, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	requestID := int(decode(t, rec)["id"].(float64))

	rec = doJSON(t, router, http.MethodPost, "/friends/request/2", alice, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/friends/request/1", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/friends/accept/%d", requestID), bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode(t, rec)["username"])

	rec = doJSON(t, router, http.MethodGet, "/friends", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var friends []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &friends))
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0]["username"])

	rec = doJSON(t, router, http.MethodDelete, "/friends/2", alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGroupFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "alice")
	bob := registerUser(t, router, "bob")
	_ = registerUser(t, router, "carol")

	rec := doJSON(t, router, http.MethodPost, "/chat", alice, map[string]any{
		"participant_ids": []int{2},
		"is_group":        true,
		"name":            "Book club",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	chatID := int(decode(t, rec)["id"].(float64))

	// Only the admin can grow the group.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/group/%d/members", chatID), bob, map[string]any{
		"user_ids": []int{3},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/group/%d/members", chatID), alice, map[string]any{
		"user_ids": []int{3},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/group/%d", chatID), alice, map[string]any{
		"name": "Movie club",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Movie club", decode(t, rec)["name"])

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/group/%d/leave", chatID), bob, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
