package handlers

import (
	"net/http"

	"ChatWave/server/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Search finds users by a username or email fragment, for the add-friend
// flow. The caller never appears in their own results.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	found, err := h.users.Search(r.Context(), r.URL.Query().Get("q"), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}
