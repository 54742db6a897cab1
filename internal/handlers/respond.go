package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ChatWave/server/internal/appMiddleware"
	"ChatWave/server/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeServiceError maps the service sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrChatNotFound),
		errors.Is(err, models.ErrMessageNotFound),
		errors.Is(err, models.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, models.ErrNotParticipant),
		errors.Is(err, models.ErrNotAdmin),
		errors.Is(err, models.ErrNotSender):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, models.ErrUserExists),
		errors.Is(err, models.ErrAlreadyFriends),
		errors.Is(err, models.ErrDuplicateRequest),
		errors.Is(err, models.ErrAlreadyMember):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, models.ErrSelfRequest),
		errors.Is(err, models.ErrEmptyContent),
		errors.Is(err, models.ErrGroupNameRequired),
		errors.Is(err, models.ErrNotGroup),
		errors.Is(err, models.ErrRemoveAdmin):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, models.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())

	default:
		log.Printf("Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// currentUserID pulls the authenticated user out of the request context and
// fails the request when the auth middleware did not run.
func currentUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := appMiddleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return userID, true
}
