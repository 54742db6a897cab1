package handlers

import (
	"encoding/json"
	"net/http"

	"ChatWave/server/internal/services"
)

type GroupHandler struct {
	groups *services.GroupService
}

func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func (h *GroupHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}

	var req struct {
		UserIDs []int `json:"user_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "At least one user_id is required")
		return
	}

	chat, err := h.groups.AddMembers(r.Context(), chatID, userID, req.UserIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.groups.RemoveMember(r.Context(), chatID, userID, memberID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}

	if err := h.groups.Leave(r.Context(), chatID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name"`
		GroupAvatar *string `json:"group_avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Name == nil && req.GroupAvatar == nil) {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	chat, err := h.groups.UpdateInfo(r.Context(), chatID, userID, req.Name, req.GroupAvatar)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}
