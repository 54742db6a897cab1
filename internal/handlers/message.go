package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"ChatWave/server/internal/models"
	"ChatWave/server/internal/services"
)

type MessageHandler struct {
	chats *services.ChatService
}

func NewMessageHandler(chats *services.ChatService) *MessageHandler {
	return &MessageHandler{chats: chats}
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	msg, err := h.chats.EditMessage(r.Context(), messageID, userID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	h.updateReactions(w, r, h.chats.ReactToMessage)
}

func (h *MessageHandler) Unreact(w http.ResponseWriter, r *http.Request) {
	h.updateReactions(w, r, h.chats.RemoveReaction)
}

func (h *MessageHandler) updateReactions(w http.ResponseWriter, r *http.Request, apply func(context.Context, int, int, string) ([]models.Reaction, error)) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	reactions, err := apply(r.Context(), messageID, userID, req.Emoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reactions": reactions})
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}

	if err := h.chats.DeleteMessage(r.Context(), messageID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
