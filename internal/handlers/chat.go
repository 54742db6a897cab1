package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ChatWave/server/internal/models"
	"ChatWave/server/internal/services"

	"github.com/go-chi/chi/v5"
)

type ChatHandler struct {
	chats *services.ChatService
}

func NewChatHandler(chats *services.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	chats, err := h.chats.ListChats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		ParticipantIDs []int  `json:"participant_ids"`
		IsGroup        bool   `json:"is_group"`
		Name           string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ParticipantIDs) == 0 {
		writeError(w, http.StatusBadRequest, "At least one participant is required")
		return
	}

	chat, existing, err := h.chats.GetOrCreateChat(r.Context(), userID, req.ParticipantIDs, req.IsGroup, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	writeJSON(w, status, chat)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}

	chat, err := h.chats.GetChat(r.Context(), chatID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, pagination, err := h.chats.GetMessages(r.Context(), chatID, userID, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages":   messages,
		"pagination": pagination,
	})
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}

	var req struct {
		Content  string           `json:"content"`
		Type     string           `json:"message_type"`
		ReplyTo  *int             `json:"reply_to"`
		FileData *models.FileData `json:"file_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	msg, err := h.chats.SendMessage(r.Context(), chatID, userID, services.SendMessageInput{
		Content:  req.Content,
		Type:     req.Type,
		ReplyTo:  req.ReplyTo,
		FileData: req.FileData,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}

	count, err := h.chats.MarkRead(r.Context(), chatID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": count})
}

// pathID parses a positive integer id out of a chi route parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
