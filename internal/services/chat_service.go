package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"ChatWave/server/internal/crypto"
	"ChatWave/server/internal/models"
	"ChatWave/server/internal/realtime"
	"ChatWave/server/internal/storage"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

type ChatService struct {
	store       storage.Store
	cipher      *crypto.Cipher
	broadcaster Broadcaster
}

func NewChatService(store storage.Store, cipher *crypto.Cipher, broadcaster Broadcaster) *ChatService {
	return &ChatService{
		store:       store,
		cipher:      cipher,
		broadcaster: broadcaster,
	}
}

// SendMessageInput carries everything a client may attach to a message.
type SendMessageInput struct {
	Content  string
	Type     string
	ReplyTo  *int
	FileData *models.FileData
}

// GetOrCreateChat returns the chat for the given participant set, creating
// it when needed. A one-to-one chat between the same two users is reused in
// either participant order. The second return value reports whether an
// existing chat was reused.
func (cs *ChatService) GetOrCreateChat(ctx context.Context, creatorID int, participantIDs []int, isGroup bool, name string) (*models.Chat, bool, error) {
	members := includeUser(participantIDs, creatorID)

	// Every participant must resolve to a real user before anything is
	// created; a dangling id would otherwise leave a chat missing a member.
	for _, id := range members {
		if _, err := cs.store.GetUserByID(ctx, id); err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				return nil, false, models.ErrUserNotFound
			}
			log.Printf("Error resolving chat participant %d: %v", id, err)
			return nil, false, err
		}
	}

	if isGroup {
		if strings.TrimSpace(name) == "" {
			return nil, false, models.ErrGroupNameRequired
		}
	} else {
		if len(members) != 2 {
			return nil, false, models.ErrNotGroup
		}
		otherID := members[0]
		if otherID == creatorID {
			otherID = members[1]
		}
		existing, err := cs.store.FindDirectChat(ctx, creatorID, otherID)
		if err == nil {
			return existing, true, nil
		}
		if !errors.Is(err, models.ErrChatNotFound) {
			log.Printf("Error looking up direct chat for users %d/%d: %v", creatorID, otherID, err)
			return nil, false, err
		}
	}

	chat := &models.Chat{
		Name:    strings.TrimSpace(name),
		IsGroup: isGroup,
	}
	if isGroup {
		chat.AdminID = &creatorID
	}

	chatID, err := cs.store.CreateChat(ctx, chat, members)
	if err != nil {
		log.Printf("Error creating chat: %v", err)
		return nil, false, err
	}

	created, err := cs.store.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, false, err
	}

	cs.broadcaster.ToUsers(members, creatorID, realtime.EventNewChat, created)

	log.Printf("Chat created: ID %d (group=%v, members=%d)", chatID, isGroup, len(members))
	return created, false, nil
}

// ListChats returns the user's chats, most recently active first, with the
// last message decrypted for preview.
func (cs *ChatService) ListChats(ctx context.Context, userID int) ([]models.Chat, error) {
	chats, err := cs.store.ChatsByUser(ctx, userID)
	if err != nil {
		log.Printf("Error listing chats for user %d: %v", userID, err)
		return nil, err
	}

	for i := range chats {
		chats[i].Name = chats[i].DisplayName(userID)
		if chats[i].LastMessage != nil {
			cs.decryptMessage(chats[i].LastMessage)
		}
	}
	return chats, nil
}

// GetChat returns a single chat with its participants. Only participants
// may see it.
func (cs *ChatService) GetChat(ctx context.Context, chatID, userID int) (*models.Chat, error) {
	if err := cs.requireParticipant(ctx, chatID, userID); err != nil {
		return nil, err
	}

	chat, err := cs.store.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	chat.Name = chat.DisplayName(userID)
	if chat.LastMessage != nil {
		cs.decryptMessage(chat.LastMessage)
	}
	return chat, nil
}

// GetMessages returns one page of the chat's history in chronological order
// together with pagination metadata. Page numbers start at 1; newer pages
// have lower numbers.
func (cs *ChatService) GetMessages(ctx context.Context, chatID, userID, page, limit int) ([]models.Message, *models.Pagination, error) {
	if err := cs.requireParticipant(ctx, chatID, userID); err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	total, err := cs.store.CountMessages(ctx, chatID)
	if err != nil {
		log.Printf("Error counting messages in chat %d: %v", chatID, err)
		return nil, nil, err
	}

	messages, err := cs.store.MessagesByChat(ctx, chatID, (page-1)*limit, limit)
	if err != nil {
		log.Printf("Error fetching messages for chat %d: %v", chatID, err)
		return nil, nil, err
	}

	// The store returns newest first for cheap paging; the client renders
	// oldest first.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ID < messages[j].ID
	})
	for i := range messages {
		cs.decryptMessage(&messages[i])
	}

	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	pagination := &models.Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasMore: page < pages,
	}
	return messages, pagination, nil
}

// SendMessage persists an encrypted message, bumps the chat summary, and
// fans the decrypted message out to every other participant; the sender
// already holds the message from the call's return value. The sender gets an
// immediate read receipt so unread counts never include their own messages.
func (cs *ChatService) SendMessage(ctx context.Context, chatID, senderID int, input SendMessageInput) (*models.Message, error) {
	if err := cs.requireParticipant(ctx, chatID, senderID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(input.Content)
	if content == "" && input.FileData == nil {
		return nil, models.ErrEmptyContent
	}

	msgType := input.Type
	if msgType == "" {
		msgType = models.MessageText
	}

	msg := &models.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Type:      msgType,
		ReplyToID: input.ReplyTo,
		FileData:  input.FileData,
		CreatedAt: time.Now().UTC(),
		ReadBy:    []models.ReadReceipt{{UserID: senderID, ReadAt: time.Now().UTC()}},
	}

	// System messages stay readable in the database; everything else is
	// sealed before it touches disk.
	if msgType != models.MessageSystem && content != "" {
		sealed, err := cs.cipher.EncryptToString(content)
		if err != nil {
			log.Printf("Error encrypting message for chat %d: %v", chatID, err)
			return nil, err
		}
		msg.Content = sealed
		msg.Encrypted = true
	}

	msgID, err := cs.store.CreateMessage(ctx, msg)
	if err != nil {
		log.Printf("Error saving message in chat %d: %v", chatID, err)
		return nil, err
	}
	msg.ID = msgID

	if err := cs.store.SetChatLastMessage(ctx, chatID, &msgID); err != nil {
		log.Printf("Error updating last message of chat %d: %v", chatID, err)
	}

	if sender, err := cs.store.GetUserByID(ctx, senderID); err == nil {
		msg.Sender = sender
	}

	out := *msg
	out.Content = content
	cs.fanOutToParticipants(ctx, chatID, senderID, realtime.EventNewMessage, &out)

	return &out, nil
}

// MarkRead records read receipts for every message in the chat the user has
// not read yet and reports how many were added. Re-reading is a no-op.
func (cs *ChatService) MarkRead(ctx context.Context, chatID, userID int) (int, error) {
	if err := cs.requireParticipant(ctx, chatID, userID); err != nil {
		return 0, err
	}

	readAt := time.Now().UTC()
	count, err := cs.store.MarkMessagesRead(ctx, chatID, userID, readAt)
	if err != nil {
		log.Printf("Error marking messages read in chat %d: %v", chatID, err)
		return 0, err
	}

	if count > 0 {
		cs.broadcaster.ToChat(chatID, userID, realtime.EventMessagesRead, map[string]any{
			"chat_id": chatID,
			"user_id": userID,
			"read_at": readAt,
			"count":   count,
		})
	}
	return count, nil
}

// EditMessage replaces the content of the sender's own message and notifies
// the chat.
func (cs *ChatService) EditMessage(ctx context.Context, messageID, userID int, content string) (*models.Message, error) {
	msg, err := cs.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, models.ErrNotSender
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.ErrEmptyContent
	}

	stored := content
	if msg.Encrypted {
		stored, err = cs.cipher.EncryptToString(content)
		if err != nil {
			log.Printf("Error encrypting edited message %d: %v", messageID, err)
			return nil, err
		}
	}

	editedAt := time.Now().UTC()
	if err := cs.store.UpdateMessageContent(ctx, messageID, stored, editedAt); err != nil {
		log.Printf("Error updating message %d: %v", messageID, err)
		return nil, err
	}

	msg.Content = content
	msg.EditedAt = &editedAt

	cs.fanOutToParticipants(ctx, msg.ChatID, 0, realtime.EventMessageEdited, msg)
	return msg, nil
}

// DeleteMessage removes the sender's own message. When the deleted message
// was the chat's latest, the chat summary falls back to the previous one.
func (cs *ChatService) DeleteMessage(ctx context.Context, messageID, userID int) error {
	msg, err := cs.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return models.ErrNotSender
	}

	if err := cs.store.DeleteMessage(ctx, messageID); err != nil {
		log.Printf("Error deleting message %d: %v", messageID, err)
		return err
	}

	chat, err := cs.store.GetChatByID(ctx, msg.ChatID)
	if err == nil && chat.LastMessageID != nil && *chat.LastMessageID == messageID {
		latest, err := cs.store.LatestMessageID(ctx, msg.ChatID)
		if err != nil {
			log.Printf("Error recomputing last message of chat %d: %v", msg.ChatID, err)
		} else if err := cs.store.SetChatLastMessage(ctx, msg.ChatID, latest); err != nil {
			log.Printf("Error updating last message of chat %d: %v", msg.ChatID, err)
		}
	}

	cs.fanOutToParticipants(ctx, msg.ChatID, 0, realtime.EventMessageDeleted, map[string]any{
		"message_id": messageID,
		"chat_id":    msg.ChatID,
	})
	return nil
}

// ReactToMessage records the user's emoji reaction on a message in a chat
// they participate in and returns the message's updated reactions. Repeating
// the same reaction is a no-op.
func (cs *ChatService) ReactToMessage(ctx context.Context, messageID, userID int, emoji string) ([]models.Reaction, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, models.ErrEmptyContent
	}

	msg, err := cs.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := cs.requireParticipant(ctx, msg.ChatID, userID); err != nil {
		return nil, err
	}

	if err := cs.store.AddReaction(ctx, messageID, userID, emoji); err != nil {
		log.Printf("Error adding reaction to message %d: %v", messageID, err)
		return nil, err
	}
	return cs.reactionsUpdated(ctx, msg, userID)
}

// RemoveReaction withdraws the user's emoji reaction and returns the
// message's remaining reactions.
func (cs *ChatService) RemoveReaction(ctx context.Context, messageID, userID int, emoji string) ([]models.Reaction, error) {
	msg, err := cs.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := cs.requireParticipant(ctx, msg.ChatID, userID); err != nil {
		return nil, err
	}

	if err := cs.store.RemoveReaction(ctx, messageID, userID, emoji); err != nil {
		log.Printf("Error removing reaction from message %d: %v", messageID, err)
		return nil, err
	}
	return cs.reactionsUpdated(ctx, msg, userID)
}

func (cs *ChatService) reactionsUpdated(ctx context.Context, msg *models.Message, actorID int) ([]models.Reaction, error) {
	reactions, err := cs.store.ReactionsByMessage(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	cs.fanOutToParticipants(ctx, msg.ChatID, actorID, realtime.EventMessageReaction, map[string]any{
		"message_id": msg.ID,
		"chat_id":    msg.ChatID,
		"reactions":  reactions,
	})
	return reactions, nil
}

// SendSystemMessage stores a plaintext system notice in the chat and fans it
// out like a regular message. Used for group membership changes.
func (cs *ChatService) SendSystemMessage(ctx context.Context, chatID, actorID int, content string) {
	msg := &models.Message{
		ChatID:    chatID,
		SenderID:  actorID,
		Content:   content,
		Type:      models.MessageSystem,
		CreatedAt: time.Now().UTC(),
	}

	msgID, err := cs.store.CreateMessage(ctx, msg)
	if err != nil {
		log.Printf("Error saving system message in chat %d: %v", chatID, err)
		return
	}
	msg.ID = msgID

	if err := cs.store.SetChatLastMessage(ctx, chatID, &msgID); err != nil {
		log.Printf("Error updating last message of chat %d: %v", chatID, err)
	}

	cs.fanOutToParticipants(ctx, chatID, 0, realtime.EventNewMessage, msg)
}

func (cs *ChatService) requireParticipant(ctx context.Context, chatID, userID int) error {
	isParticipant, err := cs.store.IsParticipant(ctx, chatID, userID)
	if err != nil {
		log.Printf("Error checking participant %d of chat %d: %v", userID, chatID, err)
		return err
	}
	if !isParticipant {
		return models.ErrNotParticipant
	}
	return nil
}

func (cs *ChatService) fanOutToParticipants(ctx context.Context, chatID, exceptUserID int, event string, data any) {
	participantIDs, err := cs.store.ParticipantIDs(ctx, chatID)
	if err != nil {
		log.Printf("Error fetching participants of chat %d for %s: %v", chatID, event, err)
		return
	}
	cs.broadcaster.ToUsers(participantIDs, exceptUserID, event, data)
}

func (cs *ChatService) decryptMessage(msg *models.Message) {
	if !msg.Encrypted {
		return
	}
	msg.Content = cs.cipher.DecryptFromString(msg.Content)
}

// includeUser returns the id set with userID present exactly once,
// preserving the caller's order.
func includeUser(ids []int, userID int) []int {
	out := make([]int, 0, len(ids)+1)
	seen := map[int]bool{}
	for _, id := range append([]int{userID}, ids...) {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
