package storage

import (
	"context"
	"time"

	"ChatWave/server/internal/models"
)

// Store is the persistence contract consumed by the services and the
// realtime gateway. Single-document operations are atomic; multi-step
// flows (save message, then bump the chat summary) accept the small
// inconsistency window between writes.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) (int, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	SearchUsers(ctx context.Context, query string, excludeID int) ([]models.User, error)
	SetUserPresence(ctx context.Context, userID int, isOnline bool, lastSeen time.Time) error

	// Friend graph operations
	FriendIDs(ctx context.Context, userID int) ([]int, error)
	ListFriends(ctx context.Context, userID int) ([]models.User, error)
	AreFriends(ctx context.Context, userID, otherID int) (bool, error)
	AddFriendEdge(ctx context.Context, userID, otherID int) error
	RemoveFriendEdge(ctx context.Context, userID, otherID int) error
	CreateFriendRequest(ctx context.Context, toID, fromID int) (int, error)
	PendingRequestExists(ctx context.Context, toID, fromID int) (bool, error)
	GetFriendRequest(ctx context.Context, requestID int) (*models.FriendRequest, error)
	DeleteFriendRequest(ctx context.Context, requestID int) error
	ListFriendRequests(ctx context.Context, userID int) ([]models.FriendRequest, error)

	// Chat operations
	CreateChat(ctx context.Context, chat *models.Chat, participantIDs []int) (int, error)
	GetChatByID(ctx context.Context, chatID int) (*models.Chat, error)
	FindDirectChat(ctx context.Context, userID, otherID int) (*models.Chat, error)
	ChatsByUser(ctx context.Context, userID int) ([]models.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID int) (bool, error)
	ParticipantIDs(ctx context.Context, chatID int) ([]int, error)
	AddParticipants(ctx context.Context, chatID int, userIDs []int) error
	RemoveParticipant(ctx context.Context, chatID, userID int) error
	SetChatAdmin(ctx context.Context, chatID, adminID int) error
	UpdateChatInfo(ctx context.Context, chatID int, name, groupAvatar *string) error
	SetChatLastMessage(ctx context.Context, chatID int, messageID *int) error
	DeleteChat(ctx context.Context, chatID int) error

	// Message operations
	CreateMessage(ctx context.Context, msg *models.Message) (int, error)
	GetMessageByID(ctx context.Context, messageID int) (*models.Message, error)
	MessagesByChat(ctx context.Context, chatID, offset, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context, chatID int) (int, error)
	MarkMessagesRead(ctx context.Context, chatID, userID int, readAt time.Time) (int, error)
	UpdateMessageContent(ctx context.Context, messageID int, content string, editedAt time.Time) error
	DeleteMessage(ctx context.Context, messageID int) error
	LatestMessageID(ctx context.Context, chatID int) (*int, error)
	AddReaction(ctx context.Context, messageID, userID int, emoji string) error
	RemoveReaction(ctx context.Context, messageID, userID int, emoji string) error
	ReactionsByMessage(ctx context.Context, messageID int) ([]models.Reaction, error)
}
