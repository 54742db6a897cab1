package postgres

import (
	"context"
	"errors"
	"log"
	"time"

	"ChatWave/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const chatColumns = "id, name, is_group, admin_id, group_avatar, last_message_id, created_at, updated_at"

func (s *Store) CreateChat(ctx context.Context, chat *models.Chat, participantIDs []int) (int, error) {
	query := psql.Insert("chats").
		Columns("name", "is_group", "admin_id", "group_avatar").
		Values(chat.Name, chat.IsGroup, chat.AdminID, chat.GroupAvatar).
		Suffix("RETURNING id, created_at, updated_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		log.Printf("Error creating chat: %v", err)
		return 0, err
	}

	if err := s.AddParticipants(ctx, chat.ID, participantIDs); err != nil {
		return 0, err
	}

	log.Printf("Chat created with ID %d", chat.ID)
	return chat.ID, nil
}

func (s *Store) GetChatByID(ctx context.Context, chatID int) (*models.Chat, error) {
	query := psql.Select(chatColumns).
		From("chats").
		Where(squirrel.Eq{"id": chatID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var chat models.Chat
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&chat.ID, &chat.Name, &chat.IsGroup, &chat.AdminID,
		&chat.GroupAvatar, &chat.LastMessageID, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrChatNotFound
		}
		log.Printf("Error fetching chat %d: %v", chatID, err)
		return nil, err
	}

	participants, err := s.chatParticipants(ctx, chatID)
	if err != nil {
		return nil, err
	}
	chat.Participants = participants
	return &chat, nil
}

// FindDirectChat looks up the one-to-one chat for an unordered pair of
// users. Exactly one such chat may exist per pair.
func (s *Store) FindDirectChat(ctx context.Context, userID, otherID int) (*models.Chat, error) {
	query := psql.Select("c.id").
		From("chats c").
		Join("chat_participants p1 ON c.id = p1.chat_id").
		Join("chat_participants p2 ON c.id = p2.chat_id").
		Where(squirrel.Eq{
			"c.is_group": false,
			"p1.user_id": userID,
			"p2.user_id": otherID,
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var chatID int
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrChatNotFound
		}
		log.Printf("Error looking up direct chat for users %d and %d: %v", userID, otherID, err)
		return nil, err
	}
	return s.GetChatByID(ctx, chatID)
}

func (s *Store) ChatsByUser(ctx context.Context, userID int) ([]models.Chat, error) {
	query := psql.Select("c.id", "c.name", "c.is_group", "c.admin_id", "c.group_avatar",
		"c.last_message_id", "c.created_at", "c.updated_at").
		From("chats c").
		Join("chat_participants cp ON c.id = cp.chat_id").
		Where(squirrel.Eq{"cp.user_id": userID}).
		OrderBy("c.updated_at DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching chats for user %d: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.AdminID,
			&chat.GroupAvatar, &chat.LastMessageID, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chats {
		participants, err := s.chatParticipants(ctx, chats[i].ID)
		if err != nil {
			return nil, err
		}
		chats[i].Participants = participants

		if chats[i].LastMessageID != nil {
			msg, err := s.GetMessageByID(ctx, *chats[i].LastMessageID)
			if err != nil && !errors.Is(err, models.ErrMessageNotFound) {
				return nil, err
			}
			chats[i].LastMessage = msg
		}
	}
	return chats, nil
}

func (s *Store) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1
            FROM chat_participants
            WHERE chat_id = $1 AND user_id = $2
        )
    `

	var exists bool
	if err := s.pool.QueryRow(ctx, query, chatID, userID).Scan(&exists); err != nil {
		log.Printf("Error checking if user %d is a participant of chat %d: %v", userID, chatID, err)
		return false, err
	}
	return exists, nil
}

func (s *Store) ParticipantIDs(ctx context.Context, chatID int) ([]int, error) {
	query := psql.Select("user_id").
		From("chat_participants").
		Where(squirrel.Eq{"chat_id": chatID}).
		OrderBy("joined_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) AddParticipants(ctx context.Context, chatID int, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := psql.Insert("chat_participants").Columns("chat_id", "user_id")
	for _, userID := range userIDs {
		query = query.Values(chatID, userID)
	}
	query = query.Suffix("ON CONFLICT DO NOTHING")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error adding participants to chat %d: %v", chatID, err)
		return err
	}
	return nil
}

func (s *Store) RemoveParticipant(ctx context.Context, chatID, userID int) error {
	query := psql.Delete("chat_participants").
		Where(squirrel.Eq{"chat_id": chatID, "user_id": userID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error removing participant %d from chat %d: %v", userID, chatID, err)
		return err
	}
	return nil
}

func (s *Store) SetChatAdmin(ctx context.Context, chatID, adminID int) error {
	query := psql.Update("chats").
		Set("admin_id", adminID).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": chatID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error transferring admin of chat %d to user %d: %v", chatID, adminID, err)
		return err
	}
	return nil
}

func (s *Store) UpdateChatInfo(ctx context.Context, chatID int, name, groupAvatar *string) error {
	setClause := squirrel.Eq{"updated_at": time.Now()}
	if name != nil {
		setClause["name"] = *name
	}
	if groupAvatar != nil {
		setClause["group_avatar"] = *groupAvatar
	}

	query := psql.Update("chats").
		SetMap(setClause).
		Where(squirrel.Eq{"id": chatID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error updating chat %d: %v", chatID, err)
		return err
	}
	return nil
}

func (s *Store) SetChatLastMessage(ctx context.Context, chatID int, messageID *int) error {
	query := psql.Update("chats").
		Set("last_message_id", messageID).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": chatID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error updating last message of chat %d: %v", chatID, err)
		return err
	}
	return nil
}

// DeleteChat removes the chat row; messages, participants, reads and
// reactions go with it via ON DELETE CASCADE.
func (s *Store) DeleteChat(ctx context.Context, chatID int) error {
	query := psql.Delete("chats").Where(squirrel.Eq{"id": chatID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error deleting chat %d: %v", chatID, err)
		return err
	}
	log.Printf("Chat %d deleted", chatID)
	return nil
}

func (s *Store) chatParticipants(ctx context.Context, chatID int) ([]models.User, error) {
	query := psql.Select("u.id", "u.username", "u.email", "u.password_hash", "u.avatar", "u.is_online", "u.last_seen", "u.created_at").
		From("users u").
		Join("chat_participants cp ON u.id = cp.user_id").
		Where(squirrel.Eq{"cp.chat_id": chatID}).
		OrderBy("cp.joined_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching participants for chat %d: %v", chatID, err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.Avatar, &u.IsOnline, &u.LastSeen, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
