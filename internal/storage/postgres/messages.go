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

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) (int, error) {
	var fileName, mimeType, fileURL *string
	var fileSize *int64
	if msg.FileData != nil {
		fileName = &msg.FileData.FileName
		fileSize = &msg.FileData.FileSize
		mimeType = &msg.FileData.MimeType
		fileURL = &msg.FileData.URL
	}

	query := psql.Insert("messages").
		Columns("chat_id", "sender_id", "content", "message_type", "encrypted",
			"reply_to", "file_name", "file_size", "mime_type", "file_url").
		Values(msg.ChatID, msg.SenderID, msg.Content, msg.Type, msg.Encrypted,
			msg.ReplyToID, fileName, fileSize, mimeType, fileURL).
		Suffix("RETURNING id, created_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		log.Printf("Error saving message to chat %d: %v", msg.ChatID, err)
		return 0, err
	}

	for _, receipt := range msg.ReadBy {
		if err := s.addReadReceipt(ctx, msg.ID, receipt.UserID, receipt.ReadAt); err != nil {
			return 0, err
		}
	}
	return msg.ID, nil
}

func (s *Store) GetMessageByID(ctx context.Context, messageID int) (*models.Message, error) {
	query := psql.Select(messageColumns...).
		From("messages").
		Where(squirrel.Eq{"id": messageID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, sqlStr, args...)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrMessageNotFound
		}
		log.Printf("Error fetching message %d: %v", messageID, err)
		return nil, err
	}

	if err := s.attachReceipts(ctx, msg); err != nil {
		return nil, err
	}
	msg.Reactions, err = s.ReactionsByMessage(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// MessagesByChat returns a page of messages sorted newest-first. Callers
// reverse the page for chronological delivery.
func (s *Store) MessagesByChat(ctx context.Context, chatID, offset, limit int) ([]models.Message, error) {
	query := psql.Select(messageColumns...).
		From("messages").
		Where(squirrel.Eq{"chat_id": chatID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching messages for chat %d: %v", chatID, err)
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range messages {
		if err := s.attachReceipts(ctx, &messages[i]); err != nil {
			return nil, err
		}
		messages[i].Reactions, err = s.ReactionsByMessage(ctx, messages[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return messages, nil
}

func (s *Store) CountMessages(ctx context.Context, chatID int) (int, error) {
	query := psql.Select("COUNT(*)").
		From("messages").
		Where(squirrel.Eq{"chat_id": chatID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkMessagesRead inserts a read receipt for every message in the chat the
// user has not read yet and reports how many were marked.
func (s *Store) MarkMessagesRead(ctx context.Context, chatID, userID int, readAt time.Time) (int, error) {
	query := `
        INSERT INTO message_reads (message_id, user_id, read_at)
        SELECT m.id, $2, $3
        FROM messages m
        WHERE m.chat_id = $1
          AND NOT EXISTS (
              SELECT 1 FROM message_reads r
              WHERE r.message_id = m.id AND r.user_id = $2
          )
    `

	tag, err := s.pool.Exec(ctx, query, chatID, userID, readAt)
	if err != nil {
		log.Printf("Error marking messages as read in chat %d for user %d: %v", chatID, userID, err)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) UpdateMessageContent(ctx context.Context, messageID int, content string, editedAt time.Time) error {
	query := psql.Update("messages").
		Set("content", content).
		Set("edited_at", editedAt).
		Where(squirrel.Eq{"id": messageID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error updating message %d: %v", messageID, err)
		return err
	}
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, messageID int) error {
	query := psql.Delete("messages").Where(squirrel.Eq{"id": messageID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error deleting message %d: %v", messageID, err)
		return err
	}
	return nil
}

func (s *Store) LatestMessageID(ctx context.Context, chatID int) (*int, error) {
	query := psql.Select("id").
		From("messages").
		Where(squirrel.Eq{"chat_id": chatID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var id int
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

var messageColumns = []string{
	"id", "chat_id", "sender_id", "content", "message_type", "encrypted",
	"reply_to", "file_name", "file_size", "mime_type", "file_url",
	"edited_at", "created_at",
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	var fileName, mimeType, fileURL *string
	var fileSize *int64

	err := row.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Type,
		&msg.Encrypted, &msg.ReplyToID, &fileName, &fileSize, &mimeType, &fileURL,
		&msg.EditedAt, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	if fileName != nil || fileURL != nil {
		msg.FileData = &models.FileData{}
		if fileName != nil {
			msg.FileData.FileName = *fileName
		}
		if fileSize != nil {
			msg.FileData.FileSize = *fileSize
		}
		if mimeType != nil {
			msg.FileData.MimeType = *mimeType
		}
		if fileURL != nil {
			msg.FileData.URL = *fileURL
		}
	}
	return &msg, nil
}

func (s *Store) addReadReceipt(ctx context.Context, messageID, userID int, readAt time.Time) error {
	query := psql.Insert("message_reads").
		Columns("message_id", "user_id", "read_at").
		Values(messageID, userID, readAt).
		Suffix("ON CONFLICT DO NOTHING")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, sqlStr, args...)
	return err
}

func (s *Store) AddReaction(ctx context.Context, messageID, userID int, emoji string) error {
	query := psql.Insert("message_reactions").
		Columns("message_id", "user_id", "emoji").
		Values(messageID, userID, emoji).
		Suffix("ON CONFLICT DO NOTHING")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error adding reaction to message %d: %v", messageID, err)
		return err
	}
	return nil
}

func (s *Store) RemoveReaction(ctx context.Context, messageID, userID int, emoji string) error {
	query := psql.Delete("message_reactions").
		Where(squirrel.Eq{"message_id": messageID, "user_id": userID, "emoji": emoji})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		log.Printf("Error removing reaction from message %d: %v", messageID, err)
		return err
	}
	return nil
}

func (s *Store) ReactionsByMessage(ctx context.Context, messageID int) ([]models.Reaction, error) {
	query := psql.Select("user_id", "emoji", "reacted_at").
		From("message_reactions").
		Where(squirrel.Eq{"message_id": messageID}).
		OrderBy("reacted_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []models.Reaction
	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.UserID, &r.Emoji, &r.ReactedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

func (s *Store) attachReceipts(ctx context.Context, msg *models.Message) error {
	query := psql.Select("user_id", "read_at").
		From("message_reads").
		Where(squirrel.Eq{"message_id": msg.ID}).
		OrderBy("read_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r models.ReadReceipt
		if err := rows.Scan(&r.UserID, &r.ReadAt); err != nil {
			return err
		}
		msg.ReadBy = append(msg.ReadBy, r)
	}
	return rows.Err()
}
