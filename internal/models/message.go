package models

import (
	"time"
)

const (
	MessageText     = "text"
	MessageImage    = "image"
	MessageFile     = "file"
	MessageSystem   = "system"
	MessageCall     = "call"
	MessageLocation = "location"
	MessageContact  = "contact"
)

type Message struct {
	ID        int        `json:"id" db:"id"`
	ChatID    int        `json:"chat_id" db:"chat_id"`
	SenderID  int        `json:"sender_id" db:"sender_id"`
	Sender    *User      `json:"sender,omitempty"`
	Content   string     `json:"content" db:"content"`
	Type      string     `json:"message_type" db:"message_type"`
	Encrypted bool       `json:"encrypted" db:"encrypted"`
	ReplyToID *int       `json:"reply_to,omitempty" db:"reply_to"`
	FileData  *FileData  `json:"file_data,omitempty"`
	EditedAt  *time.Time `json:"edited_at,omitempty" db:"edited_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`

	ReadBy    []ReadReceipt `json:"read_by,omitempty"`
	Reactions []Reaction    `json:"reactions,omitempty"`
}

type FileData struct {
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	URL      string `json:"url,omitempty"`
}

type ReadReceipt struct {
	UserID int       `json:"user_id" db:"user_id"`
	ReadAt time.Time `json:"read_at" db:"read_at"`
}

type Reaction struct {
	UserID    int       `json:"user_id" db:"user_id"`
	Emoji     string    `json:"emoji" db:"emoji"`
	ReactedAt time.Time `json:"reacted_at" db:"reacted_at"`
}

// ReadByUser reports whether userID already has a read receipt on the message.
func (m *Message) ReadByUser(userID int) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
