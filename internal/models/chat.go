package models

import (
	"time"
)

type Chat struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	IsGroup       bool      `json:"is_group" db:"is_group"`
	AdminID       *int      `json:"admin_id,omitempty" db:"admin_id"`
	GroupAvatar   string    `json:"group_avatar,omitempty" db:"group_avatar"`
	LastMessageID *int      `json:"-" db:"last_message_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	Participants []User   `json:"participants,omitempty"`
	LastMessage  *Message `json:"last_message,omitempty"`
}

// DisplayName is the name shown in a chat list. Group chats carry their own
// name; a one-to-one chat is named after the other participant.
func (c *Chat) DisplayName(currentUserID int) string {
	if c.IsGroup {
		return c.Name
	}
	for _, p := range c.Participants {
		if p.ID != currentUserID {
			return p.Username
		}
	}
	return "Unknown User"
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasMore bool `json:"has_more"`
}
